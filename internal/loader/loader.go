// Package loader extracts plain text from the document formats the import
// job accepts.
package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions without a parser.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Document is the text content of a parsed file.
type Document struct {
	Title  string
	Text   string
	Format string
}

// Parser extracts a Document from one file format.
type Parser interface {
	Parse(r io.Reader, filename string) (*Document, error)
}

var parsers = map[string]Parser{
	".txt":      &TextParser{},
	".text":     &TextParser{},
	".md":       &MarkdownParser{},
	".markdown": &MarkdownParser{},
	".html":     &HTMLParser{},
	".htm":      &HTMLParser{},
	".pdf":      &PDFParser{},
	".docx":     &DOCXParser{},
}

// ForFile returns the parser registered for the file's extension.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	p, ok := parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return p, nil
}

// Supported reports whether a parser exists for the file's extension.
func Supported(filename string) bool {
	_, ok := parsers[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Registry dispatches on file extension. Its zero value is ready to use.
type Registry struct{}

// Parse picks the parser for name and runs it. Documents without a title
// get the file's base name minus its extension.
func (Registry) Parse(name string, r io.Reader) (*Document, error) {
	p, err := ForFile(name)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(r, name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Title) == "" {
		doc.Title = baseTitle(name)
	}
	return doc, nil
}

func baseTitle(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func joinParagraphs(paragraphs []string) string {
	kept := paragraphs[:0]
	for _, p := range paragraphs {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
