// Package storage provides the document sources the import job reads from.
package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/financelm/internal/service"
)

// DirSource imports documents from a local directory tree.
type DirSource struct {
	root string
}

var _ service.DocumentSource = (*DirSource)(nil)

// NewDirSource creates the directory if needed and returns a source over it.
func NewDirSource(root string) (*DirSource, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve inbox dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}
	return &DirSource{root: abs}, nil
}

func (d *DirSource) Root() string {
	return d.root
}

func (d *DirSource) Scheme() string {
	return "file://" + filepath.ToSlash(d.root)
}

// List walks the tree and returns regular, non-hidden files with
// slash-separated keys relative to the root.
func (d *DirSource) List(ctx context.Context) ([]service.SourceObject, error) {
	var objects []service.SourceObject
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if path != d.root && strings.HasPrefix(name, ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		objects = append(objects, service.SourceObject{
			Key:        filepath.ToSlash(rel),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", d.root, err)
	}
	return objects, nil
}

func (d *DirSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return nil, fmt.Errorf("key %q escapes the inbox", key)
	}
	return os.Open(filepath.Join(d.root, clean))
}
