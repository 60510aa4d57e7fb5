package loader

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. The <title> element becomes the title and
// non-content elements are skipped.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := ""
	if t := findElement(root, "title"); t != nil {
		title = collapse(textContent(t))
	}

	var paragraphs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "nav", "footer", "head", "template":
				return
			case "p", "li", "td", "th", "blockquote", "pre", "h1", "h2", "h3", "h4", "h5", "h6":
				if t := collapse(textContent(n)); t != "" {
					paragraphs = append(paragraphs, t)
				}
				return
			}
		}
		if n.Type == html.TextNode && n.Parent != nil && n.Parent.Type == html.ElementNode {
			switch n.Parent.Data {
			case "body", "div", "section", "article", "main", "span":
				if t := collapse(n.Data); t != "" {
					paragraphs = append(paragraphs, t)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findElement(root, "body"); body != nil {
		walk(body)
	} else {
		walk(root)
	}

	if title == "" {
		if h1 := findElement(root, "h1"); h1 != nil {
			title = collapse(textContent(h1))
		}
	}

	return &Document{
		Title:  title,
		Text:   joinParagraphs(paragraphs),
		Format: "html",
	}, nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return buf.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
