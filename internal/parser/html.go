package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/docintel/internal/document"
)

// HTMLParser handles HTML files. h1-h6 become heading spans. Paragraphs,
// list items, table cells and quotes become body spans, bold when their
// whole text is wrapped in <b> or <strong>.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	b := newPageBuilder(filename)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				b.heading(textContent(n), level)
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "p", "li", "td", "th", "blockquote", "pre", "dt", "dd":
				if onlyStrong(n) {
					b.add(textContent(n), bodySize, true)
				} else {
					b.paragraph(textContent(n))
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	start := root
	if body := findElement(root, "body"); body != nil {
		start = body
	}
	walk(start)

	doc := b.finish()
	if title := findElement(root, "title"); title != nil {
		doc.Title = textContent(title)
	}
	return doc, nil
}

// headingLevel returns 1-6 for h1-h6 and 0 for any other tag.
func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// onlyStrong reports whether every non-blank child of n is a single <b> or
// <strong> element, the usual markup for a run-in heading.
func onlyStrong(n *html.Node) bool {
	found := false
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) == "":
		case c.Type == html.ElementNode && (c.Data == "b" || c.Data == "strong") && !found:
			found = true
		default:
			return false
		}
	}
	return found
}

// textContent returns the whitespace-collapsed text below n.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

// findElement returns the first element named tag in document order.
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
