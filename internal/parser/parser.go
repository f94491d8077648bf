// Package parser turns uploaded files into page/element streams.
package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docintel/internal/document"
)

// ErrUnsupported is returned for file types no parser handles.
var ErrUnsupported = errors.New("unsupported file extension")

// Parser converts raw document bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*document.Document, error)
}

// Options tune parser behavior.
type Options struct {
	PDFFallbackPdftotext bool // Use pdftotext when glyph extraction fails.
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ParseFile is a convenience wrapper that picks a parser and parses r.
func ParseFile(r io.Reader, filename string, opts Options) (*document.Document, error) {
	p, err := ForFile(filename, opts)
	if err != nil {
		return nil, err
	}
	return p.Parse(r, filename)
}
