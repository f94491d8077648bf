package heading

import (
	"fmt"

	"github.com/dgallion1/docintel/internal/document"
)

// Level is a heading depth; 1 is the most significant.
type Level int

// MaxLevel is the deepest level assigned.
const MaxLevel Level = 6

func (l Level) String() string {
	return fmt.Sprintf("H%d", int(l))
}

// Method names a detection strategy.
type Method string

const (
	MethodScore       Method = "score"
	MethodPattern     Method = "pattern"
	MethodFontCluster Method = "font_cluster"
)

// methodOrder is the canonical order Methods are reported in.
var methodOrder = []Method{MethodScore, MethodPattern, MethodFontCluster}

// Heading is a text element judged to open a section.
type Heading struct {
	Text       string
	Page       int
	FontSize   float64
	Bold       bool
	BBox       document.BBox
	Level      Level
	Confidence float64
	Methods    []Method

	// PatternLevel is the numbering depth (1-4) when a numbering pattern
	// matched, 0 otherwise.
	PatternLevel int
}

func (h Heading) X() float64 { return h.BBox.X0 }
func (h Heading) Y() float64 { return h.BBox.Y0 }

// HasMethod reports whether m voted for the heading.
func (h Heading) HasMethod(m Method) bool {
	for _, hm := range h.Methods {
		if hm == m {
			return true
		}
	}
	return false
}

// Before reports whether h precedes o in reading order.
func (h Heading) Before(o Heading) bool {
	if h.Page != o.Page {
		return h.Page < o.Page
	}
	return h.Y() < o.Y()
}

// Candidate is one strategy's vote for an element.
type Candidate struct {
	Element    document.Element
	Method     Method
	Confidence float64

	// PatternLevel is set by the pattern strategy.
	PatternLevel int
}
