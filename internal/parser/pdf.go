package parser

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"
	"unicode/utf8"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docintel/internal/document"
)

const (
	defaultPageHeight = 792.0 // US letter, points
	rowTolerance      = 2.0   // glyphs within this many points share a row
	wordGapRatio      = 0.15  // gap/font size above which a space is inserted
	spanGapRatio      = 3.0   // gap/font size above which a new span starts
	minSpanRunes      = 2
)

// PDFParser handles PDF files. Glyph runs are grouped into rows and split
// into spans wherever the font changes or a wide gap opens. It falls back to
// pdftotext if enabled and glyph extraction yields nothing.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docintel-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	doc, err := extractPDFElements(tmpPath, filename)
	if err == nil && hasText(doc) {
		return doc, nil
	}
	if p.FallbackPdftotext {
		if text, ferr := extractPdftotext(tmpPath); ferr == nil {
			return (&TextParser{}).Parse(strings.NewReader(text), filename)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return doc, nil
}

func extractPDFElements(path, name string) (doc *document.Document, err error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// The content stream decoder panics on some malformed files.
	defer func() {
		if rec := recover(); rec != nil {
			doc, err = nil, fmt.Errorf("decode pdf content: %v", rec)
		}
	}()

	doc = &document.Document{Name: name}
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		pg := document.Page{Number: i}
		page := reader.Page(i)
		if !page.V.IsNull() {
			pg.Elements = pageElements(page, i)
		}
		doc.Pages = append(doc.Pages, pg)
	}
	doc.Normalize()
	return doc, nil
}

func pageElements(page pdflib.Page, number int) []document.Element {
	var glyphs []pdflib.Text
	for _, t := range page.Content().Text {
		if strings.TrimSpace(t.S) != "" {
			glyphs = append(glyphs, t)
		}
	}
	height := pageHeight(page)

	var out []document.Element
	for _, row := range groupRows(glyphs) {
		sort.Slice(row, func(i, j int) bool { return row[i].X < row[j].X })
		for _, s := range splitSpans(row) {
			text := strings.TrimSpace(s.text.String())
			if utf8.RuneCountInString(text) < minSpanRunes {
				continue
			}
			lower := strings.ToLower(s.font)
			out = append(out, document.Element{
				Text:     text,
				Page:     number,
				FontSize: math.Round(s.size*10) / 10,
				FontName: s.font,
				Bold:     strings.Contains(lower, "bold") || strings.Contains(lower, "black") || strings.Contains(lower, "heavy"),
				Italic:   strings.Contains(lower, "italic") || strings.Contains(lower, "oblique"),
				BBox: document.BBox{
					X0: s.x0,
					Y0: height - (s.y + s.size),
					X1: s.x1,
					Y1: height - s.y,
				},
			})
		}
	}
	return out
}

// groupRows buckets glyphs whose baselines lie within rowTolerance of each
// other, top row first.
func groupRows(glyphs []pdflib.Text) [][]pdflib.Text {
	type bucket struct {
		yMin, yMax float64
		texts      []pdflib.Text
	}
	var buckets []bucket
	for _, g := range glyphs {
		found := false
		for i := range buckets {
			if g.Y >= buckets[i].yMin-rowTolerance && g.Y <= buckets[i].yMax+rowTolerance {
				buckets[i].texts = append(buckets[i].texts, g)
				buckets[i].yMin = math.Min(buckets[i].yMin, g.Y)
				buckets[i].yMax = math.Max(buckets[i].yMax, g.Y)
				found = true
				break
			}
		}
		if !found {
			buckets = append(buckets, bucket{yMin: g.Y, yMax: g.Y, texts: []pdflib.Text{g}})
		}
	}

	// PDF y grows upwards.
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].yMax > buckets[j].yMax })
	rows := make([][]pdflib.Text, len(buckets))
	for i, b := range buckets {
		rows[i] = b.texts
	}
	return rows
}

type span struct {
	text   strings.Builder
	font   string
	size   float64
	x0, x1 float64
	y      float64
}

// splitSpans merges a row's glyphs, sorted by x, into runs of one font.
func splitSpans(row []pdflib.Text) []*span {
	var spans []*span
	var cur *span
	for _, g := range row {
		if cur != nil && g.Font == cur.font && g.FontSize == cur.size {
			gap := g.X - cur.x1
			if gap <= cur.size*spanGapRatio {
				if gap > cur.size*wordGapRatio {
					cur.text.WriteByte(' ')
				}
				cur.text.WriteString(g.S)
				cur.x1 = math.Max(cur.x1, g.X+g.W)
				cur.y = math.Min(cur.y, g.Y)
				continue
			}
		}
		cur = &span{font: g.Font, size: g.FontSize, x0: g.X, x1: g.X + g.W, y: g.Y}
		cur.text.WriteString(g.S)
		spans = append(spans, cur)
	}
	return spans
}

func pageHeight(page pdflib.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.Len() == 4 {
		if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
			return h
		}
	}
	return defaultPageHeight
}

func hasText(doc *document.Document) bool {
	for _, p := range doc.Pages {
		if len(p.Elements) > 0 {
			return true
		}
	}
	return false
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
