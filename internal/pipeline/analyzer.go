package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/docintel/internal/document"
	"github.com/dgallion1/docintel/internal/heading"
	"github.com/dgallion1/docintel/internal/insight"
	"github.com/dgallion1/docintel/internal/layout"
	"github.com/dgallion1/docintel/internal/lexicon"
	"github.com/dgallion1/docintel/internal/parser"
	"github.com/dgallion1/docintel/internal/rank"
	"github.com/dgallion1/docintel/internal/relevance"
	"github.com/dgallion1/docintel/internal/section"
)

// Input is one document of an analysis run. Document, when set, is used
// instead of parsing Data and is normalized in place; otherwise Data is
// parsed according to the extension of Name.
type Input struct {
	Name     string
	Data     []byte
	Document *document.Document
}

// DocumentStatus tells whether a document took part in the analysis.
type DocumentStatus string

const (
	DocParsed  DocumentStatus = "parsed"
	DocSkipped DocumentStatus = "skipped"
)

// DocumentResult is the per-document outcome of a run.
type DocumentResult struct {
	Name     string         `json:"document"`
	Status   DocumentStatus `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	Title    string         `json:"title,omitempty"`
	Pages    int            `json:"pages"`
	Headings int            `json:"headings"`
	Sections int            `json:"sections"`
	Stats    *DocumentStats `json:"stats,omitempty"`
}

// DocumentStats summarizes the typography of a parsed document.
type DocumentStats struct {
	Elements       int      `json:"elements"`
	MeanFontSize   float64  `json:"mean_font_size"`
	MedianFontSize float64  `json:"median_font_size"`
	MinFontSize    float64  `json:"min_font_size"`
	MaxFontSize    float64  `json:"max_font_size"`
	Fonts          []string `json:"fonts"`
}

// Metadata describes the run that produced a Result.
type Metadata struct {
	InputDocuments      []string `json:"input_documents"`
	Persona             string   `json:"persona"`
	JobToBeDone         string   `json:"job_to_be_done"`
	ProcessingTimestamp string   `json:"processing_timestamp"`
}

// ExtractedSection is one ranked section of the output.
type ExtractedSection struct {
	Document       string `json:"document"`
	PageNumber     int    `json:"page_number"`
	SectionTitle   string `json:"section_title"`
	ImportanceRank int    `json:"importance_rank"`
}

// SubsectionAnalysis is one refined passage of the output.
type SubsectionAnalysis struct {
	Document       string   `json:"document"`
	SectionTitle   string   `json:"section_title"`
	RefinedText    string   `json:"refined_text"`
	PageNumber     int      `json:"page_number"`
	RelevanceScore float64  `json:"relevance_score"`
	KeyInsights    []string `json:"key_insights"`
}

// Result is the outcome of an analysis run.
type Result struct {
	Metadata           Metadata             `json:"metadata"`
	ExtractedSections  []ExtractedSection   `json:"extracted_sections"`
	SubsectionAnalysis []SubsectionAnalysis `json:"subsection_analysis"`
	Documents          []DocumentResult     `json:"documents"`

	// Scored holds every section that cleared the relevance threshold,
	// highest first.
	Scored []relevance.Scored `json:"-"`
}

// Options configures an Analyzer.
type Options struct {
	MaxConcurrentDocs int
	Parser            parser.Options
	Now               func() time.Time
}

// Analyzer runs the full pipeline: parse, element analysis, heading
// detection and segmentation per document, then relevance scoring, ranking
// and insight extraction over all documents.
type Analyzer struct {
	tuning   Tuning
	lex      *lexicon.Lexicon
	detector *heading.Detector
	opts     Options
	log      *slog.Logger
}

func NewAnalyzer(tuning Tuning, lex *lexicon.Lexicon, opts Options, log *slog.Logger) *Analyzer {
	if opts.MaxConcurrentDocs <= 0 {
		opts.MaxConcurrentDocs = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Analyzer{
		tuning:   tuning,
		lex:      lex,
		detector: heading.NewDetector(tuning.Heading),
		opts:     opts,
		log:      log,
	}
}

// parsedDoc is the private state of one document until the global stages.
type parsedDoc struct {
	result   DocumentResult
	doc      *document.Document
	headings []heading.Heading
	sections []section.Section
}

// Analyze runs the pipeline over inputs. Documents that fail to parse are
// reported as skipped and left out of the ranking. The only error returned
// is the context's, when it is cancelled before the run completes.
func (a *Analyzer) Analyze(ctx context.Context, inputs []Input, persona, job string) (*Result, error) {
	start := time.Now()
	res := &Result{
		Metadata: Metadata{
			InputDocuments:      make([]string, 0, len(inputs)),
			Persona:             persona,
			JobToBeDone:         job,
			ProcessingTimestamp: a.opts.Now().Format(time.RFC3339),
		},
		ExtractedSections:  []ExtractedSection{},
		SubsectionAnalysis: []SubsectionAnalysis{},
		Documents:          make([]DocumentResult, 0, len(inputs)),
	}
	for _, in := range inputs {
		res.Metadata.InputDocuments = append(res.Metadata.InputDocuments, in.Name)
	}

	docs := a.parseAll(ctx, inputs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sections []section.Section
	sources := make(map[string]section.Source)
	for _, pd := range docs {
		res.Documents = append(res.Documents, pd.result)
		if pd.result.Status != DocParsed {
			a.log.Warn("document skipped", "document", pd.result.Name, "reason", pd.result.Reason)
			continue
		}
		sections = append(sections, pd.sections...)
		sources[pd.doc.Name] = section.Source{Doc: pd.doc, Headings: pd.headings}
	}

	profiles := relevance.NewProfiles(a.lex, persona, job)
	res.Scored = relevance.NewScorer(a.tuning.Relevance, profiles).Rank(sections)
	ranked := rank.NewRanker(a.tuning.Rank, a.lex, persona, job).Rank(res.Scored)
	subs := insight.NewExtractor(a.tuning.Insight, profiles).Extract(ranked, sources)

	for _, rs := range ranked {
		res.ExtractedSections = append(res.ExtractedSections, ExtractedSection{
			Document:       rs.Document,
			PageNumber:     rs.Page,
			SectionTitle:   rs.CleanTitle,
			ImportanceRank: rs.ImportanceRank,
		})
	}
	for _, s := range subs {
		insights := s.KeyInsights
		if insights == nil {
			insights = []string{}
		}
		res.SubsectionAnalysis = append(res.SubsectionAnalysis, SubsectionAnalysis{
			Document:       s.Document,
			SectionTitle:   s.SectionTitle,
			RefinedText:    s.Text,
			PageNumber:     s.Page,
			RelevanceScore: s.Score,
			KeyInsights:    insights,
		})
	}

	a.log.Info("analysis complete",
		"documents", len(inputs),
		"sections", len(sections),
		"relevant", len(res.Scored),
		"ranked", len(res.ExtractedSections),
		"subsections", len(res.SubsectionAnalysis),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// parseAll processes documents with bounded concurrency. The returned slice
// is in input order regardless of completion order.
func (a *Analyzer) parseAll(ctx context.Context, inputs []Input) []parsedDoc {
	out := make([]parsedDoc, len(inputs))
	seen := make(map[string]bool, len(inputs))
	sem := make(chan struct{}, a.opts.MaxConcurrentDocs)
	var wg sync.WaitGroup

	for i, in := range inputs {
		if seen[in.Name] {
			out[i] = skipped(in.Name, "duplicate document name")
			continue
		}
		seen[in.Name] = true

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			out[i] = skipped(in.Name, ctx.Err().Error())
			continue
		}
		wg.Add(1)
		go func(i int, in Input) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = a.analyzeDocument(in)
		}(i, in)
	}
	wg.Wait()
	return out
}

// analyzeDocument runs the per-document stages: parse, element analysis,
// heading detection and segmentation.
func (a *Analyzer) analyzeDocument(in Input) parsedDoc {
	doc := in.Document
	if doc == nil {
		var err error
		doc, err = parser.ParseFile(bytes.NewReader(in.Data), in.Name, a.opts.Parser)
		if err != nil {
			return skipped(in.Name, fmt.Sprintf("parse: %s", err))
		}
	}
	doc.Name = in.Name
	doc.Normalize()
	if len(doc.Elements()) == 0 {
		return skipped(in.Name, "no extractable text")
	}

	elems := layout.Analyze(doc, a.tuning.Layout)
	hs := a.detector.Detect(elems)
	sections := section.Segment(doc, hs)

	if title := document.ExtractTitle(doc); title != "" {
		doc.Title = title
	} else if doc.Title == "" {
		doc.Title = strings.TrimSuffix(in.Name, filepath.Ext(in.Name))
	}

	return parsedDoc{
		result: DocumentResult{
			Name:     in.Name,
			Status:   DocParsed,
			Title:    doc.Title,
			Pages:    len(doc.Pages),
			Headings: len(hs),
			Sections: len(sections),
			Stats:    ComputeDocumentStats(doc),
		},
		doc:      doc,
		headings: hs,
		sections: sections,
	}
}

func skipped(name, reason string) parsedDoc {
	return parsedDoc{result: DocumentResult{Name: name, Status: DocSkipped, Reason: reason}}
}

// ComputeDocumentStats returns element and font statistics of d, or nil
// when d has no elements.
func ComputeDocumentStats(d *document.Document) *DocumentStats {
	elems := d.Elements()
	if len(elems) == 0 {
		return nil
	}
	sizes := layout.ComputeStats(elems)
	stats := &DocumentStats{
		Elements:       len(elems),
		MeanFontSize:   sizes.Mean,
		MedianFontSize: sizes.Median,
		MinFontSize:    elems[0].FontSize,
		MaxFontSize:    elems[0].FontSize,
		Fonts:          []string{},
	}
	fonts := make(map[string]bool)
	for _, e := range elems {
		stats.MinFontSize = min(stats.MinFontSize, e.FontSize)
		stats.MaxFontSize = max(stats.MaxFontSize, e.FontSize)
		if e.FontName != "" && !fonts[e.FontName] {
			fonts[e.FontName] = true
			stats.Fonts = append(stats.Fonts, e.FontName)
		}
	}
	sort.Strings(stats.Fonts)
	return stats
}
