// Package sectionindex keeps an in-memory full-text index over the scored
// sections of one analysis, so a finished job can be searched.
package sectionindex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"

	"github.com/dgallion1/docintel/internal/relevance"
)

// ErrEmptyQuery is returned by Search for a blank query.
var ErrEmptyQuery = errors.New("empty query")

const (
	batchSize      = 100
	defaultResults = 10
	maxResults     = 50
)

// Entry is the indexed form of one section.
type Entry struct {
	Document  string  `json:"document"`
	Title     string  `json:"title"`
	Page      int     `json:"page"`
	Level     int     `json:"level"`
	Relevance float64 `json:"relevance"`
	Content   string  `json:"content"`
}

// Hit is a search match.
type Hit struct {
	Entry
	Score float64 `json:"score"`
}

// Index wraps a memory-only bleve index.
type Index struct {
	index bleve.Index
}

// Build indexes every section. IDs follow the order of sections.
func Build(sections []relevance.Scored) (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	batch := idx.NewBatch()
	for i, s := range sections {
		e := Entry{
			Document:  s.Document,
			Title:     s.Title,
			Page:      s.Page,
			Level:     int(s.Level),
			Relevance: s.Score,
			Content:   s.Content,
		}
		if err := batch.Index(fmt.Sprintf("%06d", i), e); err != nil {
			idx.Close()
			return nil, fmt.Errorf("add section %d to batch: %w", i, err)
		}
		if batch.Size() >= batchSize {
			if err := idx.Batch(batch); err != nil {
				idx.Close()
				return nil, fmt.Errorf("index batch: %w", err)
			}
			batch = idx.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			idx.Close()
			return nil, fmt.Errorf("index final batch: %w", err)
		}
	}
	return &Index{index: idx}, nil
}

// Search runs a match query over titles and content and returns at most
// size hits (default 10, max 50) with the total number of matches.
func (x *Index) Search(q string, size int) ([]Hit, int, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, 0, ErrEmptyQuery
	}
	if size <= 0 || size > maxResults {
		size = defaultResults
	}

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(q))
	req.Size = size
	req.Fields = []string{"*"}
	res, err := x.index.Search(req)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{Score: h.Score}
		hit.Document, _ = h.Fields["document"].(string)
		hit.Title, _ = h.Fields["title"].(string)
		hit.Content, _ = h.Fields["content"].(string)
		if v, ok := h.Fields["page"].(float64); ok {
			hit.Page = int(v)
		}
		if v, ok := h.Fields["level"].(float64); ok {
			hit.Level = int(v)
		}
		hit.Relevance, _ = h.Fields["relevance"].(float64)
		hits = append(hits, hit)
	}
	return hits, int(res.Total), nil
}

// DocCount returns the number of indexed sections.
func (x *Index) DocCount() (uint64, error) {
	return x.index.DocCount()
}

// Close releases the index.
func (x *Index) Close() error {
	return x.index.Close()
}
