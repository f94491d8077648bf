package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgallion1/docintel/internal/pathstore"
	"github.com/dgallion1/docintel/internal/sectionindex"
)

// Worker processes analysis jobs.
type Worker struct {
	analyzer  *Analyzer
	pathstore *pathstore.Client // nil disables the result sink
	stats     *LatencyStats
	log       *slog.Logger

	maxConcurrentStore int
}

func NewWorker(analyzer *Analyzer, ps *pathstore.Client, stats *LatencyStats, log *slog.Logger, maxStore int) *Worker {
	if maxStore <= 0 {
		maxStore = 1
	}
	return &Worker{
		analyzer:           analyzer,
		pathstore:          ps,
		stats:              stats,
		log:                log,
		maxConcurrentStore: maxStore,
	}
}

// Process runs analysis, indexing and storage for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	inputs := job.Inputs()

	hashes := make(map[string]string, len(inputs))
	for _, in := range inputs {
		if in.Data != nil {
			hashes[in.Name] = ContentHashHex(in.Data)
		}
	}

	// Phase 1: Analyze
	job.SetStatus(StatusAnalyzing, "analyzing")
	start := time.Now()
	res, err := w.analyzer.Analyze(ctx, inputs, job.Persona, job.JobToBeDone)
	if err != nil {
		log.Error("analysis aborted", "error", err)
		job.AddError(fmt.Sprintf("analyze: %s", err))
		job.SetStatus(StatusFailed, "analyzing")
		return
	}
	if w.stats != nil {
		w.stats.Record(time.Since(start), len(inputs))
	}
	job.SetResult(res)

	parsed := 0
	hadErrors := false
	for _, d := range res.Documents {
		if d.Status == DocParsed {
			parsed++
			continue
		}
		job.AddError(fmt.Sprintf("%s: %s", d.Name, d.Reason))
		hadErrors = true
	}
	if parsed == 0 {
		log.Warn("no documents could be parsed", "documents", len(inputs))
		job.SetStatus(StatusFailed, "analyzing")
		return
	}
	log.Info("analysis complete",
		"parsed", parsed,
		"sections", len(res.ExtractedSections),
		"subsections", len(res.SubsectionAnalysis),
	)

	// Phase 2: Index
	job.SetStatus(StatusIndexing, "indexing")
	idx, err := sectionindex.Build(res.Scored)
	if err != nil {
		log.Error("index build failed", "error", err)
		job.AddError(fmt.Sprintf("index: %s", err))
		hadErrors = true
	} else if !job.SetIndex(idx) {
		log.Info("job deleted during analysis, skipping storage")
		return
	}

	// Phase 3: Store
	if w.pathstore != nil {
		job.SetStatus(StatusStoring, "storing")
		stored, failed := w.store(ctx, log, job, res, hashes)
		job.AddStored(stored)
		if failed > 0 {
			hadErrors = true
		}
		log.Info("storage complete", "stored", stored, "failed", failed)
	}

	if hadErrors {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

// storeNode is one pending pathstore write.
type storeNode struct {
	key string
	req pathstore.NodeRequest
}

// store writes the result under analyses/{jobID} and links every insight to
// its ranked section. It returns the number of written and failed nodes.
func (w *Worker) store(ctx context.Context, log *slog.Logger, job *Job, res *Result, hashes map[string]string) (int, int) {
	source := "docintel:" + job.ID
	nodes := []storeNode{{
		key: pathstore.AnalysisKey(job.ID, "meta"),
		req: pathstore.NodeRequest{
			Value: map[string]any{
				"input_documents":      res.Metadata.InputDocuments,
				"persona":              res.Metadata.Persona,
				"job_to_be_done":       res.Metadata.JobToBeDone,
				"processing_timestamp": res.Metadata.ProcessingTimestamp,
				"created_at":           job.CreatedAt.Format(time.RFC3339),
			},
			MemoryType: "metacognitive",
			Salience:   0.5,
			Source:     source,
		},
	}}
	for _, d := range res.Documents {
		slug := pathstore.Slugify(d.Name)
		if slug == "" {
			slug = "unnamed"
		}
		nodes = append(nodes, storeNode{
			key: pathstore.AnalysisKey(job.ID, "documents", slug),
			req: pathstore.NodeRequest{
				Value: map[string]any{
					"document":     d.Name,
					"status":       d.Status,
					"reason":       d.Reason,
					"title":        d.Title,
					"pages":        d.Pages,
					"sections":     d.Sections,
					"content_hash": hashes[d.Name],
				},
				MemoryType: "metacognitive",
				Salience:   0.1,
				Source:     source,
			},
		})
	}

	sectionKeys := make(map[string]string, len(res.ExtractedSections))
	for _, s := range res.ExtractedSections {
		key := pathstore.AnalysisKey(job.ID, "sections", strconv.Itoa(s.ImportanceRank))
		sectionKeys[sectionRef(s.Document, s.SectionTitle, s.PageNumber)] = key
		nodes = append(nodes, storeNode{
			key: key,
			req: pathstore.NodeRequest{
				Value:      s,
				MemoryType: "semantic",
				Salience:   1 / float64(s.ImportanceRank),
				Source:     source,
			},
		})
	}
	var links []pathstore.LinkRequest
	for i, s := range res.SubsectionAnalysis {
		key := pathstore.AnalysisKey(job.ID, "insights", strconv.Itoa(i+1))
		nodes = append(nodes, storeNode{
			key: key,
			req: pathstore.NodeRequest{
				Value:      s,
				MemoryType: "semantic",
				Salience:   s.RelevanceScore,
				Source:     source,
			},
		})
		if sk, ok := sectionKeys[sectionRef(s.Document, s.SectionTitle, s.PageNumber)]; ok {
			links = append(links, pathstore.LinkRequest{
				From:    sk,
				To:      key,
				Weight:  s.RelevanceScore,
				Summary: "insight",
			})
		}
	}

	type storeResult struct {
		key string
		err error
	}
	results := make(chan storeResult, len(nodes))
	sem := make(chan struct{}, w.maxConcurrentStore)
	for _, n := range nodes {
		sem <- struct{}{}
		go func(n storeNode) {
			defer func() { <-sem }()
			err := withRetry(ctx, log, n.key, func() error {
				return w.pathstore.PutNode(ctx, n.key, n.req)
			})
			results <- storeResult{key: n.key, err: err}
		}(n)
	}

	stored, failed := 0, 0
	for range nodes {
		r := <-results
		if r.err != nil {
			log.Error("store failed", "key", r.key, "error", r.err)
			job.AddError(fmt.Sprintf("store %s: %s", r.key, r.err))
			failed++
			continue
		}
		stored++
	}

	// Links reference stored nodes, so they are written last.
	for _, l := range links {
		if err := w.pathstore.PutLink(ctx, l); err != nil {
			log.Warn("link write failed", "from", l.From, "to", l.To, "error", err)
		}
	}
	return stored, failed
}

func sectionRef(doc, title string, page int) string {
	return fmt.Sprintf("%s\x00%s\x00%d", doc, title, page)
}
