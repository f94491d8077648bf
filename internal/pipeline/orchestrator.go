package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docintel/internal/config"
	"github.com/dgallion1/docintel/internal/pathstore"
)

const cleanupInterval = 5 * time.Minute

// ErrStopped is returned by Submit once the orchestrator is shutting down.
var ErrStopped = errors.New("analysis queue stopped")

// Orchestrator queues analysis jobs and runs them on a worker pool.
type Orchestrator struct {
	cfg      config.Config
	analyzer *Analyzer
	sink     *pathstore.Client
	jobs     *JobStore
	stats    *LatencyStats
	log      *slog.Logger

	queue   chan *Job
	mu      sync.RWMutex // guards stopped and the queue close
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates the pipeline. sink may be nil when no result
// store is configured.
func NewOrchestrator(cfg config.Config, analyzer *Analyzer, sink *pathstore.Client, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		analyzer: analyzer,
		sink:     sink,
		jobs:     NewJobStore(cfg.JobTTL),
		stats:    NewLatencyStats(cfg.StatsWindow),
		log:      log,
		queue:    make(chan *Job, cfg.MaxQueueSize),
	}
}

// Start launches the workers and the job store janitor.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)
	for i := range o.cfg.WorkerCount {
		w := NewWorker(o.analyzer, o.sink, o.stats, o.log, o.cfg.MaxConcurrentStore)
		o.wg.Add(1)
		go o.runWorker(ctx, w, i)
	}
	o.wg.Add(1)
	go o.runJanitor(ctx)
	o.log.Info("pipeline started", "workers", o.cfg.WorkerCount, "queue_size", cap(o.queue))
}

func (o *Orchestrator) runWorker(ctx context.Context, w *Worker, id int) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-o.queue:
			if !ok {
				return
			}
			o.log.Debug("job picked up", "job_id", job.ID, "worker", id)
			w.Process(ctx, job)
		}
	}
}

func (o *Orchestrator) runJanitor(ctx context.Context) {
	defer o.wg.Done()
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := o.jobs.Cleanup(); n > 0 {
				o.log.Debug("expired jobs removed", "count", n)
			}
		}
	}
}

// Stop cancels running jobs and waits for the workers to exit. It is safe
// to call more than once.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit registers job and queues it. A full queue fails the job
// immediately; it stays visible so clients can read the reason.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return ErrStopped
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", cap(o.queue))
	}
}

func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// DeleteJob forgets a job and reports whether it existed.
func (o *Orchestrator) DeleteJob(id string) bool {
	return o.jobs.Delete(id)
}

func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the analysis latency statistics.
func (o *Orchestrator) Stats() *LatencyStats {
	return o.stats
}

// PathstoreClient returns the result sink, or nil when none is configured.
func (o *Orchestrator) PathstoreClient() *pathstore.Client {
	return o.sink
}
