// Copyright 2025 James Ross
// Package worker implements the single-loop bounded-concurrency dispatcher
// described in §4.5: one goroutine scans priority lists 10 down to 1,
// admits jobs into a bounded in-flight set, and lets each job run to
// completion in its own goroutine.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/marketintel/engine/internal/analyzer"
	"github.com/marketintel/engine/internal/obs"
	"github.com/marketintel/engine/internal/queue"
	"go.uber.org/zap"
)

// Scraper dispatches a job to its marketplace driver. *scraper.Registry
// satisfies this implicitly; tests substitute a fake to avoid spinning up
// a real headless browser.
type Scraper interface {
	Scrape(ctx context.Context, job queue.Job) ([]queue.ScrapedProduct, error)
}

// Worker drains the priority queue with a bounded number of jobs running
// concurrently. It never cancels an in-flight job on shutdown; Run only
// stops admitting new work and waits for what is already running.
type Worker struct {
	store       *queue.Store
	registry    Scraper
	log         *zap.Logger
	maxInFlight int
	idleSleep   time.Duration
	atCapSleep  time.Duration

	mu       sync.Mutex
	inFlight int
	wg       sync.WaitGroup
}

func New(store *queue.Store, registry Scraper, log *zap.Logger, maxInFlight int, idleSleep, atCapSleep time.Duration) *Worker {
	return &Worker{
		store:       store,
		registry:    registry,
		log:         log,
		maxInFlight: maxInFlight,
		idleSleep:   idleSleep,
		atCapSleep:  atCapSleep,
	}
}

// Run scans priorities 10..1 for work until ctx is cancelled, then waits
// for all admitted jobs to finish before returning. Admission never
// preempts or cancels a running job; it is advisory only (§5).
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker loop stopping, draining in-flight jobs")
			w.wg.Wait()
			w.log.Info("worker loop drained")
			return
		default:
		}

		if w.atCapacity() {
			obs.InFlightJobs.Set(float64(w.currentInFlight()))
			sleep(ctx, w.atCapSleep)
			continue
		}

		job, found, err := w.claimNext(ctx)
		if err != nil {
			w.log.Error("dequeue failed", obs.Err(err))
			sleep(ctx, w.idleSleep)
			continue
		}
		if !found {
			sleep(ctx, w.idleSleep)
			continue
		}

		w.admit(ctx, job)
	}
}

// claimNext scans priority 10 down to 1 and pops the first non-empty list.
func (w *Worker) claimNext(ctx context.Context) (queue.Job, bool, error) {
	for p := queue.MaxPriority; p >= queue.MinPriority; p-- {
		job, ok, err := w.store.Dequeue(ctx, p)
		if err != nil {
			return queue.Job{}, false, err
		}
		if ok {
			return job, true, nil
		}
	}
	return queue.Job{}, false, nil
}

func (w *Worker) atCapacity() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inFlight >= w.maxInFlight
}

func (w *Worker) currentInFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inFlight
}

func (w *Worker) admit(ctx context.Context, job queue.Job) {
	w.mu.Lock()
	w.inFlight++
	obs.InFlightJobs.Set(float64(w.inFlight))
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			w.inFlight--
			obs.InFlightJobs.Set(float64(w.inFlight))
			w.mu.Unlock()
		}()
		w.process(context.WithoutCancel(ctx), job)
	}()
}

// process runs one job end to end: Running status, driver dispatch,
// persisted results, a best-effort trend analysis, and the terminal
// Completed/Failed status. A job cancelled while still queued is caught
// here before admission does any work; once Running, cancellation is
// advisory only (§5) and the job is left to complete or fail as usual.
func (w *Worker) process(ctx context.Context, job queue.Job) {
	started := time.Now()
	log := w.log.With(obs.String("job_id", job.ID), obs.String("marketplace", string(job.Marketplace)))

	if status, err := w.store.GetStatus(ctx, job.ID); err == nil && status == queue.Cancelled {
		log.Info("skipping cancelled job")
		return
	}

	if err := w.store.UpdateStatus(ctx, job.ID, queue.Running, ""); err != nil {
		log.Error("mark running failed", obs.Err(err))
		return
	}

	products, err := w.registry.Scrape(ctx, job)
	if err != nil {
		obs.JobsFailed.Inc()
		if uerr := w.store.UpdateStatus(ctx, job.ID, queue.Failed, err.Error()); uerr != nil {
			log.Error("mark failed failed", obs.Err(uerr))
		}
		obs.JobProcessingDuration.Observe(time.Since(started).Seconds())
		log.Warn("job failed", obs.Err(err))
		return
	}

	if err := w.store.SaveResults(ctx, job.ID, products); err != nil {
		obs.JobsFailed.Inc()
		if uerr := w.store.UpdateStatus(ctx, job.ID, queue.Failed, err.Error()); uerr != nil {
			log.Error("mark failed failed", obs.Err(uerr))
		}
		obs.JobProcessingDuration.Observe(time.Since(started).Seconds())
		log.Error("save results failed", obs.Err(err))
		return
	}

	if err := w.store.UpdateStatus(ctx, job.ID, queue.Completed, ""); err != nil {
		log.Error("mark completed failed", obs.Err(err))
		return
	}

	obs.ProductsScraped.WithLabelValues(string(job.Marketplace)).Add(float64(len(products)))
	obs.JobsCompleted.Inc()
	obs.JobProcessingDuration.Observe(time.Since(started).Seconds())

	// Trend analysis is a pure derived view, not part of the job record;
	// computing it here just exercises the path and logs the summary.
	// Callers needing the analysis fetch it again from /trends on demand.
	trend := analyzer.Analyze(job.Marketplace, job.Category, products)
	log.Info("job completed",
		obs.Int("products", len(products)),
		obs.String("competition_level", string(trend.CompetitionLevel)))
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
