// Copyright 2025 James Ross
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/marketintel/engine/internal/marketplace"
	"github.com/marketintel/engine/internal/obs"
	"github.com/marketintel/engine/internal/queue"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// blockingScraper holds every Scrape call open until released, so tests can
// observe the in-flight concurrency cap directly.
type blockingScraper struct {
	release chan struct{}

	mu      sync.Mutex
	inFlown int
	maxSeen int
}

func (b *blockingScraper) Scrape(ctx context.Context, job queue.Job) ([]queue.ScrapedProduct, error) {
	b.mu.Lock()
	b.inFlown++
	if b.inFlown > b.maxSeen {
		b.maxSeen = b.inFlown
	}
	b.mu.Unlock()

	select {
	case <-b.release:
	case <-ctx.Done():
	}

	b.mu.Lock()
	b.inFlown--
	b.mu.Unlock()

	return []queue.ScrapedProduct{queue.NewScrapedProduct(job.ID, job.Marketplace)}, nil
}

func newTestWorkerStore(t *testing.T) *queue.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return queue.NewStore(rdb)
}

func TestWorkerRespectsInFlightCap(t *testing.T) {
	store := newTestWorkerStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 5; i++ {
		job := queue.NewJob("tenant-1", marketplace.Magalu, "fone de ouvido", "", 1, queue.DefaultPriority)
		_, err := store.Enqueue(ctx, job)
		require.NoError(t, err)
	}

	scr := &blockingScraper{release: make(chan struct{})}
	w := New(store, scr, zap.NewNop(), 2, 5*time.Millisecond, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		scr.mu.Lock()
		defer scr.mu.Unlock()
		return scr.maxSeen >= 2
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	scr.mu.Lock()
	maxSeen := scr.maxSeen
	scr.mu.Unlock()
	assert.LessOrEqual(t, maxSeen, 2, "worker must never admit more than maxInFlight jobs")

	close(scr.release)
	cancel()
	<-done
}

func TestWorkerDrainsPriorityHighestFirst(t *testing.T) {
	store := newTestWorkerStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	low := queue.NewJob("tenant-1", marketplace.Magalu, "low", "", 1, 2)
	high := queue.NewJob("tenant-1", marketplace.Magalu, "high", "", 1, 9)
	_, err := store.Enqueue(ctx, low)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, high)
	require.NoError(t, err)

	var order []string
	var mu sync.Mutex
	scr := &orderTrackingScraper{onScrape: func(job queue.Job) {
		mu.Lock()
		order = append(order, job.SearchQuery)
		mu.Unlock()
	}}
	w := New(store, scr, zap.NewNop(), 1, 5*time.Millisecond, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 2)
	assert.Equal(t, "high", order[0])
	assert.Equal(t, "low", order[1])
}

type orderTrackingScraper struct {
	onScrape func(job queue.Job)
	calls    int32
}

func (o *orderTrackingScraper) Scrape(ctx context.Context, job queue.Job) ([]queue.ScrapedProduct, error) {
	atomic.AddInt32(&o.calls, 1)
	o.onScrape(job)
	return nil, nil
}

func TestWorkerMarksJobCompletedOnSuccess(t *testing.T) {
	store := newTestWorkerStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	job := queue.NewJob("tenant-1", marketplace.Magalu, "notebook", "", 1, queue.DefaultPriority)
	_, err := store.Enqueue(ctx, job)
	require.NoError(t, err)

	scr := &blockingScraper{release: make(chan struct{})}
	close(scr.release)
	w := New(store, scr, zap.NewNop(), 1, 5*time.Millisecond, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		status, err := store.GetStatus(ctx, job.ID)
		return err == nil && status == queue.Completed
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	obs.InFlightJobs.Set(0)
}

func TestWorkerSkipsJobCancelledBeforeAdmission(t *testing.T) {
	store := newTestWorkerStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	job := queue.NewJob("tenant-1", marketplace.Magalu, "notebook", "", 1, queue.DefaultPriority)
	_, err := store.Enqueue(ctx, job)
	require.NoError(t, err)
	require.NoError(t, store.Cancel(ctx, job.ID))

	scr := &orderTrackingScraper{onScrape: func(queue.Job) {}}
	w := New(store, scr, zap.NewNop(), 1, 5*time.Millisecond, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(40 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(0), atomic.LoadInt32(&scr.calls))
	status, err := store.GetStatus(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.Cancelled, status)
}
