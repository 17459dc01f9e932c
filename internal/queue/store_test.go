// Copyright 2025 James Ross
package queue

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/marketintel/engine/internal/marketplace"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), mr
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	job := NewJob("tenant-1", marketplace.Magalu, "notebook", "", 1, DefaultPriority)
	id, err := store.Enqueue(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, job.ID, id)

	got, ok, err := store.Dequeue(ctx, DefaultPriority)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, Pending, got.Status)

	_, ok, err = store.Dequeue(ctx, DefaultPriority)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnqueueDuplicateIsError(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	job := NewJob("tenant-1", marketplace.Magalu, "notebook", "", 1, DefaultPriority)
	_, err := store.Enqueue(ctx, job)
	require.NoError(t, err)

	_, err = store.Enqueue(ctx, job)
	require.Error(t, err)
	assert.Equal(t, ValidationError, KindOf(err))
}

func TestPriorityOrdering(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	low := NewJob("t", marketplace.Magalu, "q", "", 1, 1)
	mid := NewJob("t", marketplace.Magalu, "q", "", 1, 5)
	high := NewJob("t", marketplace.Magalu, "q", "", 1, 10)

	for _, j := range []Job{low, mid, high} {
		_, err := store.Enqueue(ctx, j)
		require.NoError(t, err)
	}

	// The scheduler scans priorities 10..1; highest non-empty priority wins.
	got, ok, err := store.Dequeue(ctx, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, high.ID, got.ID)
}

func TestFIFOWithinPriority(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	a := NewJob("t", marketplace.Magalu, "a", "", 1, 5)
	b := NewJob("t", marketplace.Magalu, "b", "", 1, 5)

	_, err := store.Enqueue(ctx, a)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, b)
	require.NoError(t, err)

	got1, ok, err := store.Dequeue(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a.ID, got1.ID)

	got2, ok, err := store.Dequeue(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, b.ID, got2.ID)
}

func TestUpdateStatusPreservesFields(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	job := NewJob("tenant-9", marketplace.AmazonBR, "q", "cat", 3, 4)
	_, err := store.Enqueue(ctx, job)
	require.NoError(t, err)

	require.NoError(t, store.UpdateStatus(ctx, job.ID, Running, ""))
	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, Running, got.Status)
	assert.NotNil(t, got.StartedAt)
	assert.Equal(t, "tenant-9", got.TenantID)
	assert.Equal(t, "cat", got.Category)

	require.NoError(t, store.UpdateStatus(ctx, job.ID, Failed, "boom"))
	got, err = store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, Failed, got.Status)
	assert.Equal(t, "boom", got.Error)
	assert.NotNil(t, got.CompletedAt)
}

func TestSaveResultsAtomicWithCount(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	job := NewJob("t", marketplace.AmazonBR, "q", "", 1, 5)
	_, err := store.Enqueue(ctx, job)
	require.NoError(t, err)

	p := NewScrapedProduct(job.ID, marketplace.AmazonBR)
	p.Title = "Widget"
	p.Price = 19.9
	p.URL = "https://example.com/w"

	require.NoError(t, store.SaveResults(ctx, job.ID, []ScrapedProduct{p}))

	results, err := store.GetResults(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, p.Title, results[0].Title)
	assert.Equal(t, "1", mr.HGet(jobKey(job.ID), "results_count"))
}

func TestGetStatusNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.GetStatus(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, NotFound, KindOf(err))
}

func TestCancelPendingJob(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	job := NewJob("t", marketplace.Shopee, "q", "", 1, 5)
	_, err := store.Enqueue(ctx, job)
	require.NoError(t, err)

	require.NoError(t, store.Cancel(ctx, job.ID))
	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, got.Status)
}
