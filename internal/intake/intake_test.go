// Copyright 2025 James Ross
package intake

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/marketintel/engine/internal/queue"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIntake(t *testing.T) *Intake {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(queue.NewStore(rdb))
}

func TestSubmitValidRequestEnqueues(t *testing.T) {
	in := newTestIntake(t)

	result, err := in.Submit(context.Background(), Request{
		TenantID:    "tenant-1",
		Marketplace: "amazon_br",
		SearchQuery: "fone de ouvido bluetooth",
		MaxPages:    3,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.JobID)
	assert.Equal(t, queue.Pending, result.Status)
}

func TestSubmitRejectsUnknownMarketplace(t *testing.T) {
	in := newTestIntake(t)

	_, err := in.Submit(context.Background(), Request{
		TenantID:    "tenant-1",
		Marketplace: "ebay",
		SearchQuery: "x",
		MaxPages:    1,
	})

	require.Error(t, err)
	assert.Equal(t, queue.ValidationError, queue.KindOf(err))
}

func TestSubmitRejectsMissingSearchQuery(t *testing.T) {
	in := newTestIntake(t)

	_, err := in.Submit(context.Background(), Request{
		TenantID:    "tenant-1",
		Marketplace: "amazon_br",
		MaxPages:    1,
	})

	require.Error(t, err)
	assert.Equal(t, queue.ValidationError, queue.KindOf(err))
}

func TestSubmitClampsOutOfRangePriority(t *testing.T) {
	in := newTestIntake(t)

	result, err := in.Submit(context.Background(), Request{
		TenantID:    "tenant-1",
		Marketplace: "amazon_br",
		SearchQuery: "x",
		MaxPages:    1,
		Priority:    99,
	})

	require.NoError(t, err)
	job, err := newStoreFromResult(t, in, result.JobID)
	require.NoError(t, err)
	assert.Equal(t, queue.MaxPriority, job.Priority)
}

func newStoreFromResult(t *testing.T, in *Intake, jobID string) (queue.Job, error) {
	t.Helper()
	return in.store.GetJob(context.Background(), jobID)
}
