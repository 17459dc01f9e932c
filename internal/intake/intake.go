// Copyright 2025 James Ross
// Package intake validates and enqueues a scraping request, per §4.6.
package intake

import (
	"context"
	"fmt"

	"github.com/marketintel/engine/internal/marketplace"
	"github.com/marketintel/engine/internal/obs"
	"github.com/marketintel/engine/internal/queue"
)

// Request is the raw scraping request as received at the boundary, before
// validation or defaulting.
type Request struct {
	TenantID    string
	Marketplace string
	SearchQuery string
	Category    string
	MaxPages    int
	Priority    int
}

// Result carries back what the caller needs to report the request's outcome.
type Result struct {
	JobID  string
	Status queue.Status
}

// Intake validates a Request and enqueues it.
type Intake struct {
	store *queue.Store
}

func New(store *queue.Store) *Intake {
	return &Intake{store: store}
}

// Submit validates req per §4.6 and enqueues it. Priority is clamped
// rather than rejected; every other field is a hard validation error.
func (i *Intake) Submit(ctx context.Context, req Request) (Result, error) {
	if req.TenantID == "" {
		return Result{}, queue.NewError(queue.ValidationError, "tenant_id is required", nil)
	}

	mp := marketplace.Marketplace(req.Marketplace)
	if !mp.Valid() {
		return Result{}, queue.NewError(queue.ValidationError, fmt.Sprintf("unknown marketplace %q", req.Marketplace), nil)
	}

	if req.SearchQuery == "" {
		return Result{}, queue.NewError(queue.ValidationError, "search_query is required", nil)
	}

	if req.MaxPages < 1 {
		return Result{}, queue.NewError(queue.ValidationError, "max_pages must be >= 1", nil)
	}

	job := queue.NewJob(req.TenantID, mp, req.SearchQuery, req.Category, req.MaxPages, req.Priority)

	id, err := i.store.Enqueue(ctx, job)
	if err != nil {
		return Result{}, err
	}
	obs.JobsEnqueued.Inc()

	return Result{JobID: id, Status: job.Status}, nil
}
