// Copyright 2025 James Ross
package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the durable priority queue contract from spec §4.1, backed by
// Redis list/hash primitives. Persistence survives process restart; there
// is deliberately no in-memory-only implementation.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func jobKey(id string) string { return fmt.Sprintf("job:%s", id) }

func priorityKey(p int) string { return fmt.Sprintf("queue:priority:%d", p) }

// Enqueue persists the full job record under job:{id} then appends the id
// to the priority list. A second enqueue of the same id is a ValidationError.
func (s *Store) Enqueue(ctx context.Context, job Job) (string, error) {
	key := jobKey(job.ID)

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return "", NewError(StoreError, "check existing job", err)
	}
	if exists == 1 {
		return "", ErrAlreadyEnqueued
	}

	data, err := job.Marshal()
	if err != nil {
		return "", NewError(Internal, "marshal job", err)
	}

	if err := s.rdb.HSet(ctx, key, map[string]interface{}{
		"data":          data,
		"status":        string(job.Status),
		"results":       "",
		"results_count": "0",
	}).Err(); err != nil {
		return "", NewError(StoreError, "persist job record", err)
	}

	if err := s.rdb.LPush(ctx, priorityKey(job.Priority), job.ID).Err(); err != nil {
		return "", NewError(StoreError, "push priority list", err)
	}

	return job.ID, nil
}

// Dequeue pops one job id from the tail of the given priority's list (FIFO
// within that priority) and hydrates the full job record. Returns
// (Job{}, false, nil) when the priority list is empty.
func (s *Store) Dequeue(ctx context.Context, priority int) (Job, bool, error) {
	id, err := s.rdb.RPop(ctx, priorityKey(priority)).Result()
	if err == redis.Nil {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, NewError(StoreError, "pop priority list", err)
	}

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return Job{}, false, err
	}
	return job, true, nil
}

// GetJob hydrates the full job record from its hash.
func (s *Store) GetJob(ctx context.Context, id string) (Job, error) {
	data, err := s.rdb.HGet(ctx, jobKey(id), "data").Result()
	if err == redis.Nil {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, NewError(StoreError, "read job record", err)
	}
	job, err := UnmarshalJob(data)
	if err != nil {
		return Job{}, NewError(ParseError, "decode job record", err)
	}
	return job, nil
}

// GetStatus returns the current status without hydrating the full record.
func (s *Store) GetStatus(ctx context.Context, id string) (Status, error) {
	v, err := s.rdb.HGet(ctx, jobKey(id), "status").Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", NewError(StoreError, "read job status", err)
	}
	return Status(v), nil
}

// UpdateStatus rewrites the job record with the new status, never losing
// other fields, and stamps started_at/completed_at as the state machine
// requires. A job already in a terminal state is left unchanged.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status, jobErr string) error {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return nil
	}

	now := time.Now().UTC()
	job.Status = status
	if jobErr != "" {
		job.Error = jobErr
	}
	switch status {
	case Running:
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
	case Completed, Failed, Cancelled:
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
		job.CompletedAt = &now
	}

	data, err := job.Marshal()
	if err != nil {
		return NewError(Internal, "marshal job", err)
	}

	if err := s.rdb.HSet(ctx, jobKey(id), map[string]interface{}{
		"data":   data,
		"status": string(job.Status),
	}).Err(); err != nil {
		return NewError(StoreError, "update job status", err)
	}
	return nil
}

// SaveResults writes the serialized product list and its count atomically
// with respect to readers: both fields land in a single HSet call, so a
// reader that sees the updated count also sees the updated results.
func (s *Store) SaveResults(ctx context.Context, id string, products []ScrapedProduct) error {
	data, err := MarshalProducts(products)
	if err != nil {
		return NewError(Internal, "marshal results", err)
	}
	if err := s.rdb.HSet(ctx, jobKey(id), map[string]interface{}{
		"results":       data,
		"results_count": strconv.Itoa(len(products)),
	}).Err(); err != nil {
		return NewError(StoreError, "save results", err)
	}
	return nil
}

// GetResults reads back the persisted product list for a job.
func (s *Store) GetResults(ctx context.Context, id string) ([]ScrapedProduct, error) {
	data, err := s.rdb.HGet(ctx, jobKey(id), "results").Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewError(StoreError, "read results", err)
	}
	products, err := UnmarshalProducts(data)
	if err != nil {
		return nil, NewError(ParseError, "decode results", err)
	}
	return products, nil
}

// Cancel transitions a Pending job to Cancelled synchronously. For a
// Running job the cancellation is advisory only (per §5) and this just
// records the flag; the worker is not required to abort mid-page.
func (s *Store) Cancel(ctx context.Context, id string) error {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return nil
	}
	return s.UpdateStatus(ctx, id, Cancelled, "")
}
