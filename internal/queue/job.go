// Copyright 2025 James Ross
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marketintel/engine/internal/marketplace"
)

// Status is the job's closed state-machine variant. Terminal states are
// absorbing: Completed, Failed and Cancelled never transition further.
type Status string

const (
	Pending   Status = "pending"
	Running   Status = "running"
	Completed Status = "completed"
	Failed    Status = "failed"
	Cancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	switch s {
	case Completed, Failed, Cancelled:
		return true
	}
	return false
}

// MinPriority and MaxPriority bound the 1..10 dispatch scale; 10 drains first.
const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5
)

// ClampPriority applies intake's default/clamp rule: unset (0) becomes the
// default; out-of-range values are clamped into [MinPriority, MaxPriority].
func ClampPriority(p int) int {
	if p == 0 {
		return DefaultPriority
	}
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}

// Job is a bounded scraping task for a single (marketplace, query) pair.
type Job struct {
	ID          string                  `json:"id"`
	TenantID    string                  `json:"tenant_id"`
	Marketplace marketplace.Marketplace `json:"marketplace"`
	SearchQuery string                  `json:"search_query"`
	Category    string                  `json:"category,omitempty"`
	MaxPages    int                     `json:"max_pages"`
	Priority    int                     `json:"priority"`
	Status      Status                  `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	StartedAt   *time.Time              `json:"started_at,omitempty"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
	Error       string                  `json:"error,omitempty"`
}

// NewJob builds a fresh Pending job record. Priority is clamped per intake's rule.
func NewJob(tenantID string, mp marketplace.Marketplace, searchQuery, category string, maxPages, priority int) Job {
	return Job{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Marketplace: mp,
		SearchQuery: searchQuery,
		Category:    category,
		MaxPages:    maxPages,
		Priority:    ClampPriority(priority),
		Status:      Pending,
		CreatedAt:   time.Now().UTC(),
	}
}

func (j Job) Marshal() (string, error) {
	b, err := json.Marshal(j)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	return string(b), nil
}

func UnmarshalJob(s string) (Job, error) {
	var j Job
	if err := json.Unmarshal([]byte(s), &j); err != nil {
		return Job{}, fmt.Errorf("unmarshal job: %w", err)
	}
	return j, nil
}
