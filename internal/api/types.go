// Copyright 2025 James Ross
package api

import "time"

// Response is the uniform envelope every endpoint returns, per §6.
type Response[T any] struct {
	Success   bool      `json:"success"`
	Data      *T        `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func ok[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: &data, Timestamp: time.Now().UTC()}
}

func errResponse(msg string) Response[struct{}] {
	return Response[struct{}]{Success: false, Error: msg, Timestamp: time.Now().UTC()}
}

// SubmitJobRequest is the POST /api/v1/market-intelligence/jobs request body.
type SubmitJobRequest struct {
	Marketplace string `json:"marketplace"`
	SearchQuery string `json:"search_query"`
	Category    string `json:"category,omitempty"`
	MaxPages    int    `json:"max_pages"`
	Priority    int    `json:"priority,omitempty"`
}

// SubmitJobResponse is the POST /api/v1/market-intelligence/jobs success payload.
type SubmitJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobStatusResponse is the GET /api/v1/market-intelligence/jobs/{id}/status payload.
type JobStatusResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is the GET /api/v1/market-intelligence/health payload.
type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}
