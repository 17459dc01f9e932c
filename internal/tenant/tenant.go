// Copyright 2025 James Ross
// Package tenant models the boundary spec.md §1 names an external
// collaborator: tenant identity extraction from bearer tokens. Only the
// interface the core consumes is specified; the header-based
// implementation stands in so the HTTP surface is runnable end-to-end
// without a real auth stack.
package tenant

import (
	"fmt"
	"net/http"
)

// Resolver extracts an opaque tenant identifier from an inbound request.
// The core does not interpret the identifier beyond scoping data by it.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// ErrMissingTenant is returned when the request carries no resolvable
// tenant identity.
var ErrMissingTenant = fmt.Errorf("tenant: no tenant identity on request")

const headerName = "X-Tenant-ID"

// HeaderResolver reads the tenant id from a request header. It stands in
// for the real bearer-token resolver named out of scope in spec.md §1.
type HeaderResolver struct{}

func NewHeaderResolver() HeaderResolver { return HeaderResolver{} }

func (HeaderResolver) Resolve(r *http.Request) (string, error) {
	id := r.Header.Get(headerName)
	if id == "" {
		return "", ErrMissingTenant
	}
	return id, nil
}
