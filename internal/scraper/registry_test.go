// Copyright 2025 James Ross
package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/marketintel/engine/internal/breaker"
	"github.com/marketintel/engine/internal/marketplace"
	"github.com/marketintel/engine/internal/obs"
	"github.com/marketintel/engine/internal/queue"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestRegistry() *Registry {
	return NewRegistry(zap.NewNop(), nil, time.Second, CircuitBreakerConfig{
		Window:           time.Minute,
		Cooldown:         time.Minute,
		FailureThreshold: 0.5,
		MinSamples:       2,
	})
}

// TestRecordOutcomeTripsBreakerOnFailureRate drives enough failures through
// recordOutcome to cross the configured threshold and asserts the trip
// counter fires exactly once, on the transition into Open, not on every
// subsequent failure while it stays Open.
func TestRecordOutcomeTripsBreakerOnFailureRate(t *testing.T) {
	r := newTestRegistry()
	mp := marketplace.AmazonBR
	cb := r.breakerFor(mp)

	before := testutil.ToFloat64(obs.CircuitBreakerTrips.WithLabelValues(string(mp)))

	r.recordOutcome(cb, mp, false)
	r.recordOutcome(cb, mp, false)
	assert.Equal(t, breaker.Open, cb.State())

	r.recordOutcome(cb, mp, false)
	assert.Equal(t, breaker.Open, cb.State())

	after := testutil.ToFloat64(obs.CircuitBreakerTrips.WithLabelValues(string(mp)))
	assert.Equal(t, before+1, after)
	assert.Equal(t, float64(breaker.Open), testutil.ToFloat64(obs.CircuitBreakerState.WithLabelValues(string(mp))))
}

// TestRecordOutcomeDoesNotTripOnSuccess confirms a clean run of successes
// never counts as a trip and leaves the breaker Closed.
func TestRecordOutcomeDoesNotTripOnSuccess(t *testing.T) {
	r := newTestRegistry()
	mp := marketplace.MercadoLivre
	cb := r.breakerFor(mp)

	before := testutil.ToFloat64(obs.CircuitBreakerTrips.WithLabelValues(string(mp)))

	r.recordOutcome(cb, mp, true)
	r.recordOutcome(cb, mp, true)

	assert.Equal(t, breaker.Closed, cb.State())
	assert.Equal(t, before, testutil.ToFloat64(obs.CircuitBreakerTrips.WithLabelValues(string(mp))))
}

// TestScrapeReturnsDriverErrorWhenBreakerOpen confirms Scrape itself refuses
// to dispatch once its marketplace's breaker has tripped open, instead of
// only the lower-level recordOutcome helper behaving correctly in isolation.
func TestScrapeReturnsDriverErrorWhenBreakerOpen(t *testing.T) {
	r := newTestRegistry()
	mp := marketplace.Shopee
	cb := r.breakerFor(mp)
	cb.Record(false)
	cb.Record(false)
	assert.Equal(t, breaker.Open, cb.State())

	job := queue.Job{ID: "job-1", Marketplace: mp}
	_, err := r.Scrape(context.Background(), job)
	assert.Error(t, err)
	assert.Equal(t, queue.DriverError, queue.KindOf(err))
}
