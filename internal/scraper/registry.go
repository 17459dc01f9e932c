// Copyright 2025 James Ross
// Package scraper holds one driver per marketplace variant, a shared
// headless-browser session helper, and the circuit breaker that guards
// each driver across jobs, recording one outcome per Scrape call.
package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marketintel/engine/internal/breaker"
	"github.com/marketintel/engine/internal/marketplace"
	"github.com/marketintel/engine/internal/obs"
	"github.com/marketintel/engine/internal/queue"
	"go.uber.org/zap"
)

// Registry dispatches a ScrapingJob to its marketplace-specific driver.
type Registry struct {
	log         *zap.Logger
	proxyPool   *ProxyPool
	pageTimeout time.Duration

	breakerCfg CircuitBreakerConfig

	mu       sync.Mutex
	breakers map[marketplace.Marketplace]*breaker.CircuitBreaker
}

// CircuitBreakerConfig configures the per-driver breaker the registry
// builds lazily for each marketplace it dispatches to.
type CircuitBreakerConfig struct {
	Window           time.Duration
	Cooldown         time.Duration
	FailureThreshold float64
	MinSamples       int
}

func NewRegistry(log *zap.Logger, proxyPool *ProxyPool, pageTimeout time.Duration, cfg CircuitBreakerConfig) *Registry {
	return &Registry{
		log:         log,
		proxyPool:   proxyPool,
		pageTimeout: pageTimeout,
		breakerCfg:  cfg,
		breakers:    make(map[marketplace.Marketplace]*breaker.CircuitBreaker),
	}
}

func (r *Registry) breakerFor(mp marketplace.Marketplace) *breaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[mp]
	if !ok {
		cb = breaker.New(r.breakerCfg.Window, r.breakerCfg.Cooldown, r.breakerCfg.FailureThreshold, r.breakerCfg.MinSamples)
		r.breakers[mp] = cb
	}
	return cb
}

// Scrape dispatches on job.Marketplace and returns the normalized product
// list. Unimplemented marketplaces return an empty list without error,
// per §4.2.
func (r *Registry) Scrape(ctx context.Context, job queue.Job) ([]queue.ScrapedProduct, error) {
	cb := r.breakerFor(job.Marketplace)
	if !cb.Allow() {
		return nil, wrapDriverError(fmt.Sprintf("circuit open for %s", job.Marketplace), nil)
	}

	var proxy *ProxyConfig
	if r.proxyPool != nil {
		if p, ok := r.proxyPool.Next(); ok {
			proxy = &p
		}
	}

	session, err := NewSession(ctx, proxy)
	if err != nil {
		r.recordOutcome(cb, job.Marketplace, false)
		return nil, err
	}
	defer session.Close()

	d := r.driverFor(job.Marketplace)
	products, err := d(ctx, session, job, r.pageTimeout, r.log)
	r.recordOutcome(cb, job.Marketplace, err == nil)

	return products, err
}

// recordOutcome feeds the driver's result into its breaker and publishes
// the resulting state, counting a trip whenever the breaker newly opens.
func (r *Registry) recordOutcome(cb *breaker.CircuitBreaker, mp marketplace.Marketplace, ok bool) {
	stateBefore := cb.State()
	cb.Record(ok)
	stateAfter := cb.State()

	obs.CircuitBreakerState.WithLabelValues(string(mp)).Set(float64(stateAfter))
	if stateAfter == breaker.Open && stateBefore != breaker.Open {
		obs.CircuitBreakerTrips.WithLabelValues(string(mp)).Inc()
	}
}

type driverFunc func(ctx context.Context, session *Session, job queue.Job, pageTimeout time.Duration, log *zap.Logger) ([]queue.ScrapedProduct, error)

func (r *Registry) driverFor(mp marketplace.Marketplace) driverFunc {
	switch mp {
	case marketplace.AmazonBR:
		return scrapeAmazon
	case marketplace.MercadoLivre:
		return scrapeMercadoLivre
	case marketplace.Americanas, marketplace.Magalu, marketplace.Shopee, marketplace.AliExpress:
		return scrapeUnimplemented
	default:
		return scrapeUnimplemented
	}
}

// scrapeUnimplemented backs the documented placeholder marketplaces from
// §4.2: they return an empty list without error.
func scrapeUnimplemented(_ context.Context, _ *Session, job queue.Job, _ time.Duration, log *zap.Logger) ([]queue.ScrapedProduct, error) {
	log.Warn("scraper not implemented for marketplace", obs.String("marketplace", string(job.Marketplace)))
	return nil, nil
}
