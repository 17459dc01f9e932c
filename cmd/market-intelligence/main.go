// Copyright 2025 James Ross
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marketintel/engine/internal/api"
	"github.com/marketintel/engine/internal/catalog"
	"github.com/marketintel/engine/internal/config"
	"github.com/marketintel/engine/internal/intake"
	"github.com/marketintel/engine/internal/obs"
	"github.com/marketintel/engine/internal/queue"
	"github.com/marketintel/engine/internal/redisclient"
	"github.com/marketintel/engine/internal/scraper"
	"github.com/marketintel/engine/internal/tenant"
	"github.com/marketintel/engine/internal/worker"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	var role string
	var configPath string
	var showVersion bool
	var intakeTenant, intakeMarketplace, intakeQuery, intakeCategory string
	var intakeMaxPages, intakePriority int
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&role, "role", "all", "Role to run: intake|worker|api|all")
	fs.StringVar(&configPath, "config", "config/config.yaml", "Path to YAML config")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.StringVar(&intakeTenant, "tenant", "", "Intake: tenant id")
	fs.StringVar(&intakeMarketplace, "marketplace", "", "Intake: marketplace code")
	fs.StringVar(&intakeQuery, "query", "", "Intake: search query")
	fs.StringVar(&intakeCategory, "category", "", "Intake: category")
	fs.IntVar(&intakeMaxPages, "max-pages", 1, "Intake: max pages to scrape")
	fs.IntVar(&intakePriority, "priority", 0, "Intake: priority 1-10, 0 for default")
	_ = fs.Parse(os.Args[1:])

	if showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := obs.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	rdb, err := redisclient.New(cfg)
	if err != nil {
		logger.Fatal("failed to build redis client", obs.Err(err))
	}
	defer rdb.Close()

	readyCheck := func(c context.Context) error {
		return rdb.Ping(c).Err()
	}
	httpSrv := obs.StartHTTPServer(cfg, readyCheck)
	defer func() { _ = httpSrv.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, shutting down", obs.String("signal", sig.String()))
		cancel()
		select {
		case sig2 := <-sigCh:
			logger.Warn("second signal received, exiting immediately", obs.String("signal", sig2.String()))
			os.Exit(1)
		case <-time.After(5 * time.Second):
		}
	}()

	obs.StartQueueLengthUpdater(ctx, rdb, logger)

	store := queue.NewStore(rdb)

	var proxyPool *scraper.ProxyPool
	if cfg.Proxy.Enabled && cfg.Proxy.URL != "" {
		proxyPool = scraper.NewProxyPool([]scraper.ProxyConfig{{Type: scraper.ProxyHTTP, URL: cfg.Proxy.URL}})
	}
	registry := scraper.NewRegistry(logger, proxyPool, cfg.Worker.PageTimeout, scraper.CircuitBreakerConfig{
		Window:           cfg.CircuitBreaker.Window,
		Cooldown:         cfg.CircuitBreaker.CooldownPeriod,
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		MinSamples:       cfg.CircuitBreaker.MinSamples,
	})

	var apiSrv *api.Server
	if role == "api" || role == "all" {
		apiSrv = api.NewServer(api.Config{
			ListenAddr:       fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
			ReadTimeout:      10 * time.Second,
			WriteTimeout:     10 * time.Second,
			CORSEnabled:      true,
			CORSAllowOrigins: []string{"*"},
		}, store, catalog.NewMemoryStore(), tenant.NewHeaderResolver(), rdb, logger)
	}

	switch role {
	case "intake":
		in := intake.New(store)
		result, err := in.Submit(ctx, intake.Request{
			TenantID:    intakeTenant,
			Marketplace: intakeMarketplace,
			SearchQuery: intakeQuery,
			Category:    intakeCategory,
			MaxPages:    intakeMaxPages,
			Priority:    intakePriority,
		})
		if err != nil {
			logger.Fatal("intake submit failed", obs.Err(err))
		}
		fmt.Printf("job_id=%s status=%s\n", result.JobID, result.Status)
	case "worker":
		worker.New(store, registry, logger, cfg.Worker.MaxConcurrentJobs, cfg.Worker.IdleSleep, cfg.Worker.AtCapSleep).Run(ctx)
	case "api":
		runAPIUntilShutdown(ctx, apiSrv, logger)
	case "all":
		go worker.New(store, registry, logger, cfg.Worker.MaxConcurrentJobs, cfg.Worker.IdleSleep, cfg.Worker.AtCapSleep).Run(ctx)
		runAPIUntilShutdown(ctx, apiSrv, logger)
	default:
		logger.Fatal("unknown role", obs.String("role", role))
	}
}

// runAPIUntilShutdown serves until ctx is cancelled, then gives the
// listener a bounded window to drain in-flight requests.
func runAPIUntilShutdown(ctx context.Context, srv *api.Server, logger *zap.Logger) {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("api server stopped", obs.Err(err))
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("api server shutdown error", obs.Err(err))
		}
	}
}
