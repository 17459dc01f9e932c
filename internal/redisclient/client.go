// Copyright 2025 James Ross
package redisclient

import (
	"fmt"
	"runtime"
	"time"

	"github.com/marketintel/engine/internal/config"
	"github.com/redis/go-redis/v9"
)

// New returns a configured go-redis v9 client with pooling and retries. If
// cfg.Redis.URL is set (typically via the REDIS_URL environment variable
// named in spec §6) it takes precedence over the discrete addr/username/
// password fields.
func New(cfg *config.Config) (*redis.Client, error) {
	poolSize := cfg.Redis.PoolSizeMultiplier * runtime.NumCPU()
	if poolSize <= 0 {
		poolSize = 10 * runtime.NumCPU()
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts.PoolSize = poolSize
		opts.MinIdleConns = cfg.Redis.MinIdleConns
		opts.DialTimeout = cfg.Redis.DialTimeout
		opts.ReadTimeout = cfg.Redis.ReadTimeout
		opts.WriteTimeout = cfg.Redis.WriteTimeout
		opts.MaxRetries = cfg.Redis.MaxRetries
		return redis.NewClient(opts), nil
	}

	return redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     poolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		MaxRetries:   cfg.Redis.MaxRetries,
		PoolTimeout:  5 * time.Minute,
	}), nil
}
