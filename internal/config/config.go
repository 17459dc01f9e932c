// Copyright 2025 James Ross
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Redis struct {
	URL                string        `mapstructure:"url"`
	Addr               string        `mapstructure:"addr"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	DB                 int           `mapstructure:"db"`
	PoolSizeMultiplier int           `mapstructure:"pool_size_multiplier"`
	MinIdleConns       int           `mapstructure:"min_idle_conns"`
	DialTimeout        time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
}

type Proxy struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type Worker struct {
	MaxConcurrentJobs int           `mapstructure:"max_concurrent_jobs"`
	IdleSleep         time.Duration `mapstructure:"idle_sleep"`
	AtCapSleep        time.Duration `mapstructure:"at_cap_sleep"`
	PageTimeout       time.Duration `mapstructure:"page_timeout"`
}

type CircuitBreaker struct {
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	Window           time.Duration `mapstructure:"window"`
	CooldownPeriod   time.Duration `mapstructure:"cooldown_period"`
	MinSamples       int           `mapstructure:"min_samples"`
}

type HTTP struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type ObservabilityConfig struct {
	MetricsPort int    `mapstructure:"metrics_port"`
	LogLevel    string `mapstructure:"log_level"`
}

type Observability = ObservabilityConfig

type Config struct {
	Redis          Redis          `mapstructure:"redis"`
	Proxy          Proxy          `mapstructure:"proxy"`
	Worker         Worker         `mapstructure:"worker"`
	CircuitBreaker CircuitBreaker `mapstructure:"circuit_breaker"`
	HTTP           HTTP           `mapstructure:"http"`
	Observability  Observability  `mapstructure:"observability"`
}

func defaultConfig() *Config {
	return &Config{
		Redis: Redis{
			Addr:               "localhost:6379",
			PoolSizeMultiplier: 10,
			MinIdleConns:       5,
			DialTimeout:        5 * time.Second,
			ReadTimeout:        3 * time.Second,
			WriteTimeout:       3 * time.Second,
			MaxRetries:         3,
		},
		Proxy: Proxy{
			Enabled: false,
		},
		Worker: Worker{
			MaxConcurrentJobs: 5,
			IdleSleep:         2 * time.Second,
			AtCapSleep:        500 * time.Millisecond,
			PageTimeout:       30 * time.Second,
		},
		CircuitBreaker: CircuitBreaker{
			FailureThreshold: 0.5,
			Window:           1 * time.Minute,
			CooldownPeriod:   30 * time.Second,
			MinSamples:       5,
		},
		HTTP: HTTP{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Observability: Observability{
			MetricsPort: 9090,
			LogLevel:    "info",
		},
	}
}

// Load reads configuration from a YAML file and environment overrides.
// Besides the nested SECTION_FIELD convention viper applies automatically,
// §6 names a handful of bare environment variables the deployment
// surface actually uses (REDIS_URL, MI_PROXY_ENABLED, MI_PROXY_URL,
// MI_MAX_CONCURRENT_JOBS, PORT, HOST); those are bound explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	v.SetDefault("redis.addr", def.Redis.Addr)
	v.SetDefault("redis.pool_size_multiplier", def.Redis.PoolSizeMultiplier)
	v.SetDefault("redis.min_idle_conns", def.Redis.MinIdleConns)
	v.SetDefault("redis.dial_timeout", def.Redis.DialTimeout)
	v.SetDefault("redis.read_timeout", def.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", def.Redis.WriteTimeout)
	v.SetDefault("redis.max_retries", def.Redis.MaxRetries)

	v.SetDefault("proxy.enabled", def.Proxy.Enabled)
	v.SetDefault("proxy.url", def.Proxy.URL)

	v.SetDefault("worker.max_concurrent_jobs", def.Worker.MaxConcurrentJobs)
	v.SetDefault("worker.idle_sleep", def.Worker.IdleSleep)
	v.SetDefault("worker.at_cap_sleep", def.Worker.AtCapSleep)
	v.SetDefault("worker.page_timeout", def.Worker.PageTimeout)

	v.SetDefault("circuit_breaker.failure_threshold", def.CircuitBreaker.FailureThreshold)
	v.SetDefault("circuit_breaker.window", def.CircuitBreaker.Window)
	v.SetDefault("circuit_breaker.cooldown_period", def.CircuitBreaker.CooldownPeriod)
	v.SetDefault("circuit_breaker.min_samples", def.CircuitBreaker.MinSamples)

	v.SetDefault("http.host", def.HTTP.Host)
	v.SetDefault("http.port", def.HTTP.Port)

	v.SetDefault("observability.metrics_port", def.Observability.MetricsPort)
	v.SetDefault("observability.log_level", def.Observability.LogLevel)

	// Bare env vars named explicitly in spec §6, independent of the
	// nested SECTION_FIELD convention used everywhere else.
	_ = v.BindEnv("redis.url", "REDIS_URL")
	_ = v.BindEnv("proxy.enabled", "MI_PROXY_ENABLED")
	_ = v.BindEnv("proxy.url", "MI_PROXY_URL")
	_ = v.BindEnv("worker.max_concurrent_jobs", "MI_MAX_CONCURRENT_JOBS")
	_ = v.BindEnv("http.port", "PORT")
	_ = v.BindEnv("http.host", "HOST")

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks config constraints and returns an error on invalid settings.
func Validate(cfg *Config) error {
	if cfg.Worker.MaxConcurrentJobs < 1 {
		return fmt.Errorf("worker.max_concurrent_jobs must be >= 1")
	}
	if cfg.Worker.PageTimeout <= 0 {
		return fmt.Errorf("worker.page_timeout must be > 0")
	}
	if cfg.Proxy.Enabled && cfg.Proxy.URL == "" {
		return fmt.Errorf("proxy.url must be set when proxy.enabled is true")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be 1..65535")
	}
	if cfg.Observability.MetricsPort <= 0 || cfg.Observability.MetricsPort > 65535 {
		return fmt.Errorf("observability.metrics_port must be 1..65535")
	}
	return nil
}
