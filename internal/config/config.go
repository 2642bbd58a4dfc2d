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

type Engine struct {
	Namespace           string        `mapstructure:"namespace"`
	GCSweepSchedule     string        `mapstructure:"gc_sweep_schedule"`
	QueueSampleInterval time.Duration `mapstructure:"queue_sample_interval"`
	TailEvents          bool          `mapstructure:"tail_events"`
}

type TracingConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	Endpoint         string  `mapstructure:"endpoint"`
	Environment      string  `mapstructure:"environment"`
	SamplingStrategy string  `mapstructure:"sampling_strategy"`
	SamplingRate     float64 `mapstructure:"sampling_rate"`
	Insecure         bool    `mapstructure:"insecure"`
}

type LogRotation struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type Observability struct {
	MetricsPort int           `mapstructure:"metrics_port"`
	LogLevel    string        `mapstructure:"log_level"`
	LogRotation LogRotation   `mapstructure:"log_rotation"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

type Config struct {
	Redis         Redis         `mapstructure:"redis"`
	Engine        Engine        `mapstructure:"engine"`
	Observability Observability `mapstructure:"observability"`
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
		Engine: Engine{
			Namespace:           "ql",
			GCSweepSchedule:     "@every 1m",
			QueueSampleInterval: 2 * time.Second,
			TailEvents:          true,
		},
		Observability: Observability{
			MetricsPort: 9090,
			LogLevel:    "info",
			Tracing:     TracingConfig{Enabled: false, SamplingRate: 0.1},
		},
	}
}

// Load reads configuration from YAML file and env overrides.
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

	v.SetDefault("engine.namespace", def.Engine.Namespace)
	v.SetDefault("engine.gc_sweep_schedule", def.Engine.GCSweepSchedule)
	v.SetDefault("engine.queue_sample_interval", def.Engine.QueueSampleInterval)
	v.SetDefault("engine.tail_events", def.Engine.TailEvents)

	v.SetDefault("observability.metrics_port", def.Observability.MetricsPort)
	v.SetDefault("observability.log_level", def.Observability.LogLevel)
	v.SetDefault("observability.log_rotation.file", def.Observability.LogRotation.File)
	v.SetDefault("observability.log_rotation.max_size_mb", def.Observability.LogRotation.MaxSizeMB)
	v.SetDefault("observability.log_rotation.max_backups", def.Observability.LogRotation.MaxBackups)
	v.SetDefault("observability.log_rotation.max_age_days", def.Observability.LogRotation.MaxAgeDays)
	v.SetDefault("observability.tracing.enabled", def.Observability.Tracing.Enabled)
	v.SetDefault("observability.tracing.endpoint", def.Observability.Tracing.Endpoint)
	v.SetDefault("observability.tracing.environment", def.Observability.Tracing.Environment)
	v.SetDefault("observability.tracing.sampling_strategy", def.Observability.Tracing.SamplingStrategy)
	v.SetDefault("observability.tracing.sampling_rate", def.Observability.Tracing.SamplingRate)
	v.SetDefault("observability.tracing.insecure", def.Observability.Tracing.Insecure)

	// Optional file read
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
	if cfg.Engine.Namespace == "" {
		return fmt.Errorf("engine.namespace must be non-empty")
	}
	if strings.ContainsAny(cfg.Engine.Namespace, ": ") {
		return fmt.Errorf("engine.namespace must not contain colons or spaces")
	}
	if cfg.Engine.GCSweepSchedule == "" {
		return fmt.Errorf("engine.gc_sweep_schedule must be non-empty")
	}
	if cfg.Engine.QueueSampleInterval <= 0 {
		return fmt.Errorf("engine.queue_sample_interval must be > 0")
	}
	if cfg.Observability.MetricsPort <= 0 || cfg.Observability.MetricsPort > 65535 {
		return fmt.Errorf("observability.metrics_port must be 1..65535")
	}
	return nil
}
