package config

import (
	"fmt"

	"github.com/delaneyj/treectx/internal/logging"
	"github.com/delaneyj/treectx/pkg/schedule"
	"github.com/delaneyj/treectx/pkg/treectx"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Engine  EngineConfig
	Logging LogConfig
}

type EngineConfig struct {
	CycleLimit int  `envconfig:"TREECTX_CYCLE_LIMIT" default:"5"`
	MaxTasks   int  `envconfig:"TREECTX_MAX_TASKS" default:"1000000"`
	Metrics    bool `envconfig:"TREECTX_METRICS" default:"false"`
}

type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Engine.CycleLimit <= 0 {
		return nil, fmt.Errorf("failed to load config: TREECTX_CYCLE_LIMIT must be positive, got %d", cfg.Engine.CycleLimit)
	}
	return &cfg, nil
}

func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			CycleLimit: treectx.DefaultCycleLimit,
			MaxTasks:   schedule.DefaultMaxTasks,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

func (c LogConfig) Logger() logging.Config {
	cfg := logging.DefaultConfig()
	if c.Development {
		cfg = logging.DevelopmentConfig()
	}
	if c.Level != "" {
		cfg.Level = c.Level
	}
	return cfg
}

// Queue builds the macrotask queue the engine options below run on.
func (c EngineConfig) Queue() *schedule.Queue {
	return schedule.NewQueue(c.MaxTasks)
}

func (c EngineConfig) Options() []treectx.Option {
	return []treectx.Option{
		treectx.WithCycleLimit(c.CycleLimit),
	}
}
