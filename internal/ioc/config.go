package ioc

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/rpattn/testbed-analytics/internal/config"
	"github.com/rpattn/testbed-analytics/internal/logging"
	"github.com/rpattn/testbed-analytics/internal/tracing"
)

// ConfigPath is the directory searched for config.yaml.
type ConfigPath string

func InitConfig(path ConfigPath) (config.Config, error) {
	return config.Load(string(path))
}

func InitLogger(cfg config.Config) (*zap.Logger, func(), error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Source != "" {
		logger.Info("loaded config", zap.String("file", cfg.Source))
	} else {
		logger.Info("no config.yaml found, using defaults and env vars")
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// Tracing marks that the global tracer provider has been installed.
type Tracing struct {
	Enabled bool
}

func InitTracing(cfg config.Config, logger *zap.Logger) (Tracing, func(), error) {
	shutdown, err := tracing.Setup(cfg.TracingEnabled, os.Stdout)
	if err != nil {
		return Tracing{}, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("shutdown tracer provider failed", zap.Error(err))
		}
	}
	return Tracing{Enabled: cfg.TracingEnabled}, cleanup, nil
}
