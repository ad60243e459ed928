package ioc

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/rpattn/testbed-analytics/internal/config"
	"github.com/rpattn/testbed-analytics/internal/db"
	"github.com/rpattn/testbed-analytics/internal/memstore"
	"github.com/rpattn/testbed-analytics/internal/metrics"
	"github.com/rpattn/testbed-analytics/internal/repository"
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func InitMetrics(reg *prometheus.Registry) *metrics.Metrics {
	m := metrics.New()
	m.MustRegister(reg)
	return m
}

// InitStore opens the configured store driver and wraps it with metrics.
func InitStore(ctx context.Context, cfg config.Config, logger *zap.Logger, _ Tracing, m *metrics.Metrics) (*metrics.InstrumentedStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		ds, err := memstore.LoadFile(cfg.Store.Fixture)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using in-memory store",
			zap.String("fixture", cfg.Store.Fixture),
			zap.Int("slices", len(ds.Slices)),
			zap.Int("slivers", len(ds.Slivers)),
		)
		return metrics.Instrument(memstore.New(ds), m), func() {}, nil
	case config.StoreDriverPostgres:
		conn, err := db.NewConnection(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		logger.Info("connected to database",
			zap.String("host", cfg.Database.Host),
			zap.String("dbname", cfg.Database.DBName),
		)
		cleanup := func() {
			conn.Close()
			logger.Info("database pool closed")
		}
		return metrics.Instrument(repository.NewPlanRepository(conn.Pool), m), cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
