package ioc

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rpattn/testbed-analytics/internal/analytics"
	"github.com/rpattn/testbed-analytics/internal/api"
	"github.com/rpattn/testbed-analytics/internal/config"
	"github.com/rpattn/testbed-analytics/internal/export"
	"github.com/rpattn/testbed-analytics/internal/job"
	"github.com/rpattn/testbed-analytics/internal/metrics"
)

func InitAnalyticsService(store *metrics.InstrumentedStore, logger *zap.Logger) *analytics.Service {
	return analytics.NewService(store, logger)
}

func InitExportService(store *metrics.InstrumentedStore, logger *zap.Logger) *export.Service {
	return export.NewService(store, logger)
}

func InitHandler(service *analytics.Service, exporter *export.Service, logger *zap.Logger) *api.Handler {
	return api.NewHandler(service, exporter, logger)
}

func InitGinEngine(handler *api.Handler, store *metrics.InstrumentedStore, m *metrics.Metrics, reg *prometheus.Registry, logger *zap.Logger) *gin.Engine {
	return api.NewEngine(handler, store, m, reg, logger)
}

func InitStoreProbe(cfg config.Config, store *metrics.InstrumentedStore, m *metrics.Metrics, logger *zap.Logger) *job.StoreProbe {
	return job.NewStoreProbe(cfg.ProbeSchedule, store.Ping, m.StoreUp, logger)
}
