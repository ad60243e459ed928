package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rpattn/testbed-analytics/internal/metrics"
	"github.com/rpattn/testbed-analytics/internal/middleware"
	"github.com/rpattn/testbed-analytics/internal/query"
)

// NewEngine builds the gin engine with every analytics route, the request
// middleware and the metrics endpoint.
func NewEngine(handler *Handler, exec query.Executor, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	if logger != nil {
		engine.Use(middleware.Logging(logger))
	}
	if m != nil {
		engine.Use(middleware.Metrics(m))
	}
	engine.Use(middleware.DataLoader(exec))

	handler.RegisterRoutes(engine)
	if gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return engine
}
