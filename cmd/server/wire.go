//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/rpattn/testbed-analytics/internal/ioc"
	"github.com/rpattn/testbed-analytics/internal/server"
)

func InitApp(ctx context.Context, path ioc.ConfigPath) (*server.HTTPServer, func(), error) {
	panic(wire.Build(
		ioc.InitConfig,
		ioc.InitLogger,
		ioc.InitTracing,
		ioc.InitRegistry,
		ioc.InitMetrics,
		ioc.InitStore,
		ioc.InitAnalyticsService,
		ioc.InitExportService,
		ioc.InitHandler,
		ioc.InitGinEngine,
		ioc.InitStoreProbe,
		server.NewHTTPServer,
	))
}
