package main

import (
	"github.com/smallbiznis/mercado/internal/clock"
	"github.com/smallbiznis/mercado/internal/config"
	"github.com/smallbiznis/mercado/internal/dues"
	"github.com/smallbiznis/mercado/internal/locker"
	"github.com/smallbiznis/mercado/internal/metricspush"
	"github.com/smallbiznis/mercado/internal/observability"
	"github.com/smallbiznis/mercado/internal/scheduler"
	"github.com/smallbiznis/mercado/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		clock.Module,
		locker.Module,

		// Dues store: local database (with migrations) or the marketplace backend
		dues.Storage(config.Load()),
		dues.Module,

		// Background snapshot and HTTP surface
		metricspush.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}
