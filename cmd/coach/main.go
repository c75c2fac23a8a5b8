package main

import (
	"github.com/brikx/coach/internal/clock"
	"github.com/brikx/coach/internal/config"
	"github.com/brikx/coach/internal/idgen"
	"github.com/brikx/coach/internal/migration"
	"github.com/brikx/coach/internal/observability"
	"github.com/brikx/coach/internal/server"
	"github.com/brikx/coach/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		idgen.Module,
		db.Module,
		migration.Module,
		clock.Module,
		server.Module,
	)
	app.Run()
}
