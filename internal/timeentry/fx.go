package timeentry

import (
	"github.com/brikx/coach/internal/timeentry/repository"
	"github.com/brikx/coach/internal/timeentry/service"
	"go.uber.org/fx"
)

var Module = fx.Module("timeentry.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
