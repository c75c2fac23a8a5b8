package mealplan

import (
	"github.com/brikx/coach/internal/mealplan/repository"
	"github.com/brikx/coach/internal/mealplan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("mealplan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
