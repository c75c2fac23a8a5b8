package project

import (
	"github.com/brikx/coach/internal/project/repository"
	"github.com/brikx/coach/internal/project/service"
	"go.uber.org/fx"
)

var Module = fx.Module("project.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
