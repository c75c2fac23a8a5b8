package apikey

import (
	"github.com/brikx/coach/internal/apikey/repository"
	"github.com/brikx/coach/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
