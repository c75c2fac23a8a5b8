package billing

import (
	"github.com/brikx/coach/internal/billing/repository"
	"github.com/brikx/coach/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
