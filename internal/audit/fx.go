package audit

import (
	"github.com/brikx/coach/internal/audit/repository"
	"github.com/brikx/coach/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
