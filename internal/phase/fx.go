package phase

import (
	"github.com/brikx/coach/internal/phase/service"
	"go.uber.org/fx"
)

var Module = fx.Module("phase.service",
	fx.Provide(service.New),
)
