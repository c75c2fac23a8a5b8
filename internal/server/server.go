package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/brikx/coach/internal/apikey"
	apikeydomain "github.com/brikx/coach/internal/apikey/domain"
	"github.com/brikx/coach/internal/audit"
	auditdomain "github.com/brikx/coach/internal/audit/domain"
	"github.com/brikx/coach/internal/billing"
	billingdomain "github.com/brikx/coach/internal/billing/domain"
	"github.com/brikx/coach/internal/cache"
	"github.com/brikx/coach/internal/config"
	"github.com/brikx/coach/internal/mealplan"
	mealplandomain "github.com/brikx/coach/internal/mealplan/domain"
	"github.com/brikx/coach/internal/observability"
	obsmiddleware "github.com/brikx/coach/internal/observability/logger"
	obsmetrics "github.com/brikx/coach/internal/observability/metrics"
	obstracing "github.com/brikx/coach/internal/observability/tracing"
	"github.com/brikx/coach/internal/phase"
	phasedomain "github.com/brikx/coach/internal/phase/domain"
	"github.com/brikx/coach/internal/project"
	projectdomain "github.com/brikx/coach/internal/project/domain"
	"github.com/brikx/coach/internal/ratelimit"
	"github.com/brikx/coach/internal/timeentry"
	timeentrydomain "github.com/brikx/coach/internal/timeentry/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Services wires every domain module the HTTP API serves.
var Services = fx.Options(
	cache.Module,
	ratelimit.Module,
	audit.Module,
	apikey.Module,
	phase.Module,
	project.Module,
	timeentry.Module,
	billing.Module,
	mealplan.Module,
)

var Module = fx.Module("http.server",
	Services,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	log = log.Named("http.server")
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("listen", zap.Error(err))
				}
			}()
			log.Info("listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Engine       *gin.Engine
	Cfg          config.Config
	APIKeySvc    apikeydomain.Service
	AuditSvc     auditdomain.Service
	PhaseSvc     phasedomain.Service
	ProjectSvc   projectdomain.Service
	TimeEntrySvc timeentrydomain.Service
	BillingSvc   billingdomain.Service
	MealPlanSvc  mealplandomain.Service
	Limiter      *ratelimit.Limiter `optional:"true"`
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	apiKeySvc    apikeydomain.Service
	auditSvc     auditdomain.Service
	phaseSvc     phasedomain.Service
	projectSvc   projectdomain.Service
	timeEntrySvc timeentrydomain.Service
	billingSvc   billingdomain.Service
	mealPlanSvc  mealplandomain.Service
	limiter      *ratelimit.Limiter
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:       p.Engine,
		cfg:          p.Cfg,
		apiKeySvc:    p.APIKeySvc,
		auditSvc:     p.AuditSvc,
		phaseSvc:     p.PhaseSvc,
		projectSvc:   p.ProjectSvc,
		timeEntrySvc: p.TimeEntrySvc,
		billingSvc:   p.BillingSvc,
		mealPlanSvc:  p.MealPlanSvc,
		limiter:      p.Limiter,
	}
}

// RegisterRoutes mounts the authenticated API under /api/v1.
func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(s.APIKeyRequired(), s.RateLimit())

	api.GET("/phases", s.ListPhases)

	projects := api.Group("/projects")
	{
		projects.POST("", s.CreateProject)
		projects.GET("", s.ListProjects)
		projects.GET("/:id", s.GetProject)
		projects.PATCH("/:id", s.UpdateProject)
		projects.POST("/:id/archive", s.ArchiveProject)
		projects.PUT("/:id/phases/:code", s.SetProjectPhase)
		projects.GET("/:id/budget", s.GetProjectBudget)
	}

	entries := api.Group("/time-entries")
	{
		entries.POST("", s.CreateTimeEntry)
		entries.GET("", s.ListTimeEntries)
		entries.GET("/:id", s.GetTimeEntry)
		entries.PATCH("/:id", s.UpdateTimeEntry)
		entries.DELETE("/:id", s.DeleteTimeEntry)
	}

	invoicing := api.Group("/billing")
	{
		invoicing.POST("/allocate", s.Allocate)
		invoicing.POST("/preview", s.PreviewAllocation)
		invoicing.GET("/unbilled", s.UnbilledSummary)
	}

	recipes := api.Group("/recipes")
	{
		recipes.POST("", s.CreateRecipe)
		recipes.GET("", s.ListRecipes)
	}

	plan := api.Group("/meal-plan")
	{
		plan.POST("", s.PlanMeal)
		plan.GET("", s.ListMealPlan)
		plan.DELETE("/:id", s.RemovePlannedMeal)
	}

	shopping := api.Group("/shopping-list")
	{
		shopping.GET("", s.GetShoppingList)
		shopping.POST("/items", s.AddManualItem)
		shopping.DELETE("/items/:id", s.RemoveManualItem)
		shopping.POST("/checked", s.ToggleChecked)
	}

	keys := api.Group("/api-keys")
	{
		keys.GET("", s.ListAPIKeys)
		keys.POST("", s.CreateAPIKey)
		keys.POST("/:id/rotate", s.RotateAPIKey)
		keys.POST("/:id/revoke", s.RevokeAPIKey)
	}

	api.GET("/audit-logs", s.ListAuditLogs)
}
