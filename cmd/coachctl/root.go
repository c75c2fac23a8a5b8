package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brikx/coach/internal/auditcontext"
	"github.com/brikx/coach/internal/clock"
	"github.com/brikx/coach/internal/config"
	"github.com/brikx/coach/internal/idgen"
	"github.com/brikx/coach/internal/migration"
	"github.com/brikx/coach/internal/observability"
	"github.com/brikx/coach/internal/observability/logger"
	obsmetrics "github.com/brikx/coach/internal/observability/metrics"
	"github.com/brikx/coach/internal/server"
	"github.com/brikx/coach/internal/usercontext"
	"github.com/brikx/coach/pkg/db"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	apikeydomain "github.com/brikx/coach/internal/apikey/domain"
	billingdomain "github.com/brikx/coach/internal/billing/domain"
	mealplandomain "github.com/brikx/coach/internal/mealplan/domain"
)

const actorTypeCLI = "cli"

var (
	userEmail  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "coachctl",
	Short: "Operate the personal coach backend from the command line",
	Long: `coachctl runs invoicing and shopping-list operations directly against
the coach database, acting as the user given by --user.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&userEmail, "user", os.Getenv("COACH_USER"), "Email of the acting user (env COACH_USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(invoiceCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(unbilledCmd)
	rootCmd.AddCommand(shoppingListCmd)
	rootCmd.AddCommand(apiKeyCmd)
}

// services are the domain services the commands call.
type services struct {
	APIKeys  apikeydomain.Service
	Billing  billingdomain.Service
	MealPlan mealplandomain.Service
}

// withServices boots the domain graph, resolves the acting user and runs fn.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, svc services) error) error {
	email := strings.TrimSpace(userEmail)
	if email == "" {
		return errors.New("--user is required")
	}

	var (
		svc    services
		pusher obsmetrics.Pusher
		log    *zap.Logger
	)
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Decorate(quietLogger),
		idgen.Module,
		db.Module,
		migration.Module,
		clock.Module,
		server.Services,
		fx.Provide(obsmetrics.NewPusher),
		fx.Populate(&svc.APIKeys, &svc.Billing, &svc.MealPlan, &pusher, &log),
	)

	startCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	ctx := cmd.Context()
	user, err := svc.APIKeys.EnsureUser(ctx, apikeydomain.EnsureUserRequest{Email: email})
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}
	ctx = usercontext.WithUserID(ctx, user.ID)
	ctx = auditcontext.WithActor(ctx, actorTypeCLI, user.Email)

	runErr := fn(ctx, svc)
	if pusher != nil {
		if err := pusher.Push(ctx, obsmetrics.OwnMetrics(prometheus.DefaultGatherer)); err != nil {
			log.Warn("metrics push failed", zap.Error(err))
		}
	}
	return runErr
}

// quietLogger keeps command output on stdout readable.
func quietLogger(cfg logger.Config) logger.Config {
	cfg.Output = "stderr"
	if !cfg.Debug {
		cfg.Level = "warn"
	}
	return cfg
}
