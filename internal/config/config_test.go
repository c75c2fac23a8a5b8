package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("RATE_LIMIT_ENABLED", "yes")
	t.Setenv("RATE_LIMIT_PER_SECOND", "2.5")
	t.Setenv("DATABASE_MAX_OPEN_CONN", "not-a-number")
	t.Setenv("METRICS_PUSH_EXPORTER", " PushGateway ")
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "HTTP")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, 2.5, cfg.RateLimitPerSecond)
	assert.Equal(t, 20, cfg.DBMaxOpenConn)
	assert.Equal(t, "pushgateway", cfg.MetricsPushExporter)
	assert.Equal(t, int64(1), cfg.SnowflakeNode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http", cfg.OTLPProtocol)
	assert.False(t, cfg.OtelEnabled)
	assert.False(t, cfg.IsProduction())
}

func TestBillingConfigDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewBillingConfigHolder(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultBillingConfig(), holder.Get())

	var nilHolder *BillingConfigHolder
	assert.Equal(t, DefaultBillingConfig(), nilHolder.Get())
}

func TestBillingConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeBillingFile(t, dir, `billing:
  epsilon: 0.001
  hourPrecision: 2
  splitNoteTemplate: "Billed on %s"
  invoiceNumberPrefix: "BX-"
  currency: USD
`)

	holder, err := NewBillingConfigHolder(zap.NewNop())
	require.NoError(t, err)
	cfg := holder.Get()
	assert.Equal(t, 0.001, cfg.Epsilon)
	assert.Equal(t, "Billed on %s", cfg.SplitNoteTemplate)
	assert.Equal(t, "BX-", cfg.InvoiceNumberPrefix)
	assert.Equal(t, "USD", cfg.Currency)

	writeBillingFile(t, dir, `billing:
  epsilon: 0.001
  hourPrecision: 2
  invoiceNumberPrefix: "INV-"
  currency: USD
`)
	assert.Eventually(t, func() bool {
		return holder.Get().InvoiceNumberPrefix == "INV-"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestBillingConfigPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeBillingFile(t, dir, "billing:\n  invoiceNumberPrefix: \"BX-\"\n")

	holder, err := NewBillingConfigHolder(zap.NewNop())
	require.NoError(t, err)
	cfg := holder.Get()
	assert.Equal(t, "BX-", cfg.InvoiceNumberPrefix)
	assert.Equal(t, DefaultBillingConfig().Currency, cfg.Currency)
	assert.Equal(t, DefaultBillingConfig().HourPrecision, cfg.HourPrecision)
}

func TestBillingConfigRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeBillingFile(t, dir, "billing:\n  hourPrecision: 9\n")

	_, err := NewBillingConfigHolder(zap.NewNop())
	assert.Error(t, err)
}

func TestValidateBillingConfig(t *testing.T) {
	cfg := DefaultBillingConfig()
	require.NoError(t, validateBillingConfig(cfg))

	cfg.Epsilon = -1
	assert.Error(t, validateBillingConfig(cfg))

	cfg = DefaultBillingConfig()
	cfg.Currency = " "
	assert.Error(t, validateBillingConfig(cfg))
}

func writeBillingFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "billing.yml"), []byte(content), 0o600))
}
