package observability

import (
	"strings"

	"github.com/brikx/coach/internal/config"
	"github.com/brikx/coach/internal/observability/logger"
	"github.com/brikx/coach/internal/observability/metrics"
	"github.com/brikx/coach/internal/observability/tracing"
)

const defaultServiceName = "brikx-coach"

// Config is the telemetry view of the application config shared by the
// logger, tracer and meter.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	TelemetryEnabled bool
	OTLPEndpoint     string
	OTLPProtocol     string
	SamplingRatio    float64
}

func FromAppConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = defaultServiceName
	}
	ratio := cfg.OtelSamplingRatio
	if ratio < 0 || ratio > 1 {
		ratio = 0.1
	}
	return Config{
		ServiceName:      name,
		Environment:      strings.TrimSpace(cfg.Environment),
		Version:          strings.TrimSpace(cfg.AppVersion),
		LogLevel:         cfg.LogLevel,
		LogFormat:        cfg.LogFormat,
		TelemetryEnabled: cfg.OtelEnabled,
		OTLPEndpoint:     cfg.OTLPEndpoint,
		OTLPProtocol:     cfg.OTLPProtocol,
		SamplingRatio:    ratio,
	}
}

// Debug reports whether request logs carry stacks and gin runs in debug mode.
func (c Config) Debug() bool {
	if strings.EqualFold(c.LogLevel, "debug") {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func (c Config) Logger() logger.Config {
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		Debug:               c.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:          c.TelemetryEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.OTLPEndpoint,
		ExporterProtocol: c.OTLPProtocol,
		SamplingRatio:    c.SamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.TelemetryEnabled,
		ExporterEndpoint: c.OTLPEndpoint,
		ExporterProtocol: c.OTLPProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
