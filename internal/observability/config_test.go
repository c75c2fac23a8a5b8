package observability

import (
	"testing"

	"github.com/brikx/coach/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(config.Config{
		AppVersion:        " 1.2.0 ",
		Environment:       "production",
		LogLevel:          "info",
		LogFormat:         "console",
		OtelEnabled:       true,
		OTLPEndpoint:      "collector:4317",
		OTLPProtocol:      "grpc",
		OtelSamplingRatio: 4,
	})

	assert.Equal(t, "brikx-coach", cfg.ServiceName)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, 0.1, cfg.SamplingRatio)
	assert.False(t, cfg.Debug())

	logCfg := cfg.Logger()
	assert.Equal(t, "console", logCfg.Format)
	assert.False(t, logCfg.IncludeStackOnError)

	traceCfg := cfg.Tracing()
	assert.True(t, traceCfg.Enabled)
	assert.Equal(t, "collector:4317", traceCfg.ExporterEndpoint)
	assert.Equal(t, "1.2.0", traceCfg.ServiceVersion)

	metricsCfg := cfg.Metrics()
	assert.True(t, metricsCfg.Enabled)
	assert.Equal(t, "production", metricsCfg.Environment)
}

func TestDebugFollowsLevelOrEnvironment(t *testing.T) {
	assert.True(t, Config{Environment: "production", LogLevel: "DEBUG"}.Debug())
	assert.True(t, Config{Environment: "local"}.Debug())
	assert.False(t, Config{Environment: "staging", LogLevel: "info"}.Debug())
	assert.True(t, Config{Environment: "staging"}.Logger().IncludeCaller)
}
