package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brikx/coach/internal/config"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	registry := prometheus.NewRegistry()
	m := newBillingMetrics(registry, Config{ServiceName: "coach-test", Environment: "test"})
	m.AddEntriesInvoiced("amount", 3)
	m.AddSplits(1)
	m.ObserveUnallocated(20)

	other := prometheus.NewCounter(prometheus.CounterOpts{Name: "unrelated_total", Help: "not ours"})
	registry.MustRegister(other)
	other.Inc()
	return registry
}

func TestNewPusherSelection(t *testing.T) {
	log := zap.NewNop()
	assert.Nil(t, NewPusher(config.Config{}, log))
	assert.Nil(t, NewPusher(config.Config{MetricsPushExporter: ExporterRemoteWrite}, log))
	assert.Nil(t, NewPusher(config.Config{MetricsPushExporter: "statsd", MetricsPushEndpoint: "http://x"}, log))

	rw := NewPusher(config.Config{MetricsPushExporter: ExporterRemoteWrite, MetricsPushEndpoint: "http://prom:9090/api/v1/write"}, log)
	assert.IsType(t, &RemoteWritePusher{}, rw)

	pg := NewPusher(config.Config{MetricsPushExporter: ExporterPushgateway, MetricsPushEndpoint: "http://pg:9091", AppName: "coachctl"}, log)
	assert.IsType(t, &PushgatewayPusher{}, pg)
}

func TestOwnMetricsFiltersForeignFamilies(t *testing.T) {
	families, err := OwnMetrics(testRegistry(t)).Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
	for _, family := range families {
		assert.True(t, strings.HasPrefix(family.GetName(), "brikx_"), family.GetName())
	}
}

func TestRemoteWritePush(t *testing.T) {
	var got prompb.WriteRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(decoded))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pusher := NewRemoteWritePusher(srv.URL, "secret")
	require.NoError(t, pusher.Push(context.Background(), OwnMetrics(testRegistry(t))))
	assert.Equal(t, "Bearer secret", auth)

	values := map[string]float64{}
	for _, ts := range got.Timeseries {
		var name, mode string
		for _, label := range ts.Labels {
			switch label.Name {
			case "__name__":
				name = label.Value
			case "mode":
				mode = label.Value
			}
		}
		require.Len(t, ts.Samples, 1)
		values[name+"/"+mode] = ts.Samples[0].Value
	}
	assert.Equal(t, 3.0, values["brikx_billing_entries_invoiced_total/amount"])
	assert.Equal(t, 1.0, values["brikx_billing_entry_splits_total/"])
	_, hasHistogram := values["brikx_billing_unallocated_amount/"]
	assert.False(t, hasHistogram)
}

func TestRemoteWritePushRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), testRegistry(t))
	assert.Error(t, err)
}

func TestPushgatewayPush(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pusher := NewPushgatewayPusher(srv.URL, "coachctl", map[string]string{"env": "test", "": "skipped"})
	require.NoError(t, pusher.Push(context.Background(), OwnMetrics(testRegistry(t))))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/coachctl/env/test", path)

	assert.Error(t, NewPushgatewayPusher(srv.URL, "", nil).Push(context.Background(), testRegistry(t)))
}
