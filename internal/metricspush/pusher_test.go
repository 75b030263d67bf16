package metricspush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/mercado/internal/config"
	obsmetrics "github.com/smallbiznis/mercado/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

func snapshotRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	counters := obsmetrics.NewDuesMetrics(reg)
	counters.Snapshot(3, 30, 450, 62.5, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC))
	counters.Generated("bulk", "created", 7)

	other := prometheus.NewGauge(prometheus.GaugeOpts{Name: "process_unrelated", Help: "not forwarded"})
	reg.MustRegister(other)
	other.Set(1)
	return reg
}

func TestNewPusherSelectsExporter(t *testing.T) {
	cases := []struct {
		name string
		push config.MetricsPushConfig
		want any
	}{
		{"disabled", config.MetricsPushConfig{}, nil},
		{"missing endpoint", config.MetricsPushConfig{Exporter: ExporterRemoteWrite}, nil},
		{"invalid endpoint", config.MetricsPushConfig{Exporter: ExporterRemoteWrite, Endpoint: "::nope"}, nil},
		{"unknown exporter", config.MetricsPushConfig{Exporter: "statsd", Endpoint: "http://x"}, nil},
		{"remote write", config.MetricsPushConfig{Exporter: ExporterRemoteWrite, Endpoint: "http://prom/api/v1/write"}, &RemoteWritePusher{}},
		{"pushgateway", config.MetricsPushConfig{Exporter: ExporterPushgateway, Endpoint: "http://gateway:9091"}, &PushgatewayPusher{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPusher(config.Config{AppName: "mercado", MetricsPush: tc.push}, zap.NewNop())
			if tc.want == nil {
				assert.Nil(t, p)
				return
			}
			assert.IsType(t, tc.want, p)
		})
	}
}

func TestRemoteWriteSendsDuesSeriesOnly(t *testing.T) {
	var got prompb.WriteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))

		compressed, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		payload, err := snappy.Decode(nil, compressed)
		require.NoError(t, err)
		require.NoError(t, proto.Unmarshal(payload, protoadapt.MessageV2Of(&got)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewRemoteWritePusher(srv.URL, "secret")
	p.now = func() time.Time { return time.UnixMilli(1742428800000) }
	require.NoError(t, p.Push(context.Background(), snapshotRegistry(t)))

	values := map[string]float64{}
	for _, ts := range got.Timeseries {
		var name string
		for _, l := range ts.Labels {
			if l.Name == "__name__" {
				name = l.Value
			}
		}
		require.Len(t, ts.Samples, 1)
		assert.Equal(t, int64(1742428800000), ts.Samples[0].Timestamp)
		values[name] = ts.Samples[0].Value
	}
	assert.Equal(t, 3.0, values["mercado_dues_overdue"])
	assert.Equal(t, 450.0, values["mercado_dues_outstanding_amount"])
	assert.Equal(t, 7.0, values["mercado_dues_generated_total"])
	assert.NotContains(t, values, "process_unrelated")
}

func TestRemoteWriteReportsRejectedPush(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), snapshotRegistry(t))
	assert.ErrorContains(t, err, "400")
}

func TestRemoteWriteSkipsEmptyGatherer(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	require.NoError(t, NewRemoteWritePusher(srv.URL, "").Push(context.Background(), prometheus.NewRegistry()))
	assert.False(t, called)
}

func TestPushgatewayReplacesGroup(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPushgatewayPusher(srv.URL, "mercado", map[string]string{"environment": "test", "": "ignored"})
	require.NoError(t, p.Push(context.Background(), snapshotRegistry(t)))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/mercado/environment/test", path)
}

func TestPushgatewayRequiresJob(t *testing.T) {
	err := NewPushgatewayPusher("http://gateway", " ", nil).Push(context.Background(), prometheus.NewRegistry())
	assert.Error(t, err)
}
