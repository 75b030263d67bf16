package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes the OTLP-exported dues instruments.
type Metrics struct {
	duesGenerated    metric.Int64Counter
	paymentsRecorded metric.Int64Counter
	paymentAmount    metric.Float64Counter
	rejections       metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "mercado"
	}
	meter := provider.Meter(name)

	duesGenerated, err := meter.Int64Counter("mercado.dues.generated",
		metric.WithDescription("Dues created by single or bulk generation."))
	if err != nil {
		return nil, err
	}
	paymentsRecorded, err := meter.Int64Counter("mercado.payments.recorded",
		metric.WithDescription("Payments accepted by the store."))
	if err != nil {
		return nil, err
	}
	paymentAmount, err := meter.Float64Counter("mercado.payments.amount",
		metric.WithDescription("Sum of accepted payment amounts in the market currency."))
	if err != nil {
		return nil, err
	}
	rejections, err := meter.Int64Counter("mercado.payments.rejected",
		metric.WithDescription("Payments rejected before reaching the store."))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		duesGenerated:    duesGenerated,
		paymentsRecorded: paymentsRecorded,
		paymentAmount:    paymentAmount,
		rejections:       rejections,
	}, nil
}

// RecordDuesGenerated counts created dues by generation mode.
func (m *Metrics) RecordDuesGenerated(ctx context.Context, mode string, created int) {
	if m == nil || created <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("mode", strings.TrimSpace(mode)))
	m.duesGenerated.Add(ctx, int64(created), metric.WithAttributes(attrs...))
}

// RecordPayment counts an accepted payment and its amount.
func (m *Metrics) RecordPayment(ctx context.Context, method string, amount float64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("method", strings.TrimSpace(method)))
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.paymentAmount.Add(ctx, amount, metric.WithAttributes(attrs...))
}

// RecordRejection counts a payment rejected with code.
func (m *Metrics) RecordRejection(ctx context.Context, code string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("code", strings.TrimSpace(code)))
	m.rejections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"mode":        {},
	"method":      {},
	"code":        {},
	"outcome":     {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
