package otel

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var (
	meterProvider   *sdkmetric.MeterProvider
	meterProviderMu sync.Mutex
)

// InitMeter installs the global meter provider backed by a Prometheus
// exporter on its own registry. The returned handler serves that registry;
// it is nil when metrics are disabled.
func InitMeter(cfg Config) (http.Handler, error) {
	meterProviderMu.Lock()
	defer meterProviderMu.Unlock()

	if !cfg.MetricsEnabled {
		otel.SetMeterProvider(noop.NewMeterProvider())
		return nil, nil
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res, err := newResource(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	opts := []sdkmetric.Option{
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	}
	// with an OTLP gRPC collector configured, metrics are pushed there as well
	if cfg.Enabled && strings.HasPrefix(cfg.EndpointURL, "grpc://") {
		pushExporter, err := createGRPCMetricExporter(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(pushExporter)))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	meterProvider = mp

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

func createGRPCMetricExporter(ctx context.Context, cfg Config) (sdkmetric.Exporter, error) {
	grpcOpts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(strings.TrimPrefix(cfg.EndpointURL, "grpc://")),
	}
	if cfg.Insecure {
		grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP gRPC metric exporter: %w", err)
	}
	return exporter, nil
}

// Meter returns a meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

func shutdownMeter(ctx context.Context) error {
	meterProviderMu.Lock()
	defer meterProviderMu.Unlock()

	if meterProvider == nil {
		return nil
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	meterProvider = nil
	return nil
}
