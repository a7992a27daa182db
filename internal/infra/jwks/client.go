package jwks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpclient "github.com/astro-web3/coffee-drinks/pkg/http"
	"github.com/astro-web3/coffee-drinks/pkg/logger"
	"github.com/astro-web3/coffee-drinks/pkg/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName    = "github.com/astro-web3/coffee-drinks/internal/infra/jwks"
	acceptHeader = "application/jwk-set+json, application/json"
)

// Source returns the raw JWKS document.
type Source interface {
	Document(ctx context.Context) ([]byte, error)
}

type remoteSource struct {
	url           string
	client        *httpclient.Client
	fetchDuration metric.Float64Histogram
}

// NewRemoteSource fetches the key set from url. Timeout and retry policy come
// from client.
func NewRemoteSource(url string, client *httpclient.Client) Source {
	if client == nil {
		client = httpclient.Default()
	}

	hist, err := otel.Meter(meterName).Float64Histogram(
		"drinks.jwks.fetch.duration",
		metric.WithDescription("Duration of JWKS document fetches"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		hist = nil
	}

	return &remoteSource{
		url:           url,
		client:        client,
		fetchDuration: hist,
	}
}

func (s *remoteSource) Document(ctx context.Context) ([]byte, error) {
	start := time.Now()

	resp, err := s.client.Get(ctx, s.url, httpclient.WithHeader("Accept", acceptHeader))
	if err != nil {
		s.record(ctx, start, "error")
		logger.WarnContext(ctx, "jwks fetch failed",
			slog.String("url", s.url),
			logger.Err(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	if resp.StatusCode() != http.StatusOK {
		s.record(ctx, start, "bad_status")
		logger.WarnContext(ctx, "jwks endpoint returned unexpected status",
			slog.String("url", s.url),
			slog.Int("status", resp.StatusCode()),
		)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, resp.StatusCode())
	}

	s.record(ctx, start, "ok")
	logger.DebugContext(ctx, "jwks fetched",
		slog.String("url", s.url),
		slog.Int("bytes", len(resp.Body())),
	)

	return resp.Body(), nil
}

func (s *remoteSource) record(ctx context.Context, start time.Time, outcome string) {
	if s.fetchDuration == nil {
		return
	}
	s.fetchDuration.Record(ctx,
		float64(time.Since(start).Microseconds())/1000,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}
