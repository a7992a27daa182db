package authz

import (
	"context"
	"log/slog"

	"github.com/astro-web3/coffee-drinks/internal/domain/authz"
	"github.com/astro-web3/coffee-drinks/pkg/logger"
	"github.com/astro-web3/coffee-drinks/pkg/otel"
	"github.com/astro-web3/coffee-drinks/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	outcomeAllow = "allow"
	outcomeDeny  = "deny"
)

type Service interface {
	Authorize(ctx context.Context, header, permission string) (authz.DecodedToken, error)
}

type service struct {
	domainService authz.Service
	decisions     metric.Int64Counter
}

func NewService(domainService authz.Service) Service {
	decisions, err := otel.Meter("drinks/authz").Int64Counter(
		"drinks.authz.decisions",
		metric.WithDescription("Authorization decisions by outcome and failure code"),
	)
	if err != nil {
		logger.WarnContext(context.Background(), "failed to create authz decision counter", logger.Err(err))
	}

	return &service{
		domainService: domainService,
		decisions:     decisions,
	}
}

func (s *service) Authorize(ctx context.Context, header, permission string) (authz.DecodedToken, error) {
	ctx, span := tracer.Start(ctx, "app.authz.Authorize")
	defer span.End()

	span.SetAttributes(attribute.String("authz.permission", permission))

	decoded, err := s.domainService.Authorize(ctx, header, permission)
	if err != nil {
		code := "internal"
		if failure, ok := authz.AsFailure(err); ok {
			code = string(failure.Code)
		}

		span.SetAttributes(
			attribute.Bool("authz.allowed", false),
			attribute.String("authz.code", code),
		)
		tracer.Fail(span, err)
		s.record(ctx, outcomeDeny, code)

		logger.InfoContext(ctx, "request denied",
			slog.String("permission", permission),
			slog.String("code", code),
			logger.Err(err),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("authz.allowed", true),
		attribute.String("authz.subject", decoded.Subject()),
	)
	s.record(ctx, outcomeAllow, "")

	return decoded, nil
}

func (s *service) record(ctx context.Context, outcome, code string) {
	if s.decisions == nil {
		return
	}
	s.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("code", code),
	))
}
