package drink

import (
	"context"

	drinkdomain "github.com/astro-web3/coffee-drinks/internal/domain/drink"
	"github.com/astro-web3/coffee-drinks/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
)

type QueryService struct {
	domainService drinkdomain.Service
}

func NewQueryService(domainService drinkdomain.Service) *QueryService {
	return &QueryService{
		domainService: domainService,
	}
}

func (s *QueryService) ListDrinks(ctx context.Context) ([]*drinkdomain.Drink, error) {
	ctx, span := tracer.Start(ctx, "app.drink.ListDrinks")
	defer span.End()

	drinks, err := s.domainService.ListDrinks(ctx)
	if err != nil {
		tracer.Fail(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("drink.count", len(drinks)))
	return drinks, nil
}
