package drink

import (
	"context"
	"log/slog"

	drinkdomain "github.com/astro-web3/coffee-drinks/internal/domain/drink"
	"github.com/astro-web3/coffee-drinks/pkg/logger"
	"github.com/astro-web3/coffee-drinks/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
)

type CommandService struct {
	domainService drinkdomain.Service
}

func NewCommandService(domainService drinkdomain.Service) *CommandService {
	return &CommandService{
		domainService: domainService,
	}
}

func (s *CommandService) CreateDrink(ctx context.Context, input drinkdomain.CreateInput) (*drinkdomain.Drink, error) {
	ctx, span := tracer.Start(ctx, "app.drink.CreateDrink")
	defer span.End()

	span.SetAttributes(
		attribute.String("drink.title", input.Title),
		attribute.Int("drink.ingredients", len(input.Recipe)),
	)

	d, err := s.domainService.CreateDrink(ctx, input)
	if err != nil {
		tracer.Fail(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("drink.id", int64(d.ID)))
	logger.InfoContext(ctx, "drink created",
		slog.Uint64("drink_id", uint64(d.ID)),
		slog.String("title", d.Title),
	)

	return d, nil
}

func (s *CommandService) UpdateDrink(ctx context.Context, id uint, patch drinkdomain.Patch) (*drinkdomain.Drink, error) {
	ctx, span := tracer.Start(ctx, "app.drink.UpdateDrink")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("drink.id", int64(id)),
		attribute.Bool("drink.patch.title", patch.Title != nil),
		attribute.Bool("drink.patch.recipe", patch.Recipe != nil),
	)

	d, err := s.domainService.UpdateDrink(ctx, id, patch)
	if err != nil {
		tracer.Fail(span, err)
		return nil, err
	}

	logger.InfoContext(ctx, "drink updated", slog.Uint64("drink_id", uint64(id)))
	return d, nil
}

func (s *CommandService) DeleteDrink(ctx context.Context, id uint) error {
	ctx, span := tracer.Start(ctx, "app.drink.DeleteDrink")
	defer span.End()

	span.SetAttributes(attribute.Int64("drink.id", int64(id)))

	if err := s.domainService.DeleteDrink(ctx, id); err != nil {
		tracer.Fail(span, err)
		return err
	}

	logger.InfoContext(ctx, "drink deleted", slog.Uint64("drink_id", uint64(id)))
	return nil
}
