package drink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/astro-web3/coffee-drinks/pkg/logger"
)

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) ListDrinks(ctx context.Context) ([]*Drink, error) {
	drinks, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list drinks: %w", err)
	}
	return drinks, nil
}

func (s *service) CreateDrink(ctx context.Context, input CreateInput) (*Drink, error) {
	d := &Drink{
		Title:  strings.TrimSpace(input.Title),
		Recipe: input.Recipe.clone(),
	}
	if err := Validate(d); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, d); err != nil {
		if errors.Is(err, ErrDuplicateTitle) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create drink: %w", err)
	}

	logger.DebugContext(ctx, "drink stored",
		slog.Uint64("drink_id", uint64(d.ID)),
		slog.String("title", d.Title),
	)

	return d, nil
}

func (s *service) UpdateDrink(ctx context.Context, id uint, patch Patch) (*Drink, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		d.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Recipe != nil {
		d.Recipe = patch.Recipe.clone()
	}
	if err := Validate(d); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, d); err != nil {
		if errors.Is(err, ErrDuplicateTitle) || errors.Is(err, ErrDrinkNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update drink: %w", err)
	}

	return d, nil
}

func (s *service) DeleteDrink(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrDrinkNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete drink: %w", err)
	}
	return nil
}

// Validate reports every problem with d wrapped in ErrInvalidDrink.
func Validate(d *Drink) error {
	var problems []string

	switch {
	case d.Title == "":
		problems = append(problems, "title is required")
	case utf8.RuneCountInString(d.Title) > maxTitleLength:
		problems = append(problems, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}

	if len(d.Recipe) == 0 {
		problems = append(problems, "recipe must contain at least one ingredient")
	}
	for i, ing := range d.Recipe {
		if strings.TrimSpace(ing.Name) == "" {
			problems = append(problems, fmt.Sprintf("recipe[%d].name is required", i))
		}
		if strings.TrimSpace(ing.Color) == "" {
			problems = append(problems, fmt.Sprintf("recipe[%d].color is required", i))
		}
		if ing.Parts <= 0 {
			problems = append(problems, fmt.Sprintf("recipe[%d].parts must be positive", i))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDrink, strings.Join(problems, "; "))
	}
	return nil
}
