package drink

import (
	"context"
)

type Service interface {
	ListDrinks(ctx context.Context) ([]*Drink, error)

	CreateDrink(ctx context.Context, input CreateInput) (*Drink, error)

	UpdateDrink(ctx context.Context, id uint, patch Patch) (*Drink, error)

	DeleteDrink(ctx context.Context, id uint) error
}
