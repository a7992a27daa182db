package drink

import (
	"context"
)

// CommandRepository reports ErrDuplicateTitle on a title collision and
// ErrDrinkNotFound when the target row does not exist.
type CommandRepository interface {
	Create(ctx context.Context, d *Drink) error
	Update(ctx context.Context, d *Drink) error
	Delete(ctx context.Context, id uint) error
}

type QueryRepository interface {
	List(ctx context.Context) ([]*Drink, error)
	GetByID(ctx context.Context, id uint) (*Drink, error)
}

type Repository interface {
	CommandRepository
	QueryRepository
}
