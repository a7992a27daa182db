package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/astro-web3/coffee-drinks/internal/domain/drink"
)

// DrinkRepository keeps drinks in process memory. It is used when no
// database is configured.
type DrinkRepository struct {
	mu     sync.RWMutex
	drinks map[uint]*drink.Drink
	nextID uint
}

func NewDrinkRepository() *DrinkRepository {
	return &DrinkRepository{
		drinks: make(map[uint]*drink.Drink),
		nextID: 1,
	}
}

func (r *DrinkRepository) Create(_ context.Context, d *drink.Drink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.titleTaken(d.Title, 0) {
		return drink.ErrDuplicateTitle
	}

	d.ID = r.nextID
	r.nextID++
	r.drinks[d.ID] = d.Clone()
	return nil
}

func (r *DrinkRepository) Update(_ context.Context, d *drink.Drink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.drinks[d.ID]; !ok {
		return drink.ErrDrinkNotFound
	}
	if r.titleTaken(d.Title, d.ID) {
		return drink.ErrDuplicateTitle
	}

	r.drinks[d.ID] = d.Clone()
	return nil
}

func (r *DrinkRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.drinks[id]; !ok {
		return drink.ErrDrinkNotFound
	}
	delete(r.drinks, id)
	return nil
}

func (r *DrinkRepository) List(_ context.Context) ([]*drink.Drink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*drink.Drink, 0, len(r.drinks))
	for _, d := range r.drinks {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *DrinkRepository) GetByID(_ context.Context, id uint) (*drink.Drink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drinks[id]
	if !ok {
		return nil, drink.ErrDrinkNotFound
	}
	return d.Clone(), nil
}

// titleTaken must be called with mu held.
func (r *DrinkRepository) titleTaken(title string, except uint) bool {
	for id, d := range r.drinks {
		if id != except && d.Title == title {
			return true
		}
	}
	return false
}
