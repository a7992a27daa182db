package drink

import "errors"

const maxTitleLength = 80

var (
	ErrDrinkNotFound  = errors.New("drink not found")
	ErrInvalidDrink   = errors.New("invalid drink")
	ErrDuplicateTitle = errors.New("drink title already exists")
)

// CreateInput carries the fields of a new drink.
type CreateInput struct {
	Title  string
	Recipe Recipe
}

// Patch carries the fields to change on an existing drink. Nil fields are
// left untouched.
type Patch struct {
	Title  *string
	Recipe *Recipe
}
