package drink

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Ingredient struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

// Recipe is an ordered list of ingredients. In request bodies it may also be
// given as a single ingredient object.
type Recipe []Ingredient

func (r *Recipe) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var single Ingredient
		if err := json.Unmarshal(data, &single); err != nil {
			return fmt.Errorf("recipe: %w", err)
		}
		*r = Recipe{single}
		return nil
	}

	var list []Ingredient
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("recipe: %w", err)
	}
	*r = list
	return nil
}

func (r Recipe) clone() Recipe {
	if r == nil {
		return nil
	}
	out := make(Recipe, len(r))
	copy(out, r)
	return out
}

type Drink struct {
	ID     uint
	Title  string
	Recipe Recipe
}

// Clone returns a copy that shares no memory with d.
func (d *Drink) Clone() *Drink {
	return &Drink{
		ID:     d.ID,
		Title:  d.Title,
		Recipe: d.Recipe.clone(),
	}
}

type ShortIngredient struct {
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

// ShortDrink is the public representation; ingredient names are withheld.
type ShortDrink struct {
	ID     uint              `json:"id"`
	Title  string            `json:"title"`
	Recipe []ShortIngredient `json:"recipe"`
}

// LongDrink is the full representation shown to staff.
type LongDrink struct {
	ID     uint         `json:"id"`
	Title  string       `json:"title"`
	Recipe []Ingredient `json:"recipe"`
}

func (d *Drink) Short() ShortDrink {
	recipe := make([]ShortIngredient, 0, len(d.Recipe))
	for _, i := range d.Recipe {
		recipe = append(recipe, ShortIngredient{Color: i.Color, Parts: i.Parts})
	}
	return ShortDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

func (d *Drink) Long() LongDrink {
	recipe := make([]Ingredient, 0, len(d.Recipe))
	recipe = append(recipe, d.Recipe...)
	return LongDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}
