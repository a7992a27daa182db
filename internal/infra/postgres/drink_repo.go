package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/astro-web3/coffee-drinks/internal/domain/drink"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

// drinkModel stores the recipe as a JSON document, like the menu service
// always has.
type drinkModel struct {
	ID     uint   `gorm:"column:id;primaryKey"`
	Title  string `gorm:"column:title;size:80;uniqueIndex;not null"`
	Recipe string `gorm:"column:recipe;type:text;not null"`
}

func (drinkModel) TableName() string {
	return "drinks"
}

func drinkModelFromEntity(d *drink.Drink) (drinkModel, error) {
	recipe := d.Recipe
	if recipe == nil {
		recipe = drink.Recipe{}
	}
	raw, err := json.Marshal(recipe)
	if err != nil {
		return drinkModel{}, fmt.Errorf("encode recipe: %w", err)
	}
	return drinkModel{ID: d.ID, Title: d.Title, Recipe: string(raw)}, nil
}

func (m drinkModel) toEntity() (*drink.Drink, error) {
	var recipe drink.Recipe
	if err := json.Unmarshal([]byte(m.Recipe), &recipe); err != nil {
		return nil, fmt.Errorf("decode recipe of drink %d: %w", m.ID, err)
	}
	return &drink.Drink{ID: m.ID, Title: m.Title, Recipe: recipe}, nil
}

type DrinkRepository struct {
	db *gorm.DB
}

func NewDrinkRepository(db *DB) *DrinkRepository {
	return &DrinkRepository{db: db.DB}
}

func (r *DrinkRepository) Create(ctx context.Context, d *drink.Drink) error {
	row, err := drinkModelFromEntity(d)
	if err != nil {
		return err
	}
	row.ID = 0

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return drink.ErrDuplicateTitle
		}
		return err
	}
	d.ID = row.ID
	return nil
}

func (r *DrinkRepository) Update(ctx context.Context, d *drink.Drink) error {
	row, err := drinkModelFromEntity(d)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&drinkModel{}).
		Where("id = ?", d.ID).
		Updates(map[string]any{
			"title":  row.Title,
			"recipe": row.Recipe,
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return drink.ErrDuplicateTitle
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return drink.ErrDrinkNotFound
	}
	return nil
}

func (r *DrinkRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&drinkModel{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return drink.ErrDrinkNotFound
	}
	return nil
}

func (r *DrinkRepository) List(ctx context.Context) ([]*drink.Drink, error) {
	var rows []drinkModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]*drink.Drink, 0, len(rows))
	for _, row := range rows {
		d, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, nil
}

func (r *DrinkRepository) GetByID(ctx context.Context, id uint) (*drink.Drink, error) {
	var row drinkModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, drink.ErrDrinkNotFound
		}
		return nil, err
	}
	return row.toEntity()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
