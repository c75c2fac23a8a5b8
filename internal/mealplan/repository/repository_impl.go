package repository

import (
	"context"
	"time"

	"github.com/brikx/coach/internal/mealplan/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// InsertRecipe writes the recipe row and its ingredients.
func (r *repo) InsertRecipe(ctx context.Context, db *gorm.DB, recipe *domain.Recipe) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ingredients := recipe.Ingredients
		if err := tx.Omit("Ingredients").Create(recipe).Error; err != nil {
			return err
		}
		if len(ingredients) == 0 {
			return nil
		}
		return tx.Create(&ingredients).Error
	})
}

func (r *repo) FindRecipe(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*domain.Recipe, error) {
	var recipe domain.Recipe
	err := db.WithContext(ctx).
		Preload("Ingredients", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("sort_order asc")
		}).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&recipe).Error
	if err != nil {
		return nil, err
	}
	if recipe.ID == 0 {
		return nil, nil
	}
	return &recipe, nil
}

func (r *repo) ListRecipes(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.Recipe, error) {
	var items []domain.Recipe
	err := db.WithContext(ctx).
		Preload("Ingredients", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("sort_order asc")
		}).
		Where("user_id = ?", userID).
		Order("name asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) InsertPlanEntry(ctx context.Context, db *gorm.DB, entry *domain.MealPlanEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) DeletePlanEntry(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM meal_plan_entries WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListPlanEntries(ctx context.Context, db *gorm.DB, userID snowflake.ID, from, to time.Time) ([]domain.MealPlanEntry, error) {
	var items []domain.MealPlanEntry
	err := db.WithContext(ctx).
		Where("user_id = ? AND planned_on >= ? AND planned_on < ?", userID, from, to).
		Order("planned_on asc, created_at asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) ListPlannedIngredients(ctx context.Context, db *gorm.DB, userID snowflake.ID, from, to time.Time) ([]domain.PlannedIngredient, error) {
	var rows []domain.PlannedIngredient
	err := db.WithContext(ctx).Raw(
		`SELECT r.name AS recipe_name, r.servings AS recipe_servings, m.servings AS plan_servings,
		        i.name AS name, i.unit AS unit, i.category AS category, i.quantity AS quantity
		 FROM meal_plan_entries m
		 JOIN recipes r ON r.id = m.recipe_id AND r.user_id = m.user_id
		 JOIN recipe_ingredients i ON i.recipe_id = r.id
		 WHERE m.user_id = ? AND m.planned_on >= ? AND m.planned_on < ?
		 ORDER BY m.planned_on, m.id, i.sort_order`,
		userID,
		from,
		to,
	).Scan(&rows).Error
	return rows, err
}

func (r *repo) InsertManualItem(ctx context.Context, db *gorm.DB, item *domain.ManualItem) error {
	return db.WithContext(ctx).Create(item).Error
}

func (r *repo) DeleteManualItem(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM shopping_manual_items WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListManualItems(ctx context.Context, db *gorm.DB, userID snowflake.ID, weekStart time.Time) ([]domain.ManualItem, error) {
	var items []domain.ManualItem
	err := db.WithContext(ctx).
		Where("user_id = ? AND week_start = ?", userID, weekStart).
		Order("created_at asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) SetChecked(ctx context.Context, db *gorm.DB, item *domain.CheckedItem) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(item).Error
}

func (r *repo) ClearChecked(ctx context.Context, db *gorm.DB, userID snowflake.ID, weekStart time.Time, itemKey string) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM shopping_checked_items WHERE user_id = ? AND week_start = ? AND item_key = ?`,
		userID,
		weekStart,
		itemKey,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListChecked(ctx context.Context, db *gorm.DB, userID snowflake.ID, weekStart time.Time) ([]domain.CheckedItem, error) {
	var items []domain.CheckedItem
	err := db.WithContext(ctx).
		Where("user_id = ? AND week_start = ?", userID, weekStart).
		Find(&items).Error
	return items, err
}
