package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlannedIngredient is one ingredient row of one planned meal, joined with its recipe.
type PlannedIngredient struct {
	RecipeName     string
	RecipeServings int
	PlanServings   int
	Name           string
	Unit           string
	Category       string
	Quantity       decimal.Decimal
}

type Repository interface {
	InsertRecipe(ctx context.Context, db *gorm.DB, recipe *Recipe) error
	FindRecipe(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*Recipe, error)
	ListRecipes(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Recipe, error)

	InsertPlanEntry(ctx context.Context, db *gorm.DB, entry *MealPlanEntry) error
	DeletePlanEntry(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error)
	ListPlanEntries(ctx context.Context, db *gorm.DB, userID snowflake.ID, from, to time.Time) ([]MealPlanEntry, error)
	ListPlannedIngredients(ctx context.Context, db *gorm.DB, userID snowflake.ID, from, to time.Time) ([]PlannedIngredient, error)

	InsertManualItem(ctx context.Context, db *gorm.DB, item *ManualItem) error
	DeleteManualItem(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error)
	ListManualItems(ctx context.Context, db *gorm.DB, userID snowflake.ID, weekStart time.Time) ([]ManualItem, error)

	SetChecked(ctx context.Context, db *gorm.DB, item *CheckedItem) error
	ClearChecked(ctx context.Context, db *gorm.DB, userID snowflake.ID, weekStart time.Time, itemKey string) (int64, error)
	ListChecked(ctx context.Context, db *gorm.DB, userID snowflake.ID, weekStart time.Time) ([]CheckedItem, error)
}
