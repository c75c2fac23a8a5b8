package domain

import (
	"context"
	"errors"
	"time"

	"github.com/brikx/coach/internal/mealplan/shoppinglist"
	"github.com/shopspring/decimal"
)

type Service interface {
	CreateRecipe(ctx context.Context, req CreateRecipeRequest) (*Recipe, error)
	ListRecipes(ctx context.Context) ([]Recipe, error)
	PlanMeal(ctx context.Context, req PlanMealRequest) (*MealPlanEntry, error)
	RemovePlannedMeal(ctx context.Context, id string) error
	ListPlan(ctx context.Context, weekStart string) ([]MealPlanEntry, error)
	AddManualItem(ctx context.Context, req AddManualItemRequest) (*ManualItem, error)
	RemoveManualItem(ctx context.Context, id string) error
	ToggleChecked(ctx context.Context, req ToggleCheckedRequest) (bool, error)
	ShoppingList(ctx context.Context, weekStart string) (*ShoppingListResponse, error)
}

type IngredientRequest struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Category string          `json:"category"`
}

type CreateRecipeRequest struct {
	Name         string              `json:"name"`
	Servings     int                 `json:"servings"`
	Instructions string              `json:"instructions"`
	Ingredients  []IngredientRequest `json:"ingredients"`
}

type PlanMealRequest struct {
	RecipeID  string   `json:"recipe_id"`
	PlannedOn string   `json:"planned_on"`
	MealType  MealType `json:"meal_type"`
	// Servings defaults to the recipe's own serving count.
	Servings int `json:"servings"`
}

type AddManualItemRequest struct {
	WeekStart string          `json:"week_start"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	Category  string          `json:"category"`
}

type ToggleCheckedRequest struct {
	WeekStart string `json:"week_start"`
	ItemKey   string `json:"item_key"`
}

type ShoppingListResponse struct {
	WeekStart time.Time `json:"week_start"`
	shoppinglist.List
}

var (
	ErrInvalidUser     = errors.New("invalid_user")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidServings = errors.New("invalid_servings")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidDate     = errors.New("invalid_date")
	ErrInvalidMealType = errors.New("invalid_meal_type")
	ErrInvalidItemKey  = errors.New("invalid_item_key")
	ErrRecipeNotFound  = errors.New("recipe_not_found")
	ErrNotFound        = errors.New("not_found")
)
