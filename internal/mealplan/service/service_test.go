package service

import (
	"context"
	"testing"
	"time"

	"github.com/brikx/coach/internal/clock"
	"github.com/brikx/coach/internal/mealplan/domain"
	"github.com/brikx/coach/internal/mealplan/repository"
	"github.com/brikx/coach/internal/mealplan/shoppinglist"
	"github.com/brikx/coach/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) (domain.Service, context.Context) {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	_, ctx := testutil.SeedUser(t, db, node, "julia@example.com")

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		// Wednesday
		Clock: clock.NewFakeClock(time.Date(2024, 3, 13, 18, 0, 0, 0, time.UTC)),
	})
	return svc, ctx
}

func qty(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func findItem(groups []shoppinglist.Group, key string) (shoppinglist.Item, bool) {
	for _, g := range groups {
		for _, item := range g.Items {
			if item.Key == key {
				return item, true
			}
		}
	}
	return shoppinglist.Item{}, false
}

func TestShoppingListAggregatesScalesAndMerges(t *testing.T) {
	svc, ctx := newService(t)

	pasta, err := svc.CreateRecipe(ctx, domain.CreateRecipeRequest{
		Name:     "Pasta",
		Servings: 2,
		Ingredients: []domain.IngredientRequest{
			{Name: "Spaghetti", Quantity: qty("200"), Unit: "g", Category: "Pantry"},
			{Name: "Tomato", Quantity: qty("3"), Unit: "pcs", Category: "Produce"},
		},
	})
	require.NoError(t, err)
	salad, err := svc.CreateRecipe(ctx, domain.CreateRecipeRequest{
		Name:     "Salad",
		Servings: 1,
		Ingredients: []domain.IngredientRequest{
			{Name: "tomato ", Quantity: qty("1"), Unit: "PCS", Category: "produce"},
		},
	})
	require.NoError(t, err)

	_, err = svc.PlanMeal(ctx, domain.PlanMealRequest{RecipeID: pasta.ID.String(), PlannedOn: "2024-03-11", Servings: 4})
	require.NoError(t, err)
	_, err = svc.PlanMeal(ctx, domain.PlanMealRequest{RecipeID: salad.ID.String(), PlannedOn: "2024-03-17", MealType: domain.MealTypeLunch})
	require.NoError(t, err)
	// next week, excluded
	_, err = svc.PlanMeal(ctx, domain.PlanMealRequest{RecipeID: salad.ID.String(), PlannedOn: "2024-03-18"})
	require.NoError(t, err)

	_, err = svc.AddManualItem(ctx, domain.AddManualItemRequest{Name: "Tomato", Quantity: qty("2"), Unit: "pcs", Category: "Produce"})
	require.NoError(t, err)
	_, err = svc.AddManualItem(ctx, domain.AddManualItemRequest{Name: "Soap"})
	require.NoError(t, err)

	list, err := svc.ShoppingList(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, testutil.Date(2024, 3, 11), list.WeekStart)

	tomato, ok := findItem(list.Active, shoppinglist.Key("Tomato", "pcs", "Produce"))
	require.True(t, ok)
	assert.True(t, tomato.Quantity.Equal(qty("9")), tomato.Quantity.String())
	assert.True(t, tomato.FromRecipes)
	assert.True(t, tomato.Manual)

	spaghetti, ok := findItem(list.Active, shoppinglist.Key("Spaghetti", "g", "Pantry"))
	require.True(t, ok)
	assert.True(t, spaghetti.Quantity.Equal(qty("400")))

	soap, ok := findItem(list.Active, shoppinglist.Key("Soap", "", shoppinglist.UncategorizedLabel))
	require.True(t, ok)
	assert.True(t, soap.Manual)
	assert.False(t, soap.FromRecipes)
	assert.True(t, soap.Quantity.Equal(qty("1")))

	categories := make([]string, 0, len(list.Active))
	for _, g := range list.Active {
		categories = append(categories, g.Category)
	}
	assert.Equal(t, []string{"other", "pantry", "produce"}, categories)
}

func TestToggleCheckedMovesItemOutOfActive(t *testing.T) {
	svc, ctx := newService(t)
	_, err := svc.AddManualItem(ctx, domain.AddManualItemRequest{WeekStart: "2024-03-14", Name: "Milk", Quantity: qty("1"), Unit: "l", Category: "Dairy"})
	require.NoError(t, err)
	key := shoppinglist.Key("Milk", "l", "Dairy")

	checked, err := svc.ToggleChecked(ctx, domain.ToggleCheckedRequest{WeekStart: "2024-03-11", ItemKey: key})
	require.NoError(t, err)
	assert.True(t, checked)

	list, err := svc.ShoppingList(ctx, "2024-03-11")
	require.NoError(t, err)
	assert.Empty(t, list.Active)
	require.Len(t, list.Checked, 1)
	assert.Equal(t, key, list.Checked[0].Key)

	checked, err = svc.ToggleChecked(ctx, domain.ToggleCheckedRequest{WeekStart: "2024-03-11", ItemKey: key})
	require.NoError(t, err)
	assert.False(t, checked)

	list, err = svc.ShoppingList(ctx, "2024-03-11")
	require.NoError(t, err)
	assert.Len(t, list.Active, 1)
	assert.Empty(t, list.Checked)
}

func TestRemovePlannedMealAndManualItem(t *testing.T) {
	svc, ctx := newService(t)
	recipe, err := svc.CreateRecipe(ctx, domain.CreateRecipeRequest{
		Name:        "Toast",
		Servings:    1,
		Ingredients: []domain.IngredientRequest{{Name: "Bread", Quantity: qty("2"), Unit: "slices"}},
	})
	require.NoError(t, err)
	planned, err := svc.PlanMeal(ctx, domain.PlanMealRequest{RecipeID: recipe.ID.String(), PlannedOn: "2024-03-12", MealType: domain.MealTypeBreakfast})
	require.NoError(t, err)
	item, err := svc.AddManualItem(ctx, domain.AddManualItemRequest{Name: "Butter"})
	require.NoError(t, err)

	plan, err := svc.ListPlan(ctx, "2024-03-12")
	require.NoError(t, err)
	assert.Len(t, plan, 1)

	require.NoError(t, svc.RemovePlannedMeal(ctx, planned.ID.String()))
	require.NoError(t, svc.RemoveManualItem(ctx, item.ID.String()))
	assert.ErrorIs(t, svc.RemovePlannedMeal(ctx, planned.ID.String()), domain.ErrNotFound)

	list, err := svc.ShoppingList(ctx, "2024-03-12")
	require.NoError(t, err)
	assert.Empty(t, list.Active)
}

func TestMealPlanValidation(t *testing.T) {
	svc, ctx := newService(t)

	_, err := svc.CreateRecipe(ctx, domain.CreateRecipeRequest{Name: "", Servings: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.CreateRecipe(ctx, domain.CreateRecipeRequest{Name: "Soup", Servings: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidServings)

	_, err = svc.CreateRecipe(ctx, domain.CreateRecipeRequest{
		Name:        "Soup",
		Servings:    2,
		Ingredients: []domain.IngredientRequest{{Name: "Water", Quantity: qty("0")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.PlanMeal(ctx, domain.PlanMealRequest{RecipeID: "1", PlannedOn: "2024-03-12"})
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)

	_, err = svc.PlanMeal(ctx, domain.PlanMealRequest{RecipeID: "1", PlannedOn: "12.03.2024"})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = svc.PlanMeal(ctx, domain.PlanMealRequest{RecipeID: "1", PlannedOn: "2024-03-12", MealType: "brunch"})
	assert.ErrorIs(t, err, domain.ErrInvalidMealType)

	_, err = svc.ToggleChecked(ctx, domain.ToggleCheckedRequest{ItemKey: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidItemKey)

	_, err = svc.ShoppingList(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}
