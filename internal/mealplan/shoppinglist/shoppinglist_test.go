package shoppinglist

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qty(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestKeyNormalizes(t *testing.T) {
	assert.Equal(t, Key("Red Onion", "pcs", "Vegetables"), Key("  red onion ", "PCS", "vegetables"))
	assert.NotEqual(t, Key("milk", "ml", "dairy"), Key("milk", "l", "dairy"))
	assert.Equal(t, "-/salt/-", Key("Salt", "", ""))
}

func TestAggregateSumsAcrossRecipes(t *testing.T) {
	agg := Aggregate([]Line{
		{Name: "Tomato", Unit: "pcs", Category: "Vegetables", Quantity: qty("2"), Source: "Pasta"},
		{Name: "tomato", Unit: "pcs", Category: "vegetables", Quantity: qty("3"), Source: "Salad"},
		{Name: "Tomato", Unit: "g", Category: "Vegetables", Quantity: qty("200"), Source: "Salad"},
	})

	require.Len(t, agg, 2)
	item := agg[Key("tomato", "pcs", "vegetables")]
	require.NotNil(t, item)
	assert.True(t, item.Quantity.Equal(qty("5")))
	assert.Equal(t, "Tomato", item.Name)
	assert.Equal(t, []string{"Pasta", "Salad"}, item.Sources)
	assert.True(t, item.FromRecipes)
	assert.False(t, item.Manual)
}

func TestMergeGroupsAndAppliesCheckedOverlay(t *testing.T) {
	agg := Aggregate([]Line{
		{Name: "Milk", Unit: "ml", Category: "Dairy", Quantity: qty("500")},
		{Name: "Basil", Unit: "bunch", Category: "Herbs", Quantity: qty("1")},
		{Name: "Apple", Unit: "pcs", Category: "Fruit", Quantity: qty("4")},
	})
	manual := []Line{
		{Name: "milk", Unit: "ml", Category: "dairy", Quantity: qty("250")},
		{Name: "Dish soap", Unit: "", Category: "", Quantity: qty("1")},
	}
	checked := map[string]bool{Key("Basil", "bunch", "Herbs"): true}

	list := Merge(agg, manual, checked)

	require.Len(t, list.Active, 3)
	assert.Equal(t, "dairy", list.Active[0].Category)
	assert.Equal(t, "fruit", list.Active[1].Category)
	assert.Equal(t, UncategorizedLabel, list.Active[2].Category)

	milk := list.Active[0].Items[0]
	assert.True(t, milk.Quantity.Equal(qty("750")))
	assert.True(t, milk.Manual)
	assert.True(t, milk.FromRecipes)

	soap := list.Active[2].Items[0]
	assert.True(t, soap.Manual)
	assert.False(t, soap.FromRecipes)

	require.Len(t, list.Checked, 1)
	assert.Equal(t, "Basil", list.Checked[0].Name)
	assert.True(t, list.Checked[0].Checked)

	// the aggregated input is not mutated by the merge
	assert.True(t, agg[Key("milk", "ml", "dairy")].Quantity.Equal(qty("500")))
}

func TestMergeGroupsCategoriesBySlug(t *testing.T) {
	agg := Aggregate([]Line{
		{Name: "Eggs", Unit: "pcs", Category: "Dairy & Eggs", Quantity: qty("6")},
		{Name: "Butter", Unit: "g", Category: "dairy and eggs", Quantity: qty("250")},
	})
	manual := []Line{{Name: "eggs", Unit: "pcs", Category: "Dairy and Eggs", Quantity: qty("6")}}

	list := Merge(agg, manual, nil)

	require.Len(t, list.Active, 1)
	group := list.Active[0]
	assert.Equal(t, "dairy & eggs", group.Category)
	require.Len(t, group.Items, 2)
	assert.Equal(t, "Butter", group.Items[0].Name)
	assert.Equal(t, "Eggs", group.Items[1].Name)
	assert.True(t, group.Items[1].Quantity.Equal(qty("12")))
	for _, item := range group.Items {
		assert.Equal(t, group.Category, item.Category)
	}
}

func TestMergeEmpty(t *testing.T) {
	list := Merge(nil, nil, nil)
	assert.Empty(t, list.Active)
	assert.Empty(t, list.Checked)
}
