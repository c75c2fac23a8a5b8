// Package shoppinglist merges a week's recipe ingredients with manual items
// into a category-grouped shopping list.
package shoppinglist

import (
	"slices"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

// UncategorizedLabel groups items without a category.
const UncategorizedLabel = "other"

// Line is one quantity of one ingredient from a recipe or a manual entry.
type Line struct {
	Name     string
	Unit     string
	Category string
	Quantity decimal.Decimal
	Source   string
}

// Item is one merged row of the list.
type Item struct {
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	Quantity    decimal.Decimal `json:"quantity"`
	FromRecipes bool            `json:"from_recipes"`
	Manual      bool            `json:"manual"`
	Checked     bool            `json:"checked"`
	Sources     []string        `json:"sources,omitempty"`
}

type Group struct {
	Category string `json:"category"`
	Items    []Item `json:"items"`
}

// List is the merged view: Active excludes checked items, Checked holds them.
type List struct {
	Active  []Group `json:"active"`
	Checked []Item  `json:"checked"`
}

// Key normalizes (name, unit, category) into the stable item key.
func Key(name, unit, category string) string {
	return normalizePart(category) + "/" + normalizePart(name) + "/" + normalizePart(unit)
}

func normalizePart(value string) string {
	s := slug.Make(strings.TrimSpace(value))
	if s == "" {
		return "-"
	}
	return s
}

// Aggregate sums recipe lines by key. The first spelling seen for a key is kept for display.
func Aggregate(lines []Line) map[string]*Item {
	out := make(map[string]*Item, len(lines))
	for _, line := range lines {
		add(out, line, false)
	}
	return out
}

// Merge folds manual lines into the aggregated items and applies the checked overlay.
func Merge(aggregated map[string]*Item, manual []Line, checked map[string]bool) List {
	items := make(map[string]*Item, len(aggregated)+len(manual))
	for key, item := range aggregated {
		cp := *item
		cp.Sources = append([]string(nil), item.Sources...)
		items[key] = &cp
	}
	for _, line := range manual {
		add(items, line, true)
	}

	// Categories that slug the same share one group under the smallest label seen.
	labels := map[string]string{}
	for _, item := range items {
		group := categoryOf(item.Key)
		if label, ok := labels[group]; !ok || item.Category < label {
			labels[group] = item.Category
		}
	}

	list := List{Active: []Group{}, Checked: []Item{}}
	byCategory := map[string][]Item{}
	for key, item := range items {
		group := categoryOf(key)
		item.Category = labels[group]
		if checked[key] {
			item.Checked = true
			list.Checked = append(list.Checked, *item)
			continue
		}
		byCategory[group] = append(byCategory[group], *item)
	}

	groups := make([]string, 0, len(byCategory))
	for group := range byCategory {
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		if labels[groups[i]] != labels[groups[j]] {
			return labels[groups[i]] < labels[groups[j]]
		}
		return groups[i] < groups[j]
	})

	for _, group := range groups {
		members := byCategory[group]
		sortItems(members)
		list.Active = append(list.Active, Group{Category: labels[group], Items: members})
	}
	sortItems(list.Checked)
	return list
}

// categoryOf returns the slugged category part of an item key.
func categoryOf(key string) string {
	category, _, _ := strings.Cut(key, "/")
	return category
}

func add(items map[string]*Item, line Line, manual bool) {
	category := strings.TrimSpace(line.Category)
	if category == "" {
		category = UncategorizedLabel
	}
	key := Key(line.Name, line.Unit, category)

	item, ok := items[key]
	if !ok {
		item = &Item{
			Key:      key,
			Name:     strings.TrimSpace(line.Name),
			Unit:     strings.TrimSpace(line.Unit),
			Category: strings.ToLower(category),
			Quantity: decimal.Zero,
		}
		items[key] = item
	}
	item.Quantity = item.Quantity.Add(line.Quantity)
	if manual {
		item.Manual = true
	} else {
		item.FromRecipes = true
	}
	if source := strings.TrimSpace(line.Source); source != "" && !slices.Contains(item.Sources, source) {
		item.Sources = append(item.Sources, source)
	}
}

func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		ni, nj := strings.ToLower(items[i].Name), strings.ToLower(items[j].Name)
		if ni != nj {
			return ni < nj
		}
		return items[i].Key < items[j].Key
	})
}
