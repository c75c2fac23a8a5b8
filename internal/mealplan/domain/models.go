package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
	MealTypeSnack     MealType = "snack"
)

func (m MealType) Valid() bool {
	switch m {
	case MealTypeBreakfast, MealTypeLunch, MealTypeDinner, MealTypeSnack:
		return true
	}
	return false
}

type Recipe struct {
	ID           snowflake.ID       `gorm:"primaryKey" json:"id"`
	UserID       snowflake.ID       `gorm:"column:user_id;not null;index" json:"-"`
	Name         string             `gorm:"type:text;not null" json:"name"`
	Servings     int                `gorm:"not null" json:"servings"`
	Instructions string             `gorm:"type:text;not null;default:''" json:"instructions"`
	Ingredients  []RecipeIngredient `gorm:"foreignKey:RecipeID" json:"ingredients"`
	CreatedAt    time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Recipe) TableName() string { return "recipes" }

type RecipeIngredient struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	RecipeID  snowflake.ID    `gorm:"column:recipe_id;not null;index" json:"-"`
	Name      string          `gorm:"type:text;not null" json:"name"`
	Quantity  decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantity"`
	Unit      string          `gorm:"type:text;not null;default:''" json:"unit"`
	Category  string          `gorm:"type:text;not null;default:''" json:"category"`
	SortOrder int             `gorm:"column:sort_order;not null" json:"sort_order"`
}

// TableName sets the database table name.
func (RecipeIngredient) TableName() string { return "recipe_ingredients" }

// MealPlanEntry schedules a recipe for a day at a given serving count.
type MealPlanEntry struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;index:idx_meal_plan_user_day,priority:1" json:"-"`
	RecipeID  snowflake.ID `gorm:"column:recipe_id;not null" json:"recipe_id"`
	PlannedOn time.Time    `gorm:"column:planned_on;type:date;not null;index:idx_meal_plan_user_day,priority:2" json:"planned_on"`
	MealType  MealType     `gorm:"column:meal_type;type:text;not null" json:"meal_type"`
	Servings  int          `gorm:"not null" json:"servings"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (MealPlanEntry) TableName() string { return "meal_plan_entries" }

// ManualItem is a shopping list line added by hand for one week.
type ManualItem struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID    `gorm:"column:user_id;not null;index:idx_manual_items_week,priority:1" json:"-"`
	WeekStart time.Time       `gorm:"column:week_start;type:date;not null;index:idx_manual_items_week,priority:2" json:"week_start"`
	Name      string          `gorm:"type:text;not null" json:"name"`
	Quantity  decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantity"`
	Unit      string          `gorm:"type:text;not null;default:''" json:"unit"`
	Category  string          `gorm:"type:text;not null;default:''" json:"category"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (ManualItem) TableName() string { return "shopping_manual_items" }

// CheckedItem marks an item key as bought for one week.
type CheckedItem struct {
	UserID    snowflake.ID `gorm:"column:user_id;primaryKey"`
	WeekStart time.Time    `gorm:"column:week_start;type:date;primaryKey"`
	ItemKey   string       `gorm:"column:item_key;type:text;primaryKey"`
	CheckedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (CheckedItem) TableName() string { return "shopping_checked_items" }
