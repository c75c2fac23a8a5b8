// Package option holds composable query modifiers for the generic store.
package option

import (
	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryFunc func(db *gorm.DB) *gorm.DB

func (f queryFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// OrderBy sorts by a trusted column expression.
func OrderBy(expr string) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		return db.Order(expr)
	})
}
