package seed

import (
	"context"
	"errors"

	phasedomain "github.com/brikx/coach/internal/phase/domain"
	"github.com/brikx/coach/pkg/repository"
	"gorm.io/gorm"
)

// EnsurePhases inserts the default phase lookup rows. Existing rows are left as they are.
func EnsurePhases(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	phases := make([]phasedomain.Phase, len(phasedomain.DefaultPhases))
	copy(phases, phasedomain.DefaultPhases)
	return repository.ProvideStore[phasedomain.Phase](db).InsertMissing(context.Background(), phases, "code")
}
