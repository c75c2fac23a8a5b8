package service

import (
	"context"
	"testing"
	"time"

	"github.com/brikx/coach/internal/cache"
	"github.com/brikx/coach/internal/clock"
	phasedomain "github.com/brikx/coach/internal/phase/domain"
	phaseservice "github.com/brikx/coach/internal/phase/service"
	projectdomain "github.com/brikx/coach/internal/project/domain"
	projectrepository "github.com/brikx/coach/internal/project/repository"
	projectservice "github.com/brikx/coach/internal/project/service"
	"github.com/brikx/coach/internal/testutil"
	"github.com/brikx/coach/internal/timeentry/domain"
	"github.com/brikx/coach/internal/timeentry/repository"
	"github.com/brikx/coach/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type env struct {
	svc      domain.Service
	projects projectdomain.Service
	db       *gorm.DB
	ctx      context.Context
	clock    *clock.FakeClock
	project  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	_, ctx := testutil.SeedUser(t, db, node, "linus@example.com")
	fc := clock.NewFakeClock(time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC))
	phases := phaseservice.New(phaseservice.Params{DB: db, Log: zap.NewNop()})

	projects := projectservice.New(projectservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   projectrepository.Provide(),
		Phases: phases,
		Rates:  cache.NewMemoryRateCache(time.Minute),
		Clock:  fc,
	})
	project, err := projects.Create(ctx, projectdomain.CreateRequest{Name: "Kernel", DefaultHourlyRate: decimal.NewFromInt(70)})
	require.NoError(t, err)

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		Projects: projects,
		Phases:   phases,
		Clock:    fc,
	})
	return &env{svc: svc, projects: projects, db: db, ctx: ctx, clock: fc, project: project.ID}
}

func (e *env) create(t *testing.T, day string, minutes int) *domain.TimeEntry {
	t.Helper()
	e.clock.Advance(time.Minute)
	entry, err := e.svc.Create(e.ctx, domain.CreateRequest{
		ProjectID:       e.project,
		PhaseCode:       "development",
		OccurredOn:      day,
		DurationMinutes: minutes,
		Notes:           " pairing ",
	})
	require.NoError(t, err)
	return entry
}

func TestCreateEntry(t *testing.T) {
	e := newEnv(t)

	entry := e.create(t, "2024-06-01", 90)
	assert.Equal(t, "pairing", entry.Notes)
	assert.Equal(t, "2024-06-01", entry.OccurredOn.Format(domain.DateLayout))
	assert.False(t, entry.Invoiced())
	assert.InDelta(t, 1.5, entry.Hours(), 1e-9)

	got, err := e.svc.GetByID(e.ctx, entry.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 90, got.DurationMinutes)
}

func TestCreateEntryValidation(t *testing.T) {
	e := newEnv(t)
	base := domain.CreateRequest{ProjectID: e.project, PhaseCode: "design", OccurredOn: "2024-06-01", DurationMinutes: 30}

	req := base
	req.DurationMinutes = 0
	_, err := e.svc.Create(e.ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	req = base
	req.DurationMinutes = domain.MaxDurationMinutes + 1
	_, err = e.svc.Create(e.ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	req = base
	req.OccurredOn = "June 1st"
	_, err = e.svc.Create(e.ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	req = base
	req.PhaseCode = "lunch"
	_, err = e.svc.Create(e.ctx, req)
	assert.ErrorIs(t, err, phasedomain.ErrInvalidPhase)

	req = base
	req.ProjectID = "12345"
	_, err = e.svc.Create(e.ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidProject)

	_, err = e.projects.Archive(e.ctx, e.project)
	require.NoError(t, err)
	_, err = e.svc.Create(e.ctx, base)
	assert.ErrorIs(t, err, domain.ErrProjectArchived)
}

func TestInvoicedEntriesAreImmutable(t *testing.T) {
	e := newEnv(t)
	entry := e.create(t, "2024-06-01", 60)

	require.NoError(t, e.db.Model(&domain.TimeEntry{}).
		Where("id = ?", entry.ID).
		Update("invoiced_at", testutil.Date(2024, 6, 2)).Error)

	minutes := 30
	_, err := e.svc.Update(e.ctx, domain.UpdateRequest{ID: entry.ID.String(), DurationMinutes: &minutes})
	assert.ErrorIs(t, err, domain.ErrEntryInvoiced)

	err = e.svc.Delete(e.ctx, entry.ID.String())
	assert.ErrorIs(t, err, domain.ErrEntryInvoiced)
}

func TestUpdateAndDelete(t *testing.T) {
	e := newEnv(t)
	entry := e.create(t, "2024-06-01", 60)

	minutes := 45
	notes := "review"
	updated, err := e.svc.Update(e.ctx, domain.UpdateRequest{ID: entry.ID.String(), DurationMinutes: &minutes, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, 45, updated.DurationMinutes)
	assert.Equal(t, "review", updated.Notes)

	require.NoError(t, e.svc.Delete(e.ctx, entry.ID.String()))
	_, err = e.svc.GetByID(e.ctx, entry.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFiltersAndPaginates(t *testing.T) {
	e := newEnv(t)
	for _, day := range []string{"2024-05-01", "2024-05-10", "2024-05-20", "2024-06-01"} {
		e.create(t, day, 30)
	}

	page, err := e.svc.List(e.ctx, domain.ListRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "2024-06-01", page.Entries[0].OccurredOn.Format(domain.DateLayout))

	next, err := e.svc.List(e.ctx, domain.ListRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, next.Entries, 2)
	assert.False(t, next.HasMore)
	assert.Equal(t, "2024-05-01", next.Entries[1].OccurredOn.Format(domain.DateLayout))

	ranged, err := e.svc.List(e.ctx, domain.ListRequest{From: "2024-05-05", To: "2024-05-31"})
	require.NoError(t, err)
	assert.Len(t, ranged.Entries, 2)

	invoiced := true
	none, err := e.svc.List(e.ctx, domain.ListRequest{Invoiced: &invoiced})
	require.NoError(t, err)
	assert.Empty(t, none.Entries)

	_, err = e.svc.List(e.ctx, domain.ListRequest{From: "2024-06-01", To: "2024-05-01"})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = e.svc.List(e.ctx, domain.ListRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}
