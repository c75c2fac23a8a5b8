package service

import (
	"context"
	"errors"
	"strings"
	"time"

	auditdomain "github.com/brikx/coach/internal/audit/domain"
	"github.com/brikx/coach/internal/clock"
	"github.com/brikx/coach/internal/observability/metrics"
	phasedomain "github.com/brikx/coach/internal/phase/domain"
	projectdomain "github.com/brikx/coach/internal/project/domain"
	"github.com/brikx/coach/internal/timeentry/domain"
	"github.com/brikx/coach/internal/usercontext"
	"github.com/brikx/coach/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Projects projectdomain.Service
	Phases   phasedomain.Service
	Clock    clock.Clock
	Metrics  *metrics.Metrics    `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	projects projectdomain.Service
	phases   phasedomain.Service
	clock    clock.Clock
	metrics  *metrics.Metrics
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("timeentry.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		projects: p.Projects,
		phases:   p.Phases,
		clock:    c,
		metrics:  p.Metrics,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.TimeEntry, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	projectID, err := s.validateProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	phaseCode, err := s.validatePhase(ctx, req.PhaseCode)
	if err != nil {
		return nil, err
	}
	occurredOn, err := parseOccurredOn(req.OccurredOn)
	if err != nil {
		return nil, err
	}
	if err := validateDuration(req.DurationMinutes); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	entry := &domain.TimeEntry{
		ID:              s.genID.Generate(),
		UserID:          userID,
		ProjectID:       projectID,
		PhaseCode:       phaseCode,
		OccurredOn:      occurredOn,
		DurationMinutes: req.DurationMinutes,
		Notes:           strings.TrimSpace(req.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		return nil, err
	}

	s.recordMutation(ctx, "create")
	return entry, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return domain.ListResponse{}, err
	}

	filter := domain.ListFilter{
		UserID:   userID,
		Invoiced: req.Invoiced,
		Limit:    req.Size(),
	}
	if strings.TrimSpace(req.ProjectID) != "" {
		projectID, err := snowflake.ParseString(strings.TrimSpace(req.ProjectID))
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidProject
		}
		filter.ProjectID = &projectID
	}
	if strings.TrimSpace(req.From) != "" {
		from, err := domain.ParseDate(strings.TrimSpace(req.From))
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidDateRange
		}
		filter.From = &from
	}
	if strings.TrimSpace(req.To) != "" {
		to, err := domain.ParseDate(strings.TrimSpace(req.To))
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidDateRange
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return domain.ListResponse{}, domain.ErrInvalidDateRange
	}
	if strings.TrimSpace(req.PageToken) != "" {
		id, createdAt, err := pagination.ParseToken(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		filter.Cursor = &domain.Cursor{ID: snowflake.ID(id), CreatedAt: createdAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(e *domain.TimeEntry) string {
		return pagination.Token(e.ID.Int64(), e.CreatedAt)
	})

	entries := make([]domain.TimeEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, *item)
	}
	return domain.ListResponse{PageInfo: pageInfo, Entries: entries}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.TimeEntry, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	entryID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	entry, err := s.repo.FindByID(ctx, s.db, userID, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.TimeEntry, error) {
	entry, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if entry.Invoiced() {
		return nil, domain.ErrEntryInvoiced
	}

	if req.ProjectID != nil {
		projectID, err := s.validateProject(ctx, *req.ProjectID)
		if err != nil {
			return nil, err
		}
		entry.ProjectID = projectID
	}
	if req.PhaseCode != nil {
		phaseCode, err := s.validatePhase(ctx, *req.PhaseCode)
		if err != nil {
			return nil, err
		}
		entry.PhaseCode = phaseCode
	}
	if req.OccurredOn != nil {
		occurredOn, err := parseOccurredOn(*req.OccurredOn)
		if err != nil {
			return nil, err
		}
		entry.OccurredOn = occurredOn
	}
	if req.DurationMinutes != nil {
		if err := validateDuration(*req.DurationMinutes); err != nil {
			return nil, err
		}
		entry.DurationMinutes = *req.DurationMinutes
	}
	if req.Notes != nil {
		entry.Notes = strings.TrimSpace(*req.Notes)
	}

	entry.UpdatedAt = s.clock.Now().UTC()
	affected, err := s.repo.Update(ctx, s.db, entry)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// invoiced between the read and the write
		return nil, domain.ErrEntryInvoiced
	}

	s.recordMutation(ctx, "update")
	return entry, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	entry, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if entry.Invoiced() {
		return domain.ErrEntryInvoiced
	}

	affected, err := s.repo.Delete(ctx, s.db, entry.UserID, entry.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrEntryInvoiced
	}

	s.recordMutation(ctx, "delete")
	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(ctx, auditdomain.Record{
			Action:     auditdomain.ActionEntryDeleted,
			TargetType: "time_entry",
			TargetID:   entry.ID.String(),
			Metadata: map[string]any{
				"project_id":       entry.ProjectID.String(),
				"duration_minutes": entry.DurationMinutes,
				"occurred_on":      entry.OccurredOn.Format(domain.DateLayout),
			},
		})
	}
	return nil
}

func (s *Service) validateProject(ctx context.Context, value string) (snowflake.ID, error) {
	project, err := s.projects.GetByID(ctx, value)
	if err != nil {
		if errors.Is(err, projectdomain.ErrNotFound) || errors.Is(err, projectdomain.ErrInvalidID) {
			return 0, domain.ErrInvalidProject
		}
		return 0, err
	}
	if project.Archived {
		return 0, domain.ErrProjectArchived
	}
	id, err := snowflake.ParseString(project.ID)
	if err != nil {
		return 0, domain.ErrInvalidProject
	}
	return id, nil
}

func (s *Service) validatePhase(ctx context.Context, value string) (string, error) {
	code := strings.TrimSpace(value)
	exists, err := s.phases.Exists(ctx, code)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", phasedomain.ErrInvalidPhase
	}
	return code, nil
}

func (s *Service) recordMutation(ctx context.Context, op string) {
	if s.metrics != nil {
		s.metrics.RecordEntryMutation(ctx, op)
	}
}

func parseOccurredOn(value string) (time.Time, error) {
	occurredOn, err := domain.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, domain.ErrInvalidDate
	}
	return occurredOn, nil
}

func validateDuration(minutes int) error {
	if minutes <= 0 || minutes > domain.MaxDurationMinutes {
		return domain.ErrInvalidDuration
	}
	return nil
}

func userIDFromContext(ctx context.Context) (snowflake.ID, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return 0, domain.ErrInvalidUser
	}
	return userID, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
