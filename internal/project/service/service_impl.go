package service

import (
	"context"
	"sort"
	"strings"

	auditdomain "github.com/brikx/coach/internal/audit/domain"
	"github.com/brikx/coach/internal/cache"
	"github.com/brikx/coach/internal/clock"
	phasedomain "github.com/brikx/coach/internal/phase/domain"
	"github.com/brikx/coach/internal/project/domain"
	"github.com/brikx/coach/internal/usercontext"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxNameLength = 200

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Phases   phasedomain.Service
	Rates    cache.RateCache
	Clock    clock.Clock
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	phases   phasedomain.Service
	rates    cache.RateCache
	clock    clock.Clock
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("project.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		phases:   p.Phases,
		rates:    p.Rates,
		clock:    c,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	name, err := validateName(req.Name)
	if err != nil {
		return nil, err
	}
	if req.DefaultHourlyRate.IsNegative() {
		return nil, domain.ErrInvalidRate
	}
	billingType := req.BillingType
	if billingType == "" {
		billingType = domain.BillingTypeHourly
	}
	if !billingType.Valid() {
		return nil, domain.ErrInvalidBillingType
	}

	now := s.clock.Now().UTC()
	p := &domain.Project{
		ID:                s.genID.Generate(),
		UserID:            userID,
		Name:              name,
		DefaultHourlyRate: req.DefaultHourlyRate.Round(2),
		BillingType:       billingType,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, s.db, p); err != nil {
		return nil, err
	}

	s.audit(ctx, auditdomain.ActionProjectCreated, p.ID, map[string]any{
		"name":         p.Name,
		"billing_type": string(p.BillingType),
	})
	return toResponse(p, nil), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, userID, req.IncludeArchived)
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	phases, err := s.repo.ListPhases(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	byProject := groupPhases(phases)

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i], byProject[items[i].ID]))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Response, error) {
	p, phases, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(p, phases), nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	p, phases, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if req.Name != nil {
		name, err := validateName(*req.Name)
		if err != nil {
			return nil, err
		}
		p.Name = name
		changes["name"] = name
	}
	if req.DefaultHourlyRate != nil {
		if req.DefaultHourlyRate.IsNegative() {
			return nil, domain.ErrInvalidRate
		}
		p.DefaultHourlyRate = req.DefaultHourlyRate.Round(2)
		changes["default_hourly_rate"] = p.DefaultHourlyRate.String()
	}
	if req.BillingType != nil {
		if !req.BillingType.Valid() {
			return nil, domain.ErrInvalidBillingType
		}
		p.BillingType = *req.BillingType
		changes["billing_type"] = string(p.BillingType)
	}

	p.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, p); err != nil {
		return nil, err
	}
	s.rates.Invalidate(ctx, p.ID)

	s.audit(ctx, auditdomain.ActionProjectUpdated, p.ID, changes)
	return toResponse(p, phases), nil
}

func (s *Service) Archive(ctx context.Context, id string) (*domain.Response, error) {
	p, phases, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Archived {
		return toResponse(p, phases), nil
	}

	p.Archived = true
	p.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, p); err != nil {
		return nil, err
	}
	s.rates.Invalidate(ctx, p.ID)

	s.audit(ctx, auditdomain.ActionProjectArchived, p.ID, nil)
	return toResponse(p, phases), nil
}

func (s *Service) SetPhase(ctx context.Context, req domain.SetPhaseRequest) (*domain.Response, error) {
	p, _, err := s.load(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	code := strings.TrimSpace(req.PhaseCode)
	exists, err := s.phases.Exists(ctx, code)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, phasedomain.ErrInvalidPhase
	}
	if req.HourlyRate != nil && req.HourlyRate.IsNegative() {
		return nil, domain.ErrInvalidRate
	}
	if req.Budget != nil {
		if req.Budget.IsNegative() {
			return nil, domain.ErrInvalidBudget
		}
		if p.BillingType != domain.BillingTypeFixed {
			return nil, domain.ErrBudgetRequiresFixed
		}
	}

	if req.HourlyRate == nil && req.Budget == nil {
		err = s.repo.DeletePhase(ctx, s.db, p.ID, code)
	} else {
		row := &domain.ProjectPhase{
			ProjectID: p.ID,
			PhaseCode: code,
			UpdatedAt: s.clock.Now().UTC(),
		}
		if req.HourlyRate != nil {
			row.HourlyRate = decimal.NewNullDecimal(req.HourlyRate.Round(2))
		}
		if req.Budget != nil {
			row.Budget = decimal.NewNullDecimal(req.Budget.Round(2))
		}
		err = s.repo.UpsertPhase(ctx, s.db, row)
	}
	if err != nil {
		return nil, err
	}
	s.rates.Invalidate(ctx, p.ID)

	phases, err := s.repo.ListPhases(ctx, s.db, []snowflake.ID{p.ID})
	if err != nil {
		return nil, err
	}
	return toResponse(p, phases), nil
}

// ResolveRates returns the rate tables of the requested projects owned by the
// current user. Unknown projects are absent from the result.
func (s *Service) ResolveRates(ctx context.Context, projectIDs []snowflake.ID) (map[snowflake.ID]domain.RateTable, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[snowflake.ID]domain.RateTable, len(projectIDs))
	missing := make([]snowflake.ID, 0, len(projectIDs))
	for _, id := range projectIDs {
		if _, seen := out[id]; seen {
			continue
		}
		if table, ok := s.rates.Get(ctx, id); ok && table.UserID == userID {
			out[id] = table
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	tables, err := s.loadRates(ctx, s.db, userID, missing)
	if err != nil {
		return nil, err
	}
	for id, table := range tables {
		s.rates.Set(ctx, table)
		out[id] = table
	}
	return out, nil
}

// SnapshotRates reads rate tables through db without the cache, so a caller
// holding a transaction plans against the rates that transaction sees.
func (s *Service) SnapshotRates(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID) (map[snowflake.ID]domain.RateTable, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if db == nil {
		db = s.db
	}
	if len(projectIDs) == 0 {
		return map[snowflake.ID]domain.RateTable{}, nil
	}
	return s.loadRates(ctx, db, userID, projectIDs)
}

func (s *Service) loadRates(ctx context.Context, db *gorm.DB, userID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]domain.RateTable, error) {
	projects, err := s.repo.FindByIDs(ctx, db, userID, ids)
	if err != nil {
		return nil, err
	}
	phases, err := s.repo.ListPhases(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	byProject := groupPhases(phases)

	out := make(map[snowflake.ID]domain.RateTable, len(projects))
	for _, p := range projects {
		out[p.ID] = domain.NewRateTable(p, byProject[p.ID])
	}
	return out, nil
}

func (s *Service) BudgetReport(ctx context.Context, id string) (*domain.BudgetReport, error) {
	p, phases, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.BillingType != domain.BillingTypeFixed {
		return nil, domain.ErrNotFixedFee
	}

	logged, err := s.repo.SumMinutesByPhase(ctx, s.db, p.ID)
	if err != nil {
		return nil, err
	}
	minutesByPhase := make(map[string]int64, len(logged))
	for _, row := range logged {
		minutesByPhase[row.PhaseCode] = row.Minutes
	}

	table := domain.NewRateTable(*p, phases)
	report := &domain.BudgetReport{
		ProjectID:   p.ID.String(),
		Lines:       []domain.BudgetLine{},
		TotalBudget: decimal.Zero,
		TotalLogged: decimal.Zero,
	}

	codes := make(map[string]struct{})
	budgets := make(map[string]decimal.Decimal)
	for _, ph := range phases {
		if ph.Budget.Valid {
			codes[ph.PhaseCode] = struct{}{}
			budgets[ph.PhaseCode] = ph.Budget.Decimal
		}
	}
	for code := range minutesByPhase {
		codes[code] = struct{}{}
	}

	sorted := make([]string, 0, len(codes))
	for code := range codes {
		sorted = append(sorted, code)
	}
	sort.Strings(sorted)

	for _, code := range sorted {
		rate, _ := table.Resolve(code)
		minutes := minutesByPhase[code]
		amount := decimal.NewFromInt(minutes).Div(decimal.NewFromInt(60)).Mul(rate).Round(2)
		budget := budgets[code]
		remaining := budget.Sub(amount)

		report.Lines = append(report.Lines, domain.BudgetLine{
			PhaseCode:     code,
			Budget:        budget,
			Rate:          rate,
			LoggedMinutes: minutes,
			LoggedAmount:  amount,
			Remaining:     remaining,
			OverBudget:    remaining.IsNegative(),
		})
		report.TotalBudget = report.TotalBudget.Add(budget)
		report.TotalLogged = report.TotalLogged.Add(amount)
		report.TotalMinutes += minutes
	}
	return report, nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.Project, []domain.ProjectPhase, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	projectID, err := parseID(id)
	if err != nil {
		return nil, nil, err
	}

	p, err := s.repo.FindByID(ctx, s.db, userID, projectID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, domain.ErrNotFound
	}

	phases, err := s.repo.ListPhases(ctx, s.db, []snowflake.ID{p.ID})
	if err != nil {
		return nil, nil, err
	}
	return p, phases, nil
}

func (s *Service) audit(ctx context.Context, action string, projectID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.AuditLog(ctx, auditdomain.Record{
		Action:     action,
		TargetType: "project",
		TargetID:   projectID.String(),
		Metadata:   metadata,
	})
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

func validateName(value string) (string, error) {
	name := strings.TrimSpace(value)
	if name == "" || len(name) > maxNameLength {
		return "", domain.ErrInvalidName
	}
	return name, nil
}

func groupPhases(phases []domain.ProjectPhase) map[snowflake.ID][]domain.ProjectPhase {
	out := make(map[snowflake.ID][]domain.ProjectPhase)
	for _, ph := range phases {
		out[ph.ProjectID] = append(out[ph.ProjectID], ph)
	}
	return out
}

func toResponse(p *domain.Project, phases []domain.ProjectPhase) *domain.Response {
	resp := &domain.Response{
		ID:                p.ID.String(),
		Name:              p.Name,
		DefaultHourlyRate: p.DefaultHourlyRate,
		BillingType:       p.BillingType,
		Archived:          p.Archived,
		Phases:            make([]domain.PhaseResponse, 0, len(phases)),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	for _, ph := range phases {
		item := domain.PhaseResponse{PhaseCode: ph.PhaseCode}
		if ph.HourlyRate.Valid {
			rate := ph.HourlyRate.Decimal
			item.HourlyRate = &rate
		}
		if ph.Budget.Valid {
			budget := ph.Budget.Decimal
			item.Budget = &budget
		}
		resp.Phases = append(resp.Phases, item)
	}
	return resp
}
