package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	auditdomain "github.com/brikx/coach/internal/audit/domain"
	"github.com/brikx/coach/internal/billing/allocator"
	"github.com/brikx/coach/internal/billing/domain"
	"github.com/brikx/coach/internal/clock"
	"github.com/brikx/coach/internal/config"
	"github.com/brikx/coach/internal/observability/metrics"
	"github.com/brikx/coach/internal/observability/tracing"
	projectdomain "github.com/brikx/coach/internal/project/domain"
	"github.com/brikx/coach/internal/ratelimit"
	timeentrydomain "github.com/brikx/coach/internal/timeentry/domain"
	"github.com/brikx/coach/internal/usercontext"
	"github.com/brikx/coach/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// maxDerivedNumbers bounds the -n suffixes tried for one invoice date.
const maxDerivedNumbers = 999

type allocationLocker interface {
	LockAllocation(ctx context.Context, userID string) (func(), error)
}

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Entries        timeentrydomain.Repository
	Runs           domain.Repository
	Projects       projectdomain.Service
	Clock          clock.Clock
	Config         *config.BillingConfigHolder
	Metrics        *metrics.Metrics        `optional:"true"`
	BillingMetrics *metrics.BillingMetrics `optional:"true"`
	Limiter        *ratelimit.Limiter      `optional:"true"`
	AuditSvc       auditdomain.Service     `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	entries        timeentrydomain.Repository
	runs           domain.Repository
	projects       projectdomain.Service
	clock          clock.Clock
	cfg            *config.BillingConfigHolder
	metrics        *metrics.Metrics
	billingMetrics *metrics.BillingMetrics
	locker         allocationLocker
	auditSvc       auditdomain.Service
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	svc := &Service{
		db:             p.DB,
		log:            p.Log.Named("billing.service"),
		genID:          p.GenID,
		entries:        p.Entries,
		runs:           p.Runs,
		projects:       p.Projects,
		clock:          c,
		cfg:            p.Config,
		metrics:        p.Metrics,
		billingMetrics: p.BillingMetrics,
		auditSvc:       p.AuditSvc,
	}
	if p.Limiter != nil {
		svc.locker = p.Limiter
	}
	return svc
}

// run is a validated allocation request.
type run struct {
	userID        snowflake.ID
	mode          domain.Mode
	target        *decimal.Decimal
	cutoff        time.Time
	projectID     *snowflake.ID
	invoiceDate   time.Time
	invoiceNumber *string
	// derivedNumber is set when invoiceNumber came from the configured prefix.
	derivedNumber bool
	cfg           config.BillingConfig
}

func (r run) key() domain.RunKey {
	k := domain.RunKey{
		Mode:         r.mode,
		TargetAmount: r.target,
		CutoffDate:   r.cutoff,
		ProjectID:    r.projectID,
		InvoiceDate:  r.invoiceDate,
	}
	if r.invoiceNumber != nil && !r.derivedNumber {
		k.InvoiceNumber = *r.invoiceNumber
	}
	return k
}

// planned is the allocator output joined with the entry rows it refers to.
type planned struct {
	plan            allocator.Plan
	rows            map[snowflake.ID]timeentrydomain.TimeEntry
	skippedFixedFee int
	alreadyInvoiced bool
	// invoiceNumber is the number the run carries once assigned.
	invoiceNumber *string
}

func (s *Service) Allocate(ctx context.Context, req domain.AllocateRequest) (*domain.AllocationResult, error) {
	return s.execute(ctx, req, false)
}

// Preview computes the same plan as Allocate without writing anything.
func (s *Service) Preview(ctx context.Context, req domain.AllocateRequest) (*domain.AllocationResult, error) {
	return s.execute(ctx, req, true)
}

func (s *Service) execute(ctx context.Context, req domain.AllocateRequest, dryRun bool) (*domain.AllocationResult, error) {
	r, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer("brikx/billing").Start(ctx, "billing.allocate")
	defer span.End()
	span.SetAttributes(tracing.SafeAttributes(attribute.String("billing.mode", string(r.mode)))...)

	log := s.log.With(
		zap.String("user_id", r.userID.String()),
		zap.String("mode", string(r.mode)),
		zap.String("cutoff_date", r.cutoff.Format(timeentrydomain.DateLayout)),
		zap.Bool("dry_run", dryRun),
	)

	start := s.clock.Now()
	result, err := s.allocate(ctx, log, r, dryRun)
	elapsed := s.clock.Now().Sub(start)

	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "allocation failed")
		s.recordRun(ctx, r.mode, metrics.OutcomeError, elapsed, nil)
		if s.billingMetrics != nil {
			s.billingMetrics.IncRunError(string(r.mode), err)
		}
		log.Warn("allocation failed", zap.Error(err))
		return nil, err
	}

	span.SetAttributes(tracing.SafeAttributes(
		attribute.Int("billing.entries", result.EntriesInvoiced),
		attribute.Int("billing.splits", result.Splits),
	)...)

	outcome := metrics.OutcomeSuccess
	if dryRun {
		outcome = metrics.OutcomeDryRun
	}
	s.recordRun(ctx, r.mode, outcome, elapsed, result)

	if !dryRun {
		s.audit(ctx, result)
	}
	log.Info("allocation completed",
		zap.Int("entries_invoiced", result.EntriesInvoiced),
		zap.Int("splits", result.Splits),
		zap.String("total_amount", result.TotalAmount.StringFixed(2)),
		zap.String("unallocated", result.Unallocated.StringFixed(2)),
	)
	return result, nil
}

func (s *Service) allocate(ctx context.Context, log *zap.Logger, r run, dryRun bool) (*domain.AllocationResult, error) {
	if dryRun {
		p, err := s.plan(ctx, s.db, log, r)
		if err != nil {
			return nil, err
		}
		return buildResult(r, p, nil, true), nil
	}

	if s.locker != nil {
		release, err := s.locker.LockAllocation(ctx, r.userID.String())
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var (
		p        planned
		splitIDs map[snowflake.ID]snowflake.ID
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		p, err = s.plan(ctx, tx, log, r)
		if err != nil {
			return err
		}
		splitIDs, err = s.apply(ctx, tx, r, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return buildResult(r, p, splitIDs, false), nil
}

// plan reads the eligible entries through db and runs the allocator over them.
func (s *Service) plan(ctx context.Context, db *gorm.DB, log *zap.Logger, r run) (planned, error) {
	previous, err := s.runs.FindRunByFingerprint(ctx, db, r.userID, r.key().Fingerprint())
	if err != nil {
		return planned{}, err
	}
	if previous != nil {
		log.Info("identical allocation already committed, nothing to do",
			zap.String("run_id", previous.ID.String()),
		)
		return planned{alreadyInvoiced: true, plan: emptyPlan(r), invoiceNumber: previous.InvoiceNumber}, nil
	}

	number, err := s.assignInvoiceNumber(ctx, db, r)
	if err != nil {
		return planned{}, err
	}

	rows, err := s.entries.ListEligible(ctx, db, timeentrydomain.EligibleFilter{
		UserID:    r.userID,
		Cutoff:    r.cutoff,
		ProjectID: r.projectID,
	})
	if err != nil {
		return planned{}, err
	}

	projectIDs := make([]snowflake.ID, 0)
	seen := map[snowflake.ID]struct{}{}
	for _, row := range rows {
		if _, ok := seen[row.ProjectID]; ok {
			continue
		}
		seen[row.ProjectID] = struct{}{}
		projectIDs = append(projectIDs, row.ProjectID)
	}

	rates, err := s.projects.SnapshotRates(ctx, db, projectIDs)
	if err != nil {
		return planned{}, err
	}

	out := planned{rows: make(map[snowflake.ID]timeentrydomain.TimeEntry, len(rows)), invoiceNumber: number}
	entries := make([]allocator.Entry, 0, len(rows))
	for _, row := range rows {
		if r.mode == domain.ModeAmount {
			if table, ok := rates[row.ProjectID]; ok && table.BillingType == projectdomain.BillingTypeFixed {
				out.skippedFixedFee++
				continue
			}
		}
		out.rows[row.ID] = row
		entries = append(entries, allocator.Entry{
			ID:         row.ID,
			ProjectID:  row.ProjectID,
			PhaseCode:  row.PhaseCode,
			OccurredOn: row.OccurredOn,
			Minutes:    row.DurationMinutes,
		})
	}

	rateFor := func(e allocator.Entry) (decimal.Decimal, bool) {
		table, ok := rates[e.ProjectID]
		if !ok {
			log.Warn("no rate table for entry, billing at zero",
				zap.String("entry_id", e.ID.String()),
				zap.String("project_id", e.ProjectID.String()),
			)
			return decimal.Zero, false
		}
		rate, ok := table.Resolve(e.PhaseCode)
		if !ok {
			log.Warn("unresolvable rate, billing at zero",
				zap.String("entry_id", e.ID.String()),
				zap.String("project_id", e.ProjectID.String()),
				zap.String("phase_code", e.PhaseCode),
			)
		}
		return rate, ok
	}

	if r.mode == domain.ModeAll {
		out.plan = allocator.PlanAll(entries, rateFor)
		return out, nil
	}
	out.plan = allocator.PlanAmount(entries, rateFor, *r.target, allocator.Options{
		Epsilon:       decimal.NewFromFloat(r.cfg.Epsilon),
		HourPrecision: r.cfg.HourPrecision,
	})
	return out, nil
}

// assignInvoiceNumber checks a caller supplied number against earlier runs and
// picks the first free <prefix><yyyymmdd>[-n] for a derived one.
func (s *Service) assignInvoiceNumber(ctx context.Context, db *gorm.DB, r run) (*string, error) {
	if r.invoiceNumber == nil {
		return nil, nil
	}
	if !r.derivedNumber {
		used, err := s.invoiceNumberUsed(ctx, db, r.userID, *r.invoiceNumber)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, domain.ErrInvoiceNumberUsed
		}
		return r.invoiceNumber, nil
	}

	base := *r.invoiceNumber
	for n := 1; n <= maxDerivedNumbers; n++ {
		candidate := base
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
		used, err := s.invoiceNumberUsed(ctx, db, r.userID, candidate)
		if err != nil {
			return nil, err
		}
		if !used {
			return &candidate, nil
		}
	}
	return nil, domain.ErrInvoiceNumberUsed
}

func (s *Service) invoiceNumberUsed(ctx context.Context, db *gorm.DB, userID snowflake.ID, number string) (bool, error) {
	previous, err := s.runs.FindRunByInvoiceNumber(ctx, db, userID, number)
	if err != nil {
		return false, err
	}
	if previous != nil {
		return true, nil
	}
	count, err := s.entries.CountByInvoiceNumber(ctx, db, userID, number)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// apply writes the plan. Every write is conditional on the entry still being
// uninvoiced with the duration the plan saw; a miss aborts the transaction.
func (s *Service) apply(ctx context.Context, tx *gorm.DB, r run, p planned) (map[snowflake.ID]snowflake.ID, error) {
	if p.alreadyInvoiced || len(p.plan.Steps) == 0 {
		return nil, nil
	}
	now := s.clock.Now().UTC()
	mark := timeentrydomain.InvoiceMark{
		InvoicedAt:    r.invoiceDate,
		InvoiceNumber: p.invoiceNumber,
		UpdatedAt:     now,
	}

	if r.mode == domain.ModeAll {
		ids := make([]snowflake.ID, 0, len(p.plan.Steps))
		for _, step := range p.plan.Steps {
			ids = append(ids, step.Entry.ID)
		}
		affected, err := s.entries.MarkInvoicedBatch(ctx, tx, ids, mark)
		if err != nil {
			return nil, err
		}
		if affected != int64(len(ids)) {
			return nil, domain.ErrConcurrentModification
		}
		return nil, s.recordAllocation(ctx, tx, r, p, now)
	}

	splitIDs := map[snowflake.ID]snowflake.ID{}
	for _, step := range p.plan.Steps {
		if !step.Split() {
			affected, err := s.entries.MarkInvoiced(ctx, tx, step.Entry.ID, step.Entry.Minutes, mark)
			if err != nil {
				return nil, err
			}
			if affected == 0 {
				return nil, domain.ErrConcurrentModification
			}
			continue
		}

		original := p.rows[step.Entry.ID]
		affected, err := s.entries.ShrinkUninvoiced(ctx, tx, original.ID, step.Entry.Minutes, step.RemainderMinutes, now)
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, domain.ErrConcurrentModification
		}

		invoicedAt := r.invoiceDate
		splitFrom := original.ID
		part := &timeentrydomain.TimeEntry{
			ID:              s.genID.Generate(),
			UserID:          original.UserID,
			ProjectID:       original.ProjectID,
			PhaseCode:       original.PhaseCode,
			OccurredOn:      original.OccurredOn,
			DurationMinutes: step.InvoicedMinutes,
			Notes:           splitNote(r.cfg.SplitNoteTemplate, original.Notes, invoiceReference(r, p)),
			InvoicedAt:      &invoicedAt,
			InvoiceNumber:   p.invoiceNumber,
			SplitFromID:     &splitFrom,
			Metadata: datatypes.JSONMap{
				"original_minutes":  step.Entry.Minutes,
				"remainder_minutes": step.RemainderMinutes,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.entries.Insert(ctx, tx, part); err != nil {
			return nil, err
		}
		splitIDs[original.ID] = part.ID
	}
	return splitIDs, s.recordAllocation(ctx, tx, r, p, now)
}

// recordAllocation stores the run so an identical request is not invoiced twice.
// A duplicate fingerprint or number means a parallel run won.
func (s *Service) recordAllocation(ctx context.Context, tx *gorm.DB, r run, p planned, now time.Time) error {
	rec := &domain.AllocationRun{
		ID:              s.genID.Generate(),
		UserID:          r.userID,
		Fingerprint:     r.key().Fingerprint(),
		InvoiceNumber:   p.invoiceNumber,
		Mode:            r.mode,
		CutoffDate:      r.cutoff,
		ProjectID:       r.projectID,
		InvoiceDate:     r.invoiceDate,
		EntriesInvoiced: len(p.plan.Steps),
		TotalAmount:     p.plan.Total.Round(2),
		CreatedAt:       now,
	}
	if r.target != nil {
		rec.TargetAmount = decimal.NewNullDecimal(*r.target)
	}
	if err := s.runs.InsertRun(ctx, tx, rec); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrConcurrentModification
		}
		return err
	}
	return nil
}

func (s *Service) UnbilledSummary(ctx context.Context, req domain.UnbilledRequest) (*domain.UnbilledSummary, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidUser
	}

	cutoff := clock.Today(s.clock)
	if strings.TrimSpace(req.CutoffDate) != "" {
		parsed, err := timeentrydomain.ParseDate(strings.TrimSpace(req.CutoffDate))
		if err != nil {
			return nil, domain.ErrInvalidCutoffDate
		}
		cutoff = parsed
	}
	projectID, err := parseProjectID(req.ProjectID)
	if err != nil {
		return nil, err
	}

	rows, err := s.entries.ListEligible(ctx, s.db, timeentrydomain.EligibleFilter{
		UserID:    userID,
		Cutoff:    cutoff,
		ProjectID: projectID,
	})
	if err != nil {
		return nil, err
	}

	projectIDs := make([]snowflake.ID, 0)
	for _, row := range rows {
		projectIDs = append(projectIDs, row.ProjectID)
	}
	rates, err := s.projects.ResolveRates(ctx, projectIDs)
	if err != nil {
		return nil, err
	}

	type key struct {
		project snowflake.ID
		phase   string
	}
	grouped := map[key]*domain.UnbilledLine{}
	keys := make([]key, 0)
	for _, row := range rows {
		k := key{project: row.ProjectID, phase: row.PhaseCode}
		line, ok := grouped[k]
		if !ok {
			table := rates[row.ProjectID]
			rate, _ := table.Resolve(row.PhaseCode)
			line = &domain.UnbilledLine{
				ProjectID:   row.ProjectID.String(),
				BillingType: string(table.BillingType),
				PhaseCode:   row.PhaseCode,
				Rate:        rate,
			}
			grouped[k] = line
			keys = append(keys, k)
		}
		line.Entries++
		line.Minutes += row.DurationMinutes
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].project != keys[j].project {
			return keys[i].project < keys[j].project
		}
		return keys[i].phase < keys[j].phase
	})

	summary := &domain.UnbilledSummary{
		CutoffDate:  cutoff,
		Currency:    s.cfg.Get().Currency,
		Lines:       make([]domain.UnbilledLine, 0, len(keys)),
		TotalAmount: decimal.Zero,
	}
	for _, k := range keys {
		line := grouped[k]
		line.Hours = allocator.Hours(line.Minutes).Round(2)
		line.Amount = allocator.LineAmount(line.Minutes, line.Rate).Round(2)
		summary.Lines = append(summary.Lines, *line)
		summary.TotalMinutes += line.Minutes
		summary.TotalAmount = summary.TotalAmount.Add(line.Amount)
	}
	return summary, nil
}

func (s *Service) validate(ctx context.Context, req domain.AllocateRequest) (run, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return run{}, domain.ErrInvalidUser
	}

	r := run{userID: userID, mode: domain.ModeAll, cfg: s.cfg.Get()}
	if req.TargetAmount != nil {
		if !req.TargetAmount.IsPositive() {
			return run{}, domain.ErrInvalidTargetAmount
		}
		target := *req.TargetAmount
		r.target = &target
		r.mode = domain.ModeAmount
	}

	cutoff := strings.TrimSpace(req.CutoffDate)
	if cutoff == "" {
		return run{}, domain.ErrInvalidCutoffDate
	}
	parsed, err := timeentrydomain.ParseDate(cutoff)
	if err != nil {
		return run{}, domain.ErrInvalidCutoffDate
	}
	r.cutoff = parsed

	r.projectID, err = parseProjectID(req.ProjectID)
	if err != nil {
		return run{}, err
	}

	r.invoiceDate = clock.Today(s.clock)
	if value := strings.TrimSpace(req.InvoiceDate); value != "" {
		parsed, err := timeentrydomain.ParseDate(value)
		if err != nil {
			return run{}, domain.ErrInvalidInvoiceDate
		}
		r.invoiceDate = parsed
	}

	number := strings.TrimSpace(req.InvoiceNumber)
	if number == "" && r.cfg.InvoiceNumberPrefix != "" {
		number = r.cfg.InvoiceNumberPrefix + r.invoiceDate.Format("20060102")
		r.derivedNumber = true
	}
	if number != "" {
		r.invoiceNumber = &number
	}
	return r, nil
}

func (s *Service) recordRun(ctx context.Context, mode domain.Mode, outcome string, elapsed time.Duration, result *domain.AllocationResult) {
	invoiced := 0
	if result != nil && !result.DryRun {
		invoiced = result.EntriesInvoiced
	}
	s.metrics.RecordAllocationRun(ctx, string(mode), outcome, invoiced)

	if s.billingMetrics == nil {
		return
	}
	s.billingMetrics.ObserveRun(string(mode), outcome, elapsed)
	if result == nil || result.DryRun {
		return
	}
	s.billingMetrics.AddEntriesInvoiced(string(mode), result.EntriesInvoiced)
	s.billingMetrics.AddSplits(result.Splits)
	if result.Mode == domain.ModeAmount {
		s.billingMetrics.ObserveUnallocated(result.Unallocated.InexactFloat64())
	}
}

// audit runs after commit so the audit insert never joins the allocation transaction.
func (s *Service) audit(ctx context.Context, result *domain.AllocationResult) {
	if s.auditSvc == nil || result.EntriesInvoiced == 0 {
		return
	}
	metadata := map[string]any{
		"mode":             string(result.Mode),
		"cutoff_date":      result.CutoffDate.Format(timeentrydomain.DateLayout),
		"invoice_date":     result.InvoiceDate.Format(timeentrydomain.DateLayout),
		"entries_invoiced": result.EntriesInvoiced,
		"splits":           result.Splits,
		"total_amount":     result.TotalAmount.StringFixed(2),
	}
	targetID := ""
	if result.InvoiceNumber != nil {
		targetID = *result.InvoiceNumber
	}
	if err := s.auditSvc.AuditLog(ctx, auditdomain.Record{
		Action:     auditdomain.ActionInvoiceAllocated,
		TargetType: "invoice",
		TargetID:   targetID,
		Metadata:   metadata,
	}); err != nil {
		s.log.Warn("allocation audit failed", zap.Error(err))
	}
}

func buildResult(r run, p planned, splitIDs map[snowflake.ID]snowflake.ID, dryRun bool) *domain.AllocationResult {
	result := &domain.AllocationResult{
		Mode:            r.mode,
		DryRun:          dryRun,
		AlreadyInvoiced: p.alreadyInvoiced,
		InvoiceNumber:   p.invoiceNumber,
		InvoiceDate:     r.invoiceDate,
		CutoffDate:      r.cutoff,
		Currency:        r.cfg.Currency,
		TargetAmount:    r.target,
		TotalAmount:     p.plan.Total.Round(2),
		TotalMinutes:    p.plan.InvoicedMinutes,
		Unallocated:     p.plan.Unallocated.Round(2),
		EntriesInvoiced: len(p.plan.Steps),
		Splits:          p.plan.Splits(),
		ZeroRateEntries: p.plan.ZeroRateEntries,
		SkippedFixedFee: p.skippedFixedFee,
		Lines:           make([]domain.AllocationLine, 0, len(p.plan.Steps)),
	}

	for _, step := range p.plan.Steps {
		line := domain.AllocationLine{
			EntryID:          step.Entry.ID.String(),
			ProjectID:        step.Entry.ProjectID.String(),
			PhaseCode:        step.Entry.PhaseCode,
			OccurredOn:       step.Entry.OccurredOn,
			Rate:             step.Rate,
			OriginalMinutes:  step.Entry.Minutes,
			InvoicedMinutes:  step.InvoicedMinutes,
			RemainderMinutes: step.RemainderMinutes,
			InvoicedHours:    allocator.Hours(step.InvoicedMinutes).Round(2),
			Amount:           step.Amount.Round(2),
			Action:           domain.LineActionInvoiced,
			ZeroRate:         step.ZeroRate,
		}
		if step.Split() {
			line.Action = domain.LineActionSplit
			if id, ok := splitIDs[step.Entry.ID]; ok {
				line.InvoicedEntryID = id.String()
			}
		}
		result.Lines = append(result.Lines, line)
	}
	return result
}

func emptyPlan(r run) allocator.Plan {
	p := allocator.Plan{Total: decimal.Zero, Unallocated: decimal.Zero}
	if r.target != nil {
		p.Unallocated = *r.target
	}
	return p
}

func invoiceReference(r run, p planned) string {
	if p.invoiceNumber != nil {
		return *p.invoiceNumber
	}
	return r.invoiceDate.Format(timeentrydomain.DateLayout)
}

func splitNote(template, original, reference string) string {
	if template == "" {
		template = config.DefaultBillingConfig().SplitNoteTemplate
	}
	tag := template
	if strings.Contains(template, "%s") {
		tag = fmt.Sprintf(template, reference)
	}
	original = strings.TrimSpace(original)
	if original == "" {
		return tag
	}
	return original + " | " + tag
}

func parseProjectID(value string) (*snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return nil, domain.ErrInvalidProject
	}
	return &id, nil
}

// IsConflict reports errors that mean the run lost a race and can be retried.
func IsConflict(err error) bool {
	return errors.Is(err, domain.ErrConcurrentModification) || errors.Is(err, ratelimit.ErrAllocationInProgress)
}
