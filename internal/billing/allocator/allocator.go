// Package allocator plans which uninvoiced time entries an invoice consumes.
//
// Planning is pure: it reads entries and rates and returns the steps to apply.
// Entries are walked in ascending date order; the walk either consumes an entry
// fully or splits it into an invoiced part and an uninvoiced remainder, after
// which it stops.
package allocator

import (
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var minutesPerHour = decimal.NewFromInt(60)

type Entry struct {
	ID         snowflake.ID
	ProjectID  snowflake.ID
	PhaseCode  string
	OccurredOn time.Time
	Minutes    int
}

// RateFunc resolves the hourly rate of an entry. ok is false when no rate could be resolved.
type RateFunc func(e Entry) (rate decimal.Decimal, ok bool)

type Options struct {
	// Epsilon is the tolerance when comparing a line amount with the remaining target.
	Epsilon decimal.Decimal
	// HourPrecision is the number of decimals invoiced hours are rounded to on a split.
	HourPrecision int32
}

func DefaultOptions() Options {
	return Options{
		Epsilon:       decimal.New(1, -6),
		HourPrecision: 2,
	}
}

type Step struct {
	Entry            Entry
	Rate             decimal.Decimal
	InvoicedMinutes  int
	RemainderMinutes int
	Amount           decimal.Decimal
	ZeroRate         bool
}

// Split reports whether the step leaves an uninvoiced remainder.
func (s Step) Split() bool {
	return s.RemainderMinutes > 0
}

type Plan struct {
	Steps           []Step
	Total           decimal.Decimal
	InvoicedMinutes int
	// Unallocated is the part of the target no eligible entry could cover.
	Unallocated     decimal.Decimal
	ZeroRateEntries int
}

func (p Plan) Splits() int {
	n := 0
	for _, s := range p.Steps {
		if s.Split() {
			n++
		}
	}
	return n
}

// Hours converts minutes to decimal hours.
func Hours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(minutesPerHour)
}

// LineAmount is the value of minutes at rate, unrounded.
func LineAmount(minutes int, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Mul(rate).Div(minutesPerHour)
}

// SortEntries orders entries by date, keeping the input order for equal dates.
func SortEntries(entries []Entry) []Entry {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredOn.Before(sorted[j].OccurredOn)
	})
	return sorted
}

// PlanAmount consumes entries until target is reached, splitting the entry that crosses it.
func PlanAmount(entries []Entry, rates RateFunc, target decimal.Decimal, opts Options) Plan {
	plan := Plan{Total: decimal.Zero, Unallocated: decimal.Zero}
	remaining := target

	for _, e := range SortEntries(entries) {
		if !remaining.IsPositive() {
			break
		}
		if e.Minutes <= 0 {
			continue
		}

		rate, ok := rates(e)
		zero := !ok || !rate.IsPositive()
		if zero {
			rate = decimal.Zero
			plan.ZeroRateEntries++
		}

		lineAmount := LineAmount(e.Minutes, rate)
		if lineAmount.LessThanOrEqual(remaining.Add(opts.Epsilon)) {
			plan.add(Step{Entry: e, Rate: rate, InvoicedMinutes: e.Minutes, Amount: lineAmount, ZeroRate: zero})
			remaining = remaining.Sub(lineAmount)
			continue
		}

		// Minutes are floored so the split never bills more than the rounded hours.
		invoicedHours := remaining.Div(rate).Round(opts.HourPrecision)
		invoicedMinutes := int(invoicedHours.Mul(minutesPerHour).Floor().IntPart())
		if invoicedMinutes <= 0 {
			break
		}
		if invoicedMinutes >= e.Minutes {
			plan.add(Step{Entry: e, Rate: rate, InvoicedMinutes: e.Minutes, Amount: lineAmount})
			remaining = remaining.Sub(lineAmount)
			continue
		}

		plan.add(Step{
			Entry:            e,
			Rate:             rate,
			InvoicedMinutes:  invoicedMinutes,
			RemainderMinutes: e.Minutes - invoicedMinutes,
			Amount:           LineAmount(invoicedMinutes, rate),
		})
		remaining = decimal.Zero
		break
	}

	if remaining.IsPositive() {
		plan.Unallocated = remaining
	}
	return plan
}

// PlanAll consumes every entry in full.
func PlanAll(entries []Entry, rates RateFunc) Plan {
	plan := Plan{Total: decimal.Zero, Unallocated: decimal.Zero}
	for _, e := range SortEntries(entries) {
		rate, ok := rates(e)
		zero := !ok || !rate.IsPositive()
		if zero {
			rate = decimal.Zero
			plan.ZeroRateEntries++
		}
		plan.add(Step{Entry: e, Rate: rate, InvoicedMinutes: e.Minutes, Amount: LineAmount(e.Minutes, rate), ZeroRate: zero})
	}
	return plan
}

func (p *Plan) add(step Step) {
	p.Steps = append(p.Steps, step)
	p.Total = p.Total.Add(step.Amount)
	p.InvoicedMinutes += step.InvoicedMinutes
}
