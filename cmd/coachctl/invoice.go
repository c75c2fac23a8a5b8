package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	billingdomain "github.com/brikx/coach/internal/billing/domain"
	timeentrydomain "github.com/brikx/coach/internal/timeentry/domain"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type allocateFlags struct {
	target        string
	cutoff        string
	project       string
	invoiceDate   string
	invoiceNumber string
}

var (
	invoiceFlags allocateFlags
	previewFlags allocateFlags
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Mark uninvoiced time as invoiced, splitting the entry that crosses the target",
	Long: `invoice walks uninvoiced time entries up to --cutoff in date order.
With --target it stops once the amount is reached, splitting the last entry;
without it every eligible entry is invoiced.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAllocation(cmd, invoiceFlags, false)
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show what invoice would do without writing anything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAllocation(cmd, previewFlags, true)
	},
}

func init() {
	bindAllocateFlags(invoiceCmd, &invoiceFlags)
	bindAllocateFlags(previewCmd, &previewFlags)
}

func bindAllocateFlags(cmd *cobra.Command, f *allocateFlags) {
	cmd.Flags().StringVar(&f.target, "target", "", "Target invoice amount; omit to invoice everything")
	cmd.Flags().StringVar(&f.cutoff, "cutoff", "", "Last date (YYYY-MM-DD) of time to include")
	cmd.Flags().StringVar(&f.project, "project", "", "Only invoice this project ID")
	cmd.Flags().StringVar(&f.invoiceDate, "invoice-date", "", "Invoice date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&f.invoiceNumber, "number", "", "Invoice number; reusing one makes the run a no-op")
	_ = cmd.MarkFlagRequired("cutoff")
}

func (f allocateFlags) request() (billingdomain.AllocateRequest, error) {
	req := billingdomain.AllocateRequest{
		CutoffDate:    strings.TrimSpace(f.cutoff),
		ProjectID:     strings.TrimSpace(f.project),
		InvoiceDate:   strings.TrimSpace(f.invoiceDate),
		InvoiceNumber: strings.TrimSpace(f.invoiceNumber),
	}
	if target := strings.TrimSpace(f.target); target != "" {
		amount, err := decimal.NewFromString(target)
		if err != nil {
			return req, fmt.Errorf("--target: %w", billingdomain.ErrInvalidTargetAmount)
		}
		req.TargetAmount = &amount
	}
	return req, nil
}

func runAllocation(cmd *cobra.Command, f allocateFlags, dryRun bool) error {
	req, err := f.request()
	if err != nil {
		return err
	}

	return withServices(cmd, func(ctx context.Context, svc services) error {
		run := svc.Billing.Allocate
		if dryRun {
			run = svc.Billing.Preview
		}
		result, err := run(ctx, req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), result)
		}
		return writeAllocation(cmd.OutOrStdout(), result)
	})
}

func writeAllocation(out io.Writer, r *billingdomain.AllocationResult) error {
	if r.AlreadyInvoiced {
		_, err := fmt.Fprintf(out, "invoice %s was already allocated; nothing changed\n", deref(r.InvoiceNumber))
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tENTRY\tPHASE\tACTION\tMINUTES\tREMAINDER\tRATE\tAMOUNT")
	for _, line := range r.Lines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			line.OccurredOn.Format(timeentrydomain.DateLayout),
			line.EntryID,
			line.PhaseCode,
			line.Action,
			line.InvoicedMinutes,
			line.RemainderMinutes,
			line.Rate.StringFixed(2),
			line.Amount.StringFixed(2),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	label := "invoiced"
	if r.DryRun {
		label = "would invoice"
	}
	fmt.Fprintf(out, "\n%s %s %s (%d entries, %d split) for invoice %s dated %s\n",
		label,
		r.TotalAmount.StringFixed(2),
		r.Currency,
		r.EntriesInvoiced,
		r.Splits,
		deref(r.InvoiceNumber),
		r.InvoiceDate.Format(timeentrydomain.DateLayout),
	)
	if r.TargetAmount != nil && r.Unallocated.IsPositive() {
		fmt.Fprintf(out, "short of target by %s %s\n", r.Unallocated.StringFixed(2), r.Currency)
	}
	if r.ZeroRateEntries > 0 {
		fmt.Fprintf(out, "warning: %d entries have no hourly rate\n", r.ZeroRateEntries)
	}
	if r.SkippedFixedFee > 0 {
		fmt.Fprintf(out, "skipped %d entries on fixed-fee projects\n", r.SkippedFixedFee)
	}
	return nil
}

func deref(value *string) string {
	if value == nil || *value == "" {
		return "-"
	}
	return *value
}
