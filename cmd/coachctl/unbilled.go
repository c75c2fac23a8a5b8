package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	billingdomain "github.com/brikx/coach/internal/billing/domain"
	"github.com/spf13/cobra"
)

var (
	unbilledCutoff  string
	unbilledProject string
)

var unbilledCmd = &cobra.Command{
	Use:   "unbilled",
	Short: "Summarize uninvoiced time per project and phase",
	Args:  cobra.NoArgs,
	RunE:  runUnbilled,
}

func init() {
	unbilledCmd.Flags().StringVar(&unbilledCutoff, "cutoff", "", "Last date (YYYY-MM-DD) to include")
	unbilledCmd.Flags().StringVar(&unbilledProject, "project", "", "Only this project ID")
	_ = unbilledCmd.MarkFlagRequired("cutoff")
}

func runUnbilled(cmd *cobra.Command, args []string) error {
	return withServices(cmd, func(ctx context.Context, svc services) error {
		summary, err := svc.Billing.UnbilledSummary(ctx, billingdomain.UnbilledRequest{
			CutoffDate: strings.TrimSpace(unbilledCutoff),
			ProjectID:  strings.TrimSpace(unbilledProject),
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), summary)
		}
		return writeUnbilled(cmd.OutOrStdout(), summary)
	})
}

func writeUnbilled(out io.Writer, s *billingdomain.UnbilledSummary) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROJECT\tTYPE\tPHASE\tENTRIES\tHOURS\tRATE\tAMOUNT")
	for _, line := range s.Lines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			line.ProjectID,
			line.BillingType,
			line.PhaseCode,
			line.Entries,
			line.Hours.StringFixed(2),
			line.Rate.StringFixed(2),
			line.Amount.StringFixed(2),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\n%d minutes worth %s %s uninvoiced\n", s.TotalMinutes, s.TotalAmount.StringFixed(2), s.Currency)
	return err
}
