package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func summaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show rent collection for the current month",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			summary, err := a.rt.Service.MonthlySummary(ctx)
			if err != nil {
				return err
			}
			snap, err := a.rt.Service.Snapshot(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Month:            %s (%s to %s)\n", summary.Month.From.MonthLabel(), summary.Month.From, summary.Month.To)
			fmt.Fprintf(out, "Active tenants:   %d\n", summary.ActiveTenantsCount)
			fmt.Fprintf(out, "Paid in full:     %d\n", summary.PaidTenantsCount)
			fmt.Fprintf(out, "Expected rent:    %s\n", formatMoney(summary.TotalExpectedRent, a.rt.Currency))
			fmt.Fprintf(out, "Collected:        %s\n", formatMoney(summary.TotalCollectedThisMonth, a.rt.Currency))
			fmt.Fprintf(out, "Pending todos:    %d\n", len(snap.PendingTodos()))
			return nil
		}),
	}
}
