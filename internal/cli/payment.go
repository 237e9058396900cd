package cli

import (
	"fmt"

	"rentledger/pkg/domain"

	"github.com/spf13/cobra"
)

func paymentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Record rent payments",
	}
	cmd.AddCommand(paymentAddCmd(a), paymentListCmd(a), paymentDeleteCmd(a))
	return cmd
}

func paymentAddCmd(a *app) *cobra.Command {
	var (
		draft                domain.PaymentDraft
		amount, date, status string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a payment; status defaults from the amount and the tenant's rent",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			var err error
			if draft.Amount, err = parseAmount("amount", amount); err != nil {
				return err
			}
			if draft.Date, err = parseOptionalDate("date", date); err != nil {
				return err
			}
			if draft.Date.IsZero() {
				draft.Date = domain.DateOf(a.rt.Service.Now())
			}
			draft.Status = domain.PaymentStatus(status)
			p, err := a.rt.Service.AddPayment(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded payment %s of %s for %s (%s)\n",
				p.ID, formatMoney(p.Amount, a.rt.Currency), p.Month, p.Status)
			return nil
		}),
	}
	cmd.Flags().StringVar(&draft.TenantID, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&amount, "amount", "", "amount paid")
	cmd.Flags().StringVar(&date, "date", "", "payment date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&draft.Month, "month", "", `month booked against, e.g. "July 2025"`)
	cmd.Flags().StringVar(&status, "status", "", "paid, partial, pending, due or overdue")
	return cmd
}

func paymentListCmd(a *app) *cobra.Command {
	var tenantID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payments, newest first per tenant",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			snap, err := a.rt.Service.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			payments := snap.Payments
			if tenantID != "" {
				payments = snap.PaymentsFor(tenantID)
			}
			out := cmd.OutOrStdout()
			if len(payments) == 0 {
				fmt.Fprintln(out, "No payments recorded.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-18s  %-10s  %-14s  %-12s  %-8s  %s\n",
				"ID", "Tenant", "Date", "Month", "Amount", "Status", "Archived")
			for _, p := range payments {
				name := p.TenantID
				if t, ok := snap.FindTenant(p.TenantID); ok {
					name = t.Name
				}
				fmt.Fprintf(out, "%-36s  %-18s  %-10s  %-14s  %-12s  %-8s  %s\n",
					p.ID, name, p.Date, p.Month, formatMoney(p.Amount, a.rt.Currency), p.Status,
					yesNo(snap.PaymentEffectivelyArchived(p)))
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "only show payments of this tenant")
	return cmd
}

func paymentDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a payment",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			found, err := a.rt.Service.DeletePayment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return notFound(domain.EntityPayment, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted payment %s\n", args[0])
			return nil
		}),
	}
}
