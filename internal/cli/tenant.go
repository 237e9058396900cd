package cli

import (
	"fmt"

	"rentledger/pkg/domain"

	"github.com/spf13/cobra"
)

func tenantCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}
	cmd.AddCommand(
		tenantAddCmd(a),
		tenantListCmd(a),
		tenantArchiveCmd(a, "archive", true),
		tenantArchiveCmd(a, "unarchive", false),
		tenantDeleteCmd(a),
	)
	return cmd
}

func tenantAddCmd(a *app) *cobra.Command {
	var (
		draft                    domain.TenantDraft
		rent, start, end, status string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a tenant to a property",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			var err error
			if draft.Rent, err = parseAmount("rent", rent); err != nil {
				return err
			}
			if draft.LeaseStart, err = parseOptionalDate("lease-start", start); err != nil {
				return err
			}
			if draft.LeaseEnd, err = parseOptionalDate("lease-end", end); err != nil {
				return err
			}
			draft.ContractStatus = domain.ContractStatus(status)
			t, err := a.rt.Service.AddTenant(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added tenant %s (%s) in %s, floor %d\n", t.ID, t.Name, t.Room, t.Floor)
			return nil
		}),
	}
	cmd.Flags().StringVar(&draft.Name, "name", "", "tenant name")
	cmd.Flags().StringVar(&draft.PropertyID, "property", "", "property id")
	cmd.Flags().IntVar(&draft.Floor, "floor", 1, "floor number")
	cmd.Flags().StringVar(&draft.Room, "room", domain.AllRooms, `room label such as "Room 2"`)
	cmd.Flags().StringVar(&rent, "rent", "0", "monthly rent")
	cmd.Flags().StringVar(&start, "lease-start", "", "lease start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "lease-end", "", "lease end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "contract", string(domain.ContractActive), "contract status")
	return cmd
}

func tenantListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tenants with their payment status",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			rows, err := a.rt.Service.TenantOverview(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No tenants yet.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-18s  %-18s  %-10s  %-12s  %-12s  %-5s  %s\n",
				"ID", "Name", "Property", "Room", "Rent", "This month", "Paid", "Status")
			for _, row := range rows {
				fmt.Fprintf(out, "%-36s  %-18s  %-18s  %-10s  %-12s  %-12s  %-5s  %s\n",
					row.Tenant.ID, row.Tenant.Name, row.PropertyName, row.Tenant.Room,
					formatMoney(row.Tenant.Rent, a.rt.Currency), formatMoney(row.PaidThisMonth, a.rt.Currency),
					yesNo(row.PaidInFullInMonth), row.LatestStatus)
			}
			return nil
		}),
	}
}

func tenantArchiveCmd(a *app, use string, archived bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Set the archived flag of a tenant to %t", archived),
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			found, err := a.rt.Service.SetTenantArchived(cmd.Context(), args[0], archived)
			if err != nil {
				return err
			}
			if !found {
				return notFound(domain.EntityTenant, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s %sd\n", args[0], use)
			return nil
		}),
	}
}

func tenantDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a tenant and all of their payments",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snap, err := a.rt.Service.Snapshot(ctx)
			if err != nil {
				return err
			}
			if n := len(snap.PaymentsFor(args[0])); n > 0 && !yes {
				return fmt.Errorf("tenant %s has %d payment(s); rerun with --yes to delete them too", args[0], n)
			}
			removed, found, err := a.rt.Service.DeleteTenant(ctx, args[0])
			if err != nil {
				return err
			}
			if !found {
				return notFound(domain.EntityTenant, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted tenant %s and %d payment(s)\n", args[0], removed)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting the tenant's payments")
	return cmd
}
