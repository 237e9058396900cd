package cli

import (
	"fmt"

	"rentledger/pkg/domain"

	"github.com/spf13/cobra"
)

func propertyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "property",
		Short: "Manage rental properties",
	}
	cmd.AddCommand(
		propertyAddCmd(a),
		propertyListCmd(a),
		propertyArchiveCmd(a, "archive", true),
		propertyArchiveCmd(a, "unarchive", false),
		propertyDeleteCmd(a),
	)
	return cmd
}

func propertyAddCmd(a *app) *cobra.Command {
	var draft domain.PropertyDraft
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a property",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			p, err := a.rt.Service.AddProperty(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added property %s (%s) with %d rooms\n", p.ID, p.Name, p.RoomCount)
			return nil
		}),
	}
	cmd.Flags().StringVar(&draft.Name, "name", "", "property name")
	cmd.Flags().StringVar(&draft.Address, "address", "", "street address")
	cmd.Flags().IntVar(&draft.FloorCount, "floors", 1, "number of floors")
	cmd.Flags().IntVar(&draft.RoomCount, "rooms", 0, "number of rooms")
	cmd.Flags().IntSliceVar(&draft.FloorRooms, "floor-rooms", nil, "rooms per floor, one value per floor")
	return cmd
}

func propertyListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List properties with their tenant counts",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			rows, err := a.rt.Service.PropertyOverview(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No properties yet.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-20s  %-6s  %-5s  %-6s  %-8s  %-14s  %s\n",
				"ID", "Name", "Floors", "Rooms", "Active", "Archived", "Expected", "Status")
			for _, row := range rows {
				status := "active"
				if row.Property.Archived {
					status = "archived"
				}
				fmt.Fprintf(out, "%-36s  %-20s  %-6d  %-5d  %-6d  %-8d  %-14s  %s\n",
					row.Property.ID, row.Property.Name, row.Property.FloorCount, row.Property.RoomCount,
					row.ActiveTenants, row.ArchivedTenants, formatMoney(row.ExpectedRent, a.rt.Currency), status)
			}
			return nil
		}),
	}
}

func propertyArchiveCmd(a *app, use string, archived bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Set the archived flag of a property to %t", archived),
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			found, err := a.rt.Service.SetPropertyArchived(cmd.Context(), args[0], archived)
			if err != nil {
				return err
			}
			if !found {
				return notFound(domain.EntityProperty, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Property %s %sd\n", args[0], use)
			return nil
		}),
	}
}

func propertyDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a property; its tenants are kept",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snap, err := a.rt.Service.Snapshot(ctx)
			if err != nil {
				return err
			}
			found, err := a.rt.Service.DeleteProperty(ctx, args[0])
			if err != nil {
				return err
			}
			if !found {
				return notFound(domain.EntityProperty, args[0])
			}
			orphaned := 0
			for _, t := range snap.Tenants {
				if t.PropertyID == args[0] {
					orphaned++
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deleted property %s\n", args[0])
			if orphaned > 0 {
				fmt.Fprintf(out, "%d tenant(s) now reference a missing property and count as archived\n", orphaned)
			}
			return nil
		}),
	}
}
