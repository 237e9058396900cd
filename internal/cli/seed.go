package cli

import (
	"fmt"

	"rentledger/internal/core"

	"github.com/spf13/cobra"
)

func seedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Fill empty collections with demo data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.rt.Service.Seed(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if report.Total() == 0 {
				fmt.Fprintln(out, "Nothing seeded: every collection already has data.")
				return nil
			}
			fmt.Fprintf(out, "Seeded %d users, %d properties, %d tenants, %d payments, %d todos\n",
				report.Users, report.Properties, report.Tenants, report.Payments, report.Todos)
			if report.Users > 0 {
				fmt.Fprintf(out, "Log in with --username %s --password %s\n", core.DemoUsername, core.DemoPassword)
			}
			return nil
		},
	}
}
