package cli

import (
	"fmt"
	"sort"

	"rentledger/pkg/domain"

	"github.com/spf13/cobra"
)

func backupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export and restore every collection",
	}
	cmd.AddCommand(backupCreateCmd(a), backupListCmd(a), backupRestoreCmd(a))
	return cmd
}

func backupCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Write a backup to the configured blob store",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.rt.Blobs(ctx)
			if err != nil {
				return err
			}
			info, err := a.rt.Service.CreateBackup(ctx, store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created backup %s (%d bytes)\n", info.Key, info.Size)
			return nil
		}),
	}
}

func backupListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored backups",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.rt.Blobs(ctx)
			if err != nil {
				return err
			}
			infos, err := a.rt.Service.ListBackups(ctx, store)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "No backups yet.")
				return nil
			}
			for _, info := range infos {
				fmt.Fprintf(out, "%-48s  %8d  %s\n", info.Key, info.Size, info.Metadata["records"])
			}
			return nil
		}),
	}
}

func backupRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <key>",
		Short: "Replace the collections held in a backup",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.rt.Blobs(ctx)
			if err != nil {
				return err
			}
			restored, err := a.rt.Service.RestoreBackup(ctx, store, args[0])
			if err != nil {
				return err
			}
			names := make([]string, 0, len(restored))
			for name := range restored {
				names = append(names, string(name))
			}
			sort.Strings(names)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Restored %s\n", args[0])
			for _, name := range names {
				fmt.Fprintf(out, "  %-10s %d\n", name, restored[domain.Collection(name)])
			}
			return nil
		}),
	}
}
