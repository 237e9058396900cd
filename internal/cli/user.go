package cli

import (
	"fmt"

	"rentledger/pkg/domain"

	"github.com/spf13/cobra"
)

func userCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Register, log in and log out",
	}
	cmd.AddCommand(userRegisterCmd(a), userLoginCmd(a), userLogoutCmd(a), userWhoamiCmd(a))
	return cmd
}

func userRegisterCmd(a *app) *cobra.Command {
	var draft domain.UserDraft
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a local account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.rt.Service.RegisterUser(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", u.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.Username, "username", "", "login name")
	cmd.Flags().StringVar(&draft.Name, "name", "", "display name")
	cmd.Flags().StringVar(&draft.Password, "password", "", "password")
	return cmd
}

func userLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the user for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.rt.Session.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", u.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func userLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.rt.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func userWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, ok := a.rt.Session.Current()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			if u.Name != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", u.Username, u.Name)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), u.Username)
			return nil
		},
	}
}
