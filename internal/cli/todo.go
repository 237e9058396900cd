package cli

import (
	"fmt"
	"strings"

	"rentledger/pkg/domain"

	"github.com/spf13/cobra"
)

func todoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todo",
		Short: "Keep a list of reminders",
	}
	cmd.AddCommand(todoAddCmd(a), todoListCmd(a), todoDoneCmd(a), todoDeleteCmd(a))
	return cmd
}

func todoAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text>",
		Short: "Add a reminder",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			todo, err := a.rt.Service.AddTodo(cmd.Context(), domain.TodoDraft{Text: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added todo %s\n", todo.ID)
			return nil
		}),
	}
}

func todoListCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending reminders, oldest first",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			snap, err := a.rt.Service.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			todos := snap.PendingTodos()
			if all {
				todos = snap.Todos
			}
			out := cmd.OutOrStdout()
			if len(todos) == 0 {
				fmt.Fprintln(out, "Nothing to do.")
				return nil
			}
			for _, t := range todos {
				mark := " "
				if t.Completed {
					mark = "x"
				}
				fmt.Fprintf(out, "[%s] %-36s  %s  %s\n", mark, t.ID, t.CreatedAt.Format("2006-01-02"), t.Text)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "include completed reminders")
	return cmd
}

func todoDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle the completed flag of a reminder",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			todo, found, err := a.rt.Service.ToggleTodo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return notFound(domain.EntityTodo, args[0])
			}
			state := "pending"
			if todo.Completed {
				state = "done"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Todo %s marked %s\n", todo.ID, state)
			return nil
		}),
	}
}

func todoDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a reminder",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			found, err := a.rt.Service.DeleteTodo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return notFound(domain.EntityTodo, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted todo %s\n", args[0])
			return nil
		}),
	}
}
