package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/cloudtodo/pkg/model"
	"github.com/harrisonrobin/cloudtodo/pkg/status"
	"github.com/harrisonrobin/cloudtodo/pkg/taskstore"
)

func (a *app) listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks grouped by status",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.syncer(cmd.Context())
			if err != nil {
				return err
			}
			board, err := s.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeBoardJSON(cmd.OutOrStdout(), board)
			}
			return a.renderBoard(cmd.OutOrStdout(), board)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the grouped tasks as JSON")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "add <description>...",
		Short: "Add a task",
		Long: `Add a task. The deadline is midnight (local time) of --date, given as
YYYY-MM-DD or any common date format. Without --date the task has no
deadline and shows as Expired.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd, func(ctx context.Context, s *taskstore.Syncer) (status.Board, error) {
				return s.Create(ctx, strings.Join(args, " "), date)
			})
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "Deadline date, e.g. 2024-06-30")
	return cmd
}

func (a *app) setStatusCmd(use, short string, st model.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd, func(ctx context.Context, s *taskstore.Syncer) (status.Board, error) {
				return s.SetStatus(ctx, args[0], st)
			})
		},
	}
}

func (a *app) toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Flip a task between Pending and Completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd, func(ctx context.Context, s *taskstore.Syncer) (status.Board, error) {
				return s.Toggle(ctx, args[0])
			})
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id> <Pending|Completed|Expired>",
		Short: "Set a task's stored status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			return a.mutate(cmd, func(ctx context.Context, s *taskstore.Syncer) (status.Board, error) {
				return s.SetStatus(ctx, args[0], st)
			})
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	var title, description, date string
	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Change a task's title, description or deadline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, c, err := a.syncer(cmd.Context())
			if err != nil {
				return err
			}
			var patch model.TaskPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("date") {
				if strings.TrimSpace(date) == "" {
					return errors.New("--date needs a value; an empty deadline would mark the task Expired")
				}
				deadline, err := c.DeadlineFor(date)
				if err != nil {
					return err
				}
				patch.Deadline = &deadline
			}
			if patch.Empty() {
				return errors.New("nothing to change; pass --title, --description or --date")
			}
			board, err := s.Edit(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return a.renderBoard(cmd.OutOrStdout(), board)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVarP(&date, "date", "d", "", "New deadline date")
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd, func(ctx context.Context, s *taskstore.Syncer) (status.Board, error) {
				return s.Remove(ctx, args[0])
			})
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the task list periodically until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.syncer(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			w := taskstore.NewWatcher(s, interval, func(board status.Board, err error) {
				fmt.Fprintf(out, "── %s ──\n", a.now().Format("15:04:05"))
				if err != nil {
					fmt.Fprintln(out, "refresh failed:", describe(err))
					return
				}
				_ = a.renderBoard(out, board)
			})
			w.Start(cmd.Context())
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Time between refreshes")
	return cmd
}

// mutate runs one change through a fresh syncer and prints the refetched board.
func (a *app) mutate(cmd *cobra.Command, fn func(context.Context, *taskstore.Syncer) (status.Board, error)) error {
	s, _, err := a.syncer(cmd.Context())
	if err != nil {
		return err
	}
	board, err := fn(cmd.Context(), s)
	if err != nil {
		return err
	}
	return a.renderBoard(cmd.OutOrStdout(), board)
}

func parseStatus(s string) (model.Status, error) {
	for _, st := range []model.Status{model.Pending, model.Completed, model.Expired} {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q (want Pending, Completed or Expired)", s)
}
