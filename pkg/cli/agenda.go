package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrisonrobin/cloudtodo/pkg/agenda"
	"github.com/harrisonrobin/cloudtodo/pkg/config"
	"github.com/harrisonrobin/cloudtodo/pkg/gauth"
	"github.com/harrisonrobin/cloudtodo/pkg/index"
)

func (a *app) agendaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Mirror tasks with deadlines into Google Calendar",
	}
	cmd.AddCommand(a.agendaAuthCmd())
	cmd.AddCommand(a.agendaPushCmd())
	return cmd
}

func (a *app) agendaAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Calendar",
		Long: `Authorize access to Google Calendar. Download an OAuth client
("Desktop app") from the Google Cloud Console and save it as
~/.config/cloudtodo/credentials.json first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			flow := gauth.NewFlow(dir, cmd.OutOrStdout(), a.log)
			if _, err := flow.Authorize(cmd.Context(), gauth.Scopes); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authentication successful! Token saved to %s\n", filepath.Join(dir, gauth.TokenFile))
			return nil
		},
	}
}

func (a *app) agendaPushCmd() *cobra.Command {
	var calendarName string
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Create, update and delete calendar events to match the task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if calendarName == "" {
				calendarName = a.cfg.Calendar
			}

			s, _, err := a.syncer(ctx)
			if err != nil {
				return err
			}
			if _, err := s.Refresh(ctx); err != nil {
				return err
			}
			tasks, _ := s.Store().Snapshot()

			dir, err := config.Dir()
			if err != nil {
				return err
			}
			srv, err := gauth.NewFlow(dir, cmd.OutOrStdout(), a.log).CalendarService(ctx)
			if err != nil {
				return err
			}
			cal, err := agenda.OpenCalendar(ctx, srv, calendarName)
			if err != nil {
				return err
			}
			idx, err := index.Open(filepath.Join(dir, index.FileName))
			if err != nil {
				return fmt.Errorf("failed to open event index: %w", err)
			}

			report, err := agenda.NewSyncer(cal, idx, a.log).Sync(ctx, tasks, a.now())
			a.log.Debug("agenda synced", zap.String("calendar", calendarName), zap.Stringer("report", report))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", calendarName, report)
			return err
		},
	}
	cmd.Flags().StringVar(&calendarName, "calendar", "", "Calendar name (overrides config)")
	return cmd
}
