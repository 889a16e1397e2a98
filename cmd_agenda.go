package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrisonrobin/crmsync/pkg/agenda"
	"github.com/harrisonrobin/crmsync/pkg/auth"
	"github.com/harrisonrobin/crmsync/pkg/colors"
	"github.com/harrisonrobin/crmsync/pkg/config"
	"github.com/harrisonrobin/crmsync/pkg/google"
	"github.com/harrisonrobin/crmsync/pkg/index"
	"github.com/harrisonrobin/crmsync/pkg/overdue"
)

func agendaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Mirror tasks with a due date onto a Google Calendar",
	}
	cmd.AddCommand(agendaAuthCmd(a), agendaSetCalendarCmd(a), agendaSyncCmd(a), agendaSweepCmd(a))
	return cmd
}

func (a *app) authenticator() (*auth.Authenticator, error) {
	dir, err := a.stateDir()
	if err != nil {
		return nil, err
	}
	return &auth.Authenticator{Dir: dir, Logger: a.logger, Prompt: a.out}, nil
}

func agendaAuthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Calendar, replacing any cached token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			au, err := a.authenticator()
			if err != nil {
				return err
			}
			tokenFile := filepath.Join(au.Dir, auth.TokenFile)
			if err := os.Remove(tokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("could not delete token file '%s', delete it manually: %w", tokenFile, err)
			}
			if _, err := au.CalendarService(cmd.Context()); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			fmt.Fprintf(a.out, "Authentication successful! Token saved to %s\n", tokenFile)
			return nil
		},
	}
}

func agendaSetCalendarCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-calendar NAME",
		Short: "Set the default calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.resolvedConfigPath()
			if err != nil {
				return err
			}
			cfg, err := config.ReadFile(path)
			if err != nil {
				return err
			}
			cfg.Calendar = args[0]
			if err := config.Save(path, cfg); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}
			fmt.Fprintf(a.out, "Default calendar set to: %s\n", args[0])
			return nil
		},
	}
}

// agendaState opens the state files kept next to the config.
func (a *app) agendaState() (*index.EventIndex, *colors.ColorCache, *overdue.Table, error) {
	dir, err := a.stateDir()
	if err != nil {
		return nil, nil, nil, err
	}
	idx, err := index.Open(filepath.Join(dir, index.FileName))
	if err != nil {
		return nil, nil, nil, err
	}
	cc, err := colors.Open(filepath.Join(dir, colors.FileName))
	if err != nil {
		return nil, nil, nil, err
	}
	table, err := overdue.Open(filepath.Join(dir, overdue.FileName))
	if err != nil {
		return nil, nil, nil, err
	}
	return idx, cc, table, nil
}

func (a *app) calendarClient(cmd *cobra.Command, name string, idx *index.EventIndex) (*google.CalendarClient, error) {
	if name == "" {
		name = a.cfg.Calendar
	}
	au, err := a.authenticator()
	if err != nil {
		return nil, err
	}
	srv, err := au.CalendarService(cmd.Context())
	if err != nil {
		return nil, err
	}
	return google.NewClient(cmd.Context(), srv, name, idx, a.logger)
}

func agendaSyncCmd(a *app) *cobra.Command {
	var calendarName string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Write an event for every task with a due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, cc, table, err := a.agendaState()
			if err != nil {
				return err
			}
			svc, err := a.Services(cmd.Context())
			if err != nil {
				return err
			}
			client, err := a.calendarClient(cmd, calendarName, idx)
			if err != nil {
				return err
			}

			s := &agenda.Syncer{
				Tasks:    svc.Tasks,
				Projects: svc.Projects,
				Sink:     client,
				Index:    idx,
				Colors:   cc,
				Overdue:  table,
				Logger:   a.logger,
			}
			report, err := s.Run(cmd.Context())
			if report != nil {
				printReport(a, report)
			}
			if err != nil {
				return err
			}
			if n := len(report.Failed); n > 0 {
				return fmt.Errorf("%d tasks could not be synced", n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&calendarName, "calendar", "", "calendar name (overrides config)")
	return cmd
}

func agendaSweepCmd(a *app) *cobra.Command {
	var calendarName string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Flag events of tasks that became overdue, without reading the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, _, table, err := a.agendaState()
			if err != nil {
				return err
			}
			client, err := a.calendarClient(cmd, calendarName, idx)
			if err != nil {
				return err
			}
			s := &agenda.Syncer{Sink: client, Index: idx, Overdue: table, Logger: a.logger}
			report, err := s.Sweep(cmd.Context())
			if report != nil {
				printReport(a, report)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&calendarName, "calendar", "", "calendar name (overrides config)")
	return cmd
}

func printReport(a *app, r *agenda.Report) {
	fmt.Fprintf(a.out, "synced %d, deleted %d, flagged %d, failed %d\n", r.Synced, r.Deleted, r.Flagged, len(r.Failed))
	for _, f := range r.Failed {
		a.logger.Debug("agenda failure", zap.String("task_id", f.TaskID), zap.Error(f.Err))
	}
}
