// Package agenda mirrors CRM tasks with a due date onto a calendar.
package agenda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/crmsync/pkg/adapter"
	"github.com/harrisonrobin/crmsync/pkg/colors"
	"github.com/harrisonrobin/crmsync/pkg/google"
	"github.com/harrisonrobin/crmsync/pkg/index"
	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/normalize"
	"github.com/harrisonrobin/crmsync/pkg/overdue"
	"github.com/harrisonrobin/crmsync/pkg/store"
)

// Source is the read side of a record adapter.
type Source[T any] interface {
	Fetch(ctx context.Context, filters adapter.Filters) ([]store.Record, error)
	Decode(records []store.Record) []T
}

// EventSink writes task events to a calendar. *google.CalendarClient
// implements it.
type EventSink interface {
	SyncEvent(ctx context.Context, taskID string, event *calendar.Event) (*calendar.Event, error)
	DeleteTask(ctx context.Context, taskID string) (bool, error)
	PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error)
}

type Syncer struct {
	Tasks    Source[model.Task]
	Projects Source[model.Project]
	Sink     EventSink
	// Index lists the tasks that currently have an event. Required.
	Index   *index.EventIndex
	Colors  *colors.ColorCache
	Overdue *overdue.Table
	Logger  *zap.Logger
	Now     func() time.Time
}

// Failure is a task whose event could not be written.
type Failure struct {
	TaskID string
	Err    error
}

type Report struct {
	Synced  int
	Deleted int
	Flagged int
	Failed  []Failure
}

func (s *Syncer) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Syncer) today() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Run loads every task and project, writes an event for each task with a
// due date, removes the events of tasks that lost their due date or no
// longer exist, then flags overdue events. A failing task is recorded in the
// report and does not stop the run. The state files are saved at the end.
func (s *Syncer) Run(ctx context.Context) (*Report, error) {
	if s.Index == nil {
		return nil, errors.New("agenda: event index is required")
	}
	log := s.logger()

	var tasks []model.Task
	var projects []model.Project
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := s.Tasks.Fetch(gctx, nil)
		if err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		tasks = s.Tasks.Decode(recs)
		return nil
	})
	g.Go(func() error {
		recs, err := s.Projects.Fetch(gctx, nil)
		if err != nil {
			return fmt.Errorf("load projects: %w", err)
		}
		projects = s.Projects.Decode(recs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}

	today := s.today()
	report := &Report{}
	seen := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		seen[task.ID] = true
		if task.DueDate == "" {
			s.remove(ctx, task.ID, report)
			continue
		}
		if err := s.upsert(ctx, task, names[task.ProjectID], today); err != nil {
			log.Warn("could not sync task", zap.String("task_id", task.ID), zap.Error(err))
			report.Failed = append(report.Failed, Failure{TaskID: task.ID, Err: err})
			continue
		}
		report.Synced++
	}

	for _, id := range s.Index.TaskIDs() {
		if !seen[id] {
			s.remove(ctx, id, report)
		}
	}

	flagged, err := s.sweep(ctx, today, report)
	if err != nil {
		return report, err
	}
	report.Flagged = flagged

	log.Info("agenda synced",
		zap.Int("tasks", len(tasks)),
		zap.Int("synced", report.Synced),
		zap.Int("deleted", report.Deleted),
		zap.Int("flagged", report.Flagged),
		zap.Int("failed", len(report.Failed)))
	return report, s.save()
}

// Sweep flags the events of tracked tasks that became overdue since the last
// run, without loading tasks from the store.
func (s *Syncer) Sweep(ctx context.Context) (*Report, error) {
	report := &Report{}
	flagged, err := s.sweep(ctx, s.today(), report)
	if err != nil {
		return report, err
	}
	report.Flagged = flagged
	return report, s.save()
}

func (s *Syncer) upsert(ctx context.Context, task model.Task, projectName string, today time.Time) error {
	color := colors.NoProject
	if s.Colors != nil {
		color = s.Colors.ColorID(task.ProjectID)
	}
	ev, err := google.TaskToEvent(google.EventInput{
		Task:        task,
		ProjectName: projectName,
		ColorID:     color,
		Today:       today,
	})
	if err != nil {
		return err
	}
	synced, err := s.Sink.SyncEvent(ctx, task.ID, ev)
	if err != nil {
		return err
	}
	if s.Overdue != nil {
		// Only plain open tasks turn into "!" later; the others keep their
		// prefix.
		if google.Prefix(task, today) == "" {
			s.Overdue.Update(task.ID, synced.Id, task.Title, task.DueDate)
		} else {
			s.Overdue.Remove(task.ID)
		}
	}
	return nil
}

func (s *Syncer) remove(ctx context.Context, taskID string, report *Report) {
	if s.Overdue != nil {
		s.Overdue.Remove(taskID)
	}
	if s.Index.Get(taskID) == "" {
		return
	}
	deleted, err := s.Sink.DeleteTask(ctx, taskID)
	if err != nil {
		s.logger().Warn("could not delete task event", zap.String("task_id", taskID), zap.Error(err))
		report.Failed = append(report.Failed, Failure{TaskID: taskID, Err: err})
		return
	}
	if deleted {
		report.Deleted++
	}
}

func (s *Syncer) sweep(ctx context.Context, today time.Time, report *Report) (int, error) {
	if s.Overdue == nil {
		return 0, nil
	}
	flagged := 0
	for _, entry := range s.Overdue.Sweep(today.Format(normalize.DateLayout)) {
		if err := ctx.Err(); err != nil {
			return flagged, err
		}
		patch := &calendar.Event{Summary: google.Flag(google.PrefixOverdue, entry.Summary)}
		if _, err := s.Sink.PatchEvent(ctx, entry.EventID, patch); err != nil {
			s.logger().Warn("could not flag overdue event", zap.String("task_id", entry.TaskID), zap.Error(err))
			report.Failed = append(report.Failed, Failure{TaskID: entry.TaskID, Err: err})
			continue
		}
		flagged++
	}
	return flagged, nil
}

func (s *Syncer) save() error {
	var errs []error
	if s.Index != nil {
		if err := s.Index.Save(); err != nil {
			errs = append(errs, fmt.Errorf("save event index: %w", err))
		}
	}
	if s.Colors != nil {
		if err := s.Colors.Save(); err != nil {
			errs = append(errs, fmt.Errorf("save color cache: %w", err))
		}
	}
	if s.Overdue != nil {
		if err := s.Overdue.Save(); err != nil {
			errs = append(errs, fmt.Errorf("save overdue table: %w", err))
		}
	}
	return errors.Join(errs...)
}
