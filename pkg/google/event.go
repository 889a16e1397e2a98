package google

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/normalize"
)

// TaskIDProperty is the private extended property linking an event to its
// task.
const TaskIDProperty = "crm_task_id"

// Summary prefixes.
const (
	PrefixDone    = "✓"
	PrefixActive  = "‣"
	PrefixOverdue = "!"
)

var ErrNoDueDate = errors.New("task has no due date")

// EventInput is what TaskToEvent needs besides the task itself.
type EventInput struct {
	Task model.Task
	// ProjectName is shown in the description when the task has a project.
	ProjectName string
	ColorID     string
	// Today is the local calendar date used to flag overdue tasks.
	Today time.Time
}

// Prefix returns the summary marker for a task as of today.
func Prefix(task model.Task, today time.Time) string {
	switch task.Status {
	case model.TaskDone:
		return PrefixDone
	case model.TaskProgress, model.TaskReview:
		return PrefixActive
	}
	if task.DueDate != "" && task.DueDate < today.Format(normalize.DateLayout) {
		return PrefixOverdue
	}
	return ""
}

// Flag puts a prefix in front of a summary.
func Flag(prefix, summary string) string {
	if prefix == "" {
		return summary
	}
	return prefix + " " + summary
}

// TaskToEvent renders a task with a due date as an all-day event.
func TaskToEvent(in EventInput) (*calendar.Event, error) {
	task := in.Task
	if task.DueDate == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoDueDate, task.ID)
	}
	due, err := time.Parse(normalize.DateLayout, task.DueDate)
	if err != nil {
		return nil, fmt.Errorf("task %s: invalid due date %q: %w", task.ID, task.DueDate, err)
	}

	return &calendar.Event{
		Summary:     Flag(Prefix(task, in.Today), task.Title),
		Description: describe(in),
		ColorId:     in.ColorID,
		Start:       &calendar.EventDateTime{Date: due.Format(normalize.DateLayout)},
		End:         &calendar.EventDateTime{Date: due.AddDate(0, 0, 1).Format(normalize.DateLayout)},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{TaskIDProperty: task.ID},
		},
	}, nil
}

func describe(in EventInput) string {
	task := in.Task
	var b strings.Builder

	if len(task.Tags) > 0 {
		for _, tag := range task.Tags {
			fmt.Fprintf(&b, "#%s ", tag)
		}
		b.WriteString("\n\n")
	}
	if task.Description != "" {
		b.WriteString(task.Description)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Status: %s\n", task.Status)
	fmt.Fprintf(&b, "Priority: %s\n", task.Priority)
	fmt.Fprintf(&b, "Category: %s\n", task.Category)
	if in.ProjectName != "" {
		fmt.Fprintf(&b, "Project: %s\n", in.ProjectName)
	}
	fmt.Fprintf(&b, "ID: %s\n", task.ID)

	if lines := nonEmptyLines(task.Subtasks); len(lines) > 0 {
		b.WriteString("\nSubtasks:\n")
		for _, l := range lines {
			fmt.Fprintf(&b, "• %s\n", l)
		}
	}
	if lines := nonEmptyLines(task.Comments); len(lines) > 0 {
		b.WriteString("\nNotes:\n")
		for _, l := range lines {
			fmt.Fprintf(&b, "‣ %s\n", l)
		}
	}
	return b.String()
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// EventNeedsUpdate returns a patch holding the fields of target that differ
// from existing, or nil when the event is current.
func EventNeedsUpdate(existing, target *calendar.Event) *calendar.Event {
	patch := &calendar.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}
	if eventDate(existing.Start) != eventDate(target.Start) || eventDate(existing.End) != eventDate(target.End) {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch
	}
	return nil
}

// eventDate is the all-day date of an event bound. Timed bounds never match
// an all-day target.
func eventDate(dt *calendar.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.DateTime != "" {
		return "T" + dt.DateTime
	}
	return dt.Date
}

// TaskIDOf reads the task id stored on an event.
func TaskIDOf(ev *calendar.Event) string {
	if ev == nil || ev.ExtendedProperties == nil {
		return ""
	}
	return ev.ExtendedProperties.Private[TaskIDProperty]
}
