package google

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/crmsync/pkg/model"
)

var today = time.Date(2024, 3, 10, 15, 0, 0, 0, time.Local)

func sampleTask() model.Task {
	return model.Task{
		ID:          "42",
		Title:       "Call John",
		Description: "Discuss renewal",
		Priority:    model.PriorityHigh,
		Status:      model.TaskTodo,
		Category:    model.CategoryWork,
		DueDate:     "2024-03-12",
		ProjectID:   "7",
		Subtasks:    "prepare quote\n\nsend agenda",
		Comments:    "prefers mornings",
		Tags:        []string{"VIP", "Hot"},
	}
}

func TestTaskToEventAllDay(t *testing.T) {
	ev, err := TaskToEvent(EventInput{Task: sampleTask(), ProjectName: "Website", ColorID: "3", Today: today})
	require.NoError(t, err)

	assert.Equal(t, "Call John", ev.Summary)
	assert.Equal(t, "3", ev.ColorId)
	assert.Equal(t, "2024-03-12", ev.Start.Date)
	assert.Equal(t, "2024-03-13", ev.End.Date)
	assert.Empty(t, ev.Start.DateTime)
	assert.Equal(t, "42", TaskIDOf(ev))

	for _, want := range []string{"#VIP #Hot", "Discuss renewal", "Status: todo", "Priority: high",
		"Category: work", "Project: Website", "ID: 42", "• prepare quote", "• send agenda", "‣ prefers mornings"} {
		assert.Contains(t, ev.Description, want)
	}
	assert.NotContains(t, ev.Description, "• \n")
}

func TestTaskToEventMonthEnd(t *testing.T) {
	task := sampleTask()
	task.DueDate = "2024-02-29"
	ev, err := TaskToEvent(EventInput{Task: task, Today: today})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", ev.End.Date)
}

func TestTaskToEventNeedsDueDate(t *testing.T) {
	task := sampleTask()
	task.DueDate = ""
	_, err := TaskToEvent(EventInput{Task: task, Today: today})
	assert.True(t, errors.Is(err, ErrNoDueDate))

	task.DueDate = "12/03/2024"
	_, err = TaskToEvent(EventInput{Task: task, Today: today})
	assert.Error(t, err)
}

func TestPrefix(t *testing.T) {
	task := sampleTask()
	assert.Equal(t, "", Prefix(task, today))

	task.DueDate = "2024-03-09"
	assert.Equal(t, PrefixOverdue, Prefix(task, today))

	task.DueDate = "2024-03-10"
	assert.Equal(t, "", Prefix(task, today), "due today is not overdue")

	task.DueDate = "2024-03-01"
	task.Status = model.TaskReview
	assert.Equal(t, PrefixActive, Prefix(task, today))

	task.Status = model.TaskDone
	assert.Equal(t, PrefixDone, Prefix(task, today))

	assert.Equal(t, "! Call John", Flag(PrefixOverdue, "Call John"))
	assert.Equal(t, "Call John", Flag("", "Call John"))
}

func TestEventNeedsUpdate(t *testing.T) {
	target, err := TaskToEvent(EventInput{Task: sampleTask(), ColorID: "3", Today: today})
	require.NoError(t, err)

	same := *target
	assert.Nil(t, EventNeedsUpdate(&same, target))

	renamed := *target
	renamed.Summary = "old"
	patch := EventNeedsUpdate(&renamed, target)
	require.NotNil(t, patch)
	assert.Equal(t, "Call John", patch.Summary)
	assert.Empty(t, patch.Description)
	assert.Nil(t, patch.Start)

	timed := *target
	timed.Start = &calendar.EventDateTime{DateTime: "2024-03-12T09:00:00Z"}
	patch = EventNeedsUpdate(&timed, target)
	require.NotNil(t, patch)
	assert.Equal(t, "2024-03-12", patch.Start.Date)
	assert.Equal(t, "2024-03-13", patch.End.Date)
}

func TestNonEmptyLines(t *testing.T) {
	assert.Nil(t, nonEmptyLines("  \n"))
	assert.Equal(t, []string{"a", "b"}, nonEmptyLines(strings.Join([]string{" a ", "", "b"}, "\n")))
}
