package normalize

import (
	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/store"
)

var TaskFields = withSystem("title", "description", "priority", "status", "due_date", "category",
	"assignee_id", "subtasks", "comments", "project_id")

// Task converts a task to its store record.
func Task(t model.Task) store.Record {
	r := store.Record{
		store.FieldName: t.Title,
		"title":         t.Title,
		"description":   t.Description,
		"priority":      orDefault(string(t.Priority), string(model.PriorityMedium)),
		"status":        orDefault(string(t.Status), string(model.TaskTodo)),
		"category":      orDefault(string(t.Category), string(model.CategoryWork)),
	}
	putID(r, t.ID)
	putOptional(r, "due_date", CalendarDate(t.DueDate))
	putOptional(r, "project_id", t.ProjectID)
	putOptional(r, "assignee_id", t.AssigneeID)
	putOptional(r, "subtasks", t.Subtasks)
	putOptional(r, "comments", t.Comments)
	putTags(r, t.Tags)
	putOptional(r, store.FieldOwner, t.Owner)
	return r
}

func TaskFromRecord(r store.Record) model.Task {
	title := r.String("title")
	if title == "" {
		title = r.String(store.FieldName)
	}
	return model.Task{
		ID:          r.ID(),
		Title:       title,
		Description: r.String("description"),
		Priority:    model.Priority(orDefault(r.String("priority"), string(model.PriorityMedium))),
		Status:      model.TaskStatus(orDefault(r.String("status"), string(model.TaskTodo))),
		Category:    model.Category(orDefault(r.String("category"), string(model.CategoryWork))),
		DueDate:     CalendarDate(r.String("due_date")),
		ProjectID:   ref(r, "project_id"),
		AssigneeID:  ref(r, "assignee_id"),
		Subtasks:    r.String("subtasks"),
		Comments:    r.String("comments"),
		Tags:        SplitTags(r.String(store.FieldTags)),
		Owner:       ref(r, store.FieldOwner),
		Audit:       audit(r),
	}
}
