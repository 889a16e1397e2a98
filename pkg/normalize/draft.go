package normalize

import (
	"strings"

	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/store"
)

// Draft is loosely typed input as it arrives from a form or a JSON file. It
// may use camelCase or snake_case names; the *FromDraft functions below are
// the only place those aliases are resolved.
type Draft map[string]any

// pick returns the first alias holding a non-empty value.
func (d Draft) pick(keys ...string) any {
	for _, k := range keys {
		v, ok := d[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		return v
	}
	return nil
}

func (d Draft) str(keys ...string) string {
	v := d.pick(keys...)
	if v == nil {
		return ""
	}
	if m, ok := v.(map[string]any); ok {
		return store.Record(m).ID()
	}
	return store.Text(v)
}

// tags accepts a "tags" array or an already joined "Tags" string.
func (d Draft) tags() []string {
	switch t := d.pick("tags", "Tags").(type) {
	case []string:
		return cleanTags(t)
	case []any:
		tags := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				tags = append(tags, s)
			}
		}
		return cleanTags(tags)
	case string:
		return SplitTags(t)
	}
	return nil
}

func cleanTags(in []string) []string {
	var out []string
	for _, tag := range in {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func ContactFromDraft(d Draft) model.Contact {
	return model.Contact{
		ID:        d.str("Id", "id"),
		FirstName: d.str("firstName", "first_name"),
		LastName:  d.str("lastName", "last_name"),
		Email:     d.str("email"),
		Phone:     d.str("phone"),
		Company:   d.str("company"),
		Position:  d.str("position"),
		Stage:     model.Stage(d.str("stage")),
		Tags:      d.tags(),
		Owner:     d.str("owner", "Owner"),
	}
}

func OpportunityFromDraft(d Draft) model.Opportunity {
	return model.Opportunity{
		ID:          d.str("Id", "id"),
		Title:       d.str("title", "Name"),
		Value:       money(Float(d.pick("value"))),
		Stage:       model.Stage(d.str("stage")),
		Probability: percent(Int(d.pick("probability"))),
		AssignedTo:  d.str("assignedTo", "assigned_to"),
		ContactID:   d.str("contactId", "contact"),
		Tags:        d.tags(),
		Owner:       d.str("owner", "Owner"),
	}
}

func ProjectFromDraft(d Draft) model.Project {
	return model.Project{
		ID:          d.str("Id", "id"),
		Name:        d.str("name", "Name"),
		Description: d.str("description"),
		Priority:    model.Priority(d.str("priority")),
		Status:      model.ProjectStatus(d.str("status")),
		DueDate:     CalendarDate(d.pick("due_date", "dueDate")),
		Tags:        d.tags(),
		Owner:       d.str("owner", "Owner"),
	}
}

func TaskFromDraft(d Draft) model.Task {
	return model.Task{
		ID:          d.str("Id", "id"),
		Title:       d.str("title", "name", "Name"),
		Description: d.str("description"),
		Priority:    model.Priority(d.str("priority")),
		Status:      model.TaskStatus(d.str("status")),
		Category:    model.Category(d.str("category")),
		DueDate:     CalendarDate(d.pick("due_date", "dueDate")),
		ProjectID:   d.str("project_id", "projectId"),
		AssigneeID:  d.str("assignee_id", "assigneeId"),
		Subtasks:    d.str("subtasks"),
		Comments:    d.str("comments"),
		Tags:        d.tags(),
		Owner:       d.str("owner", "Owner"),
	}
}
