package normalize

import (
	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/store"
)

var ProjectFields = withSystem("description", "priority", "due_date", "status")

// Project converts a project to its store record. The project name is stored
// only as the record Name.
func Project(p model.Project) store.Record {
	r := store.Record{
		store.FieldName: p.Name,
		"description":   p.Description,
		"priority":      orDefault(string(p.Priority), string(model.PriorityMedium)),
		"status":        orDefault(string(p.Status), string(model.ProjectActive)),
	}
	putID(r, p.ID)
	putOptional(r, "due_date", CalendarDate(p.DueDate))
	putTags(r, p.Tags)
	putOptional(r, store.FieldOwner, p.Owner)
	return r
}

func ProjectFromRecord(r store.Record) model.Project {
	return model.Project{
		ID:          r.ID(),
		Name:        r.String(store.FieldName),
		Description: r.String("description"),
		Priority:    model.Priority(orDefault(r.String("priority"), string(model.PriorityMedium))),
		Status:      model.ProjectStatus(orDefault(r.String("status"), string(model.ProjectActive))),
		DueDate:     CalendarDate(r.String("due_date")),
		Tags:        SplitTags(r.String(store.FieldTags)),
		Owner:       ref(r, store.FieldOwner),
		Audit:       audit(r),
	}
}
