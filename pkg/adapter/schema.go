package adapter

import (
	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/normalize"
	"github.com/harrisonrobin/crmsync/pkg/store"
)

// Schema binds an entity type to its table and its normalizer.
type Schema[T any] struct {
	Entity   string
	Table    string
	Fields   []string
	Filters  []string
	IDOf     func(T) string
	Outbound func(T) store.Record
	Inbound  func(store.Record) T
}

// Default tables of the hosted CRM project.
const (
	DefaultContactTable     = "contact4"
	DefaultOpportunityTable = "opportunity"
	DefaultProjectTable     = "project"
	DefaultTaskTable        = "task1"
)

var ContactSchema = Schema[model.Contact]{
	Entity:   "contact",
	Table:    DefaultContactTable,
	Fields:   normalize.ContactFields,
	Filters:  []string{"stage"},
	IDOf:     func(c model.Contact) string { return c.ID },
	Outbound: normalize.Contact,
	Inbound:  normalize.ContactFromRecord,
}

var OpportunitySchema = Schema[model.Opportunity]{
	Entity:   "opportunity",
	Table:    DefaultOpportunityTable,
	Fields:   normalize.OpportunityFields,
	Filters:  []string{"stage"},
	IDOf:     func(o model.Opportunity) string { return o.ID },
	Outbound: normalize.Opportunity,
	Inbound:  normalize.OpportunityFromRecord,
}

var ProjectSchema = Schema[model.Project]{
	Entity:   "project",
	Table:    DefaultProjectTable,
	Fields:   normalize.ProjectFields,
	Filters:  []string{"status", "priority"},
	IDOf:     func(p model.Project) string { return p.ID },
	Outbound: normalize.Project,
	Inbound:  normalize.ProjectFromRecord,
}

var TaskSchema = Schema[model.Task]{
	Entity:   "task",
	Table:    DefaultTaskTable,
	Fields:   normalize.TaskFields,
	Filters:  []string{"status", "priority", "category", "project_id"},
	IDOf:     func(t model.Task) string { return t.ID },
	Outbound: normalize.Task,
	Inbound:  normalize.TaskFromRecord,
}

// WithTable returns a copy of the schema bound to another table. An empty
// name keeps the current table.
func (s Schema[T]) WithTable(table string) Schema[T] {
	if table != "" {
		s.Table = table
	}
	return s
}
