package adapter

import (
	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/store"
)

// Tables overrides the store table per entity. Empty names keep the defaults.
type Tables struct {
	Contact     string `yaml:"contact"`
	Opportunity string `yaml:"opportunity"`
	Project     string `yaml:"project"`
	Task        string `yaml:"task"`
}

// Services is the set of adapters handed to callers in place of global
// service singletons.
type Services struct {
	Contacts      *Adapter[model.Contact]
	Opportunities *Adapter[model.Opportunity]
	Projects      *Adapter[model.Project]
	Tasks         *Adapter[model.Task]
}

func NewServices(st store.RecordStore, tables Tables, opts ...Option) *Services {
	return &Services{
		Contacts:      New(st, ContactSchema.WithTable(tables.Contact), opts...),
		Opportunities: New(st, OpportunitySchema.WithTable(tables.Opportunity), opts...),
		Projects:      New(st, ProjectSchema.WithTable(tables.Project), opts...),
		Tasks:         New(st, TaskSchema.WithTable(tables.Task), opts...),
	}
}
