package model

import "strings"

// Stage is the pipeline position shared by contacts and opportunities.
type Stage string

const (
	StageLead        Stage = "lead"
	StageQualified   Stage = "qualified"
	StageProposal    Stage = "proposal"
	StageNegotiation Stage = "negotiation"
	StageClosed      Stage = "closed"
)

// Stages lists the pipeline in order.
var Stages = []Stage{StageLead, StageQualified, StageProposal, StageNegotiation, StageClosed}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on-hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

type TaskStatus string

const (
	TaskTodo     TaskStatus = "todo"
	TaskProgress TaskStatus = "progress"
	TaskReview   TaskStatus = "review"
	TaskDone     TaskStatus = "done"
)

type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryShopping Category = "shopping"
	CategoryHealth   Category = "health"
	CategoryLearning Category = "learning"
)

// Audit holds the store-owned bookkeeping fields. They are read back from the
// store and never written.
type Audit struct {
	CreatedOn  string
	CreatedBy  string
	ModifiedOn string
	ModifiedBy string
}

// Contact is a person in the CRM.
type Contact struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   string
	Position  string
	Stage     Stage
	Tags      []string
	Owner     string
	Audit
}

// Name is the display name persisted as the record's Name field.
func (c Contact) Name() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Opportunity is a deal moving through the sales pipeline.
type Opportunity struct {
	ID          string
	Title       string
	Value       float64
	Stage       Stage
	Probability int
	AssignedTo  string
	ContactID   string
	Tags        []string
	Owner       string
	Audit
}

type Project struct {
	ID          string
	Name        string
	Description string
	Priority    Priority
	Status      ProjectStatus
	DueDate     string // YYYY-MM-DD, empty when unset
	Tags        []string
	Owner       string
	Audit
}

type Task struct {
	ID          string
	Title       string
	Description string
	Priority    Priority
	Status      TaskStatus
	Category    Category
	DueDate     string // YYYY-MM-DD, empty when unset
	ProjectID   string
	AssigneeID  string
	Subtasks    string
	Comments    string
	Tags        []string
	Owner       string
	Audit
}

// Open reports whether the task still needs doing.
func (t Task) Open() bool {
	return t.Status != TaskDone
}
