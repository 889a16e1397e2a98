// Package store defines the table-scoped record store contract consumed by
// the record adapters, plus the request and response envelopes shared by
// every backend.
package store

import (
	"context"
	"fmt"
	"strconv"
)

// Store-owned field names.
const (
	FieldID         = "Id"
	FieldName       = "Name"
	FieldTags       = "Tags"
	FieldOwner      = "Owner"
	FieldCreatedOn  = "CreatedOn"
	FieldCreatedBy  = "CreatedBy"
	FieldModifiedOn = "ModifiedOn"
	FieldModifiedBy = "ModifiedBy"
)

// AuditFields are maintained by the store and are never written by clients.
var AuditFields = []string{FieldCreatedOn, FieldCreatedBy, FieldModifiedOn, FieldModifiedBy}

// Record is one row of a store table, keyed by persisted field name.
type Record map[string]any

// ID returns the record identity as a string, or "" when absent.
func (r Record) ID() string {
	return r.String(FieldID)
}

// String returns the field rendered as a string. Numbers coming back from a
// JSON decoder are printed without a trailing fraction.
func (r Record) String(key string) string {
	return Text(r[key])
}

// Text renders a field value as a string; nil is "".
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

type SortType string

const (
	SortAsc  SortType = "ASC"
	SortDesc SortType = "DESC"
)

type OrderBy struct {
	FieldName string   `json:"fieldName"`
	SortType  SortType `json:"SortType"`
}

type Operator string

const ExactMatch Operator = "ExactMatch"

type Condition struct {
	FieldName string   `json:"fieldName"`
	Operator  Operator `json:"operator"`
	Values    []string `json:"values"`
}

// Query describes a list request against one table.
type Query struct {
	Fields  []string    `json:"fields"`
	OrderBy []OrderBy   `json:"orderBy,omitempty"`
	Where   []Condition `json:"where,omitempty"`
}

type ListResponse struct {
	Success bool     `json:"success"`
	Data    []Record `json:"data"`
	Message string   `json:"message,omitempty"`
}

// GetResponse carries a nil Data when the store has no such record.
type GetResponse struct {
	Success bool   `json:"success"`
	Data    Record `json:"data"`
	Message string `json:"message,omitempty"`
}

// ItemResult is the per-record outcome of a bulk operation.
type ItemResult struct {
	Success bool   `json:"success"`
	Data    Record `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type BulkResponse struct {
	Success bool         `json:"success"`
	Results []ItemResult `json:"results"`
	Message string       `json:"message,omitempty"`
}

type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// RecordStore is the remote backend. Implementations return an error only for
// transport or store failures; an empty table is not an error.
type RecordStore interface {
	List(ctx context.Context, table string, q Query) (*ListResponse, error)
	GetByID(ctx context.Context, table, id string, fields []string) (*GetResponse, error)
	BulkCreate(ctx context.Context, table string, records []Record) (*BulkResponse, error)
	BulkUpdate(ctx context.Context, table string, records []Record) (*BulkResponse, error)
	BulkDelete(ctx context.Context, table string, ids []string) (*DeleteResponse, error)
}
