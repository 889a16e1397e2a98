// Package normalize maps CRM entities between their application shape
// (pkg/model) and the record shape persisted by the store: snake_case field
// names, comma-joined tags, calendar-date strings and a derived Name field.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/store"
)

// DateLayout is the calendar-date form stored for due dates.
const DateLayout = "2006-01-02"

// JoinTags collapses tags into the store's comma-joined Tags value.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// SplitTags recovers tags from a comma-joined string, trimming whitespace and
// dropping empty entries.
func SplitTags(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// CalendarDate reduces a date-ish value to YYYY-MM-DD. Time values are taken
// in UTC; strings are cut at the date/time separator. Anything else, including
// zero times, yields "".
func CalendarDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(DateLayout)
	case *time.Time:
		if t == nil {
			return ""
		}
		return CalendarDate(*t)
	case string:
		s := strings.TrimSpace(t)
		if i := strings.IndexAny(s, "T "); i >= 0 {
			s = s[:i]
		}
		return s
	default:
		return ""
	}
}

// Float coerces a loosely typed number. Missing or unparsable input is 0.
func Float(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Int coerces a loosely typed integer, truncating fractions and saturating
// at the int range. Missing or unparsable input is 0.
func Int(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	f := Float(v)
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}

func putID(r store.Record, id string) {
	if id != "" {
		r[store.FieldID] = id
	}
}

func putTags(r store.Record, tags []string) {
	if len(tags) > 0 {
		r[store.FieldTags] = JoinTags(tags)
	}
}

// putOptional writes a reference or optional value only when it is set.
func putOptional(r store.Record, key, value string) {
	if value != "" {
		r[key] = value
	}
}

// ref reads a reference field. Lookup fields may come back expanded as
// {"Id": ..., "Name": ...}; only the identity is kept.
func ref(r store.Record, key string) string {
	if m, ok := r[key].(map[string]any); ok {
		return store.Record(m).ID()
	}
	return r.String(key)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func audit(r store.Record) (a model.Audit) {
	a.CreatedOn = r.String(store.FieldCreatedOn)
	a.CreatedBy = ref(r, store.FieldCreatedBy)
	a.ModifiedOn = r.String(store.FieldModifiedOn)
	a.ModifiedBy = ref(r, store.FieldModifiedBy)
	return a
}

// withSystem appends the store-owned fields to an entity's writable fields.
func withSystem(fields ...string) []string {
	all := []string{store.FieldName, store.FieldTags, store.FieldOwner}
	all = append(all, store.AuditFields...)
	return append(all, fields...)
}
