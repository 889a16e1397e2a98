// Package overdue tracks open tasks whose calendar event must be flagged once
// the due date passes, so a sweep can flag them without refetching tasks.
package overdue

import (
	"fmt"
	"sort"

	"github.com/harrisonrobin/crmsync/pkg/statefile"
)

// FileName is the table file inside the config directory.
const FileName = "pending_tasks.json"

type Entry struct {
	TaskID  string `json:"task_id"`
	EventID string `json:"event_id"`
	Summary string `json:"summary"`
	// Due is a calendar date, YYYY-MM-DD.
	Due string `json:"due"`
}

type Table struct {
	Entries map[string]Entry `json:"entries"`
	Path    string           `json:"-"`
	dirty   bool
}

// Open loads the table at path. A missing file gives an empty table.
func Open(path string) (*Table, error) {
	t := &Table{Path: path}
	if _, err := statefile.Read(path, t); err != nil {
		return nil, fmt.Errorf("overdue table: %w", err)
	}
	if t.Entries == nil {
		t.Entries = make(map[string]Entry)
	}
	return t, nil
}

func (t *Table) Save() error {
	if !t.dirty {
		return nil
	}
	if err := statefile.Write(t.Path, t); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

// Update tracks a task that has a due date. An empty due date removes it.
func (t *Table) Update(taskID, eventID, summary, due string) {
	if due == "" {
		t.Remove(taskID)
		return
	}
	next := Entry{TaskID: taskID, EventID: eventID, Summary: summary, Due: due}
	if old, ok := t.Entries[taskID]; !ok || old != next {
		t.Entries[taskID] = next
		t.dirty = true
	}
}

func (t *Table) Remove(taskID string) {
	if _, exists := t.Entries[taskID]; exists {
		delete(t.Entries, taskID)
		t.dirty = true
	}
}

// Sweep returns, ordered by due date, the entries due before today and
// removes them. today is YYYY-MM-DD.
func (t *Table) Sweep(today string) []Entry {
	var swept []Entry
	for id, entry := range t.Entries {
		if entry.Due < today {
			swept = append(swept, entry)
			delete(t.Entries, id)
			t.dirty = true
		}
	}
	sort.Slice(swept, func(i, j int) bool {
		if swept[i].Due != swept[j].Due {
			return swept[i].Due < swept[j].Due
		}
		return swept[i].TaskID < swept[j].TaskID
	})
	return swept
}
