// Package index remembers which calendar event mirrors which CRM task.
package index

import (
	"sort"
	"sync"

	"github.com/harrisonrobin/crmsync/pkg/statefile"
)

// FileName is the index file inside the config directory.
const FileName = "events.json"

// EventIndex maps task ids to event ids on one calendar.
type EventIndex struct {
	path  string
	mu    sync.RWMutex
	file  indexFile
	dirty bool
}

type indexFile struct {
	CalendarID string            `json:"calendar_id,omitempty"`
	Events     map[string]string `json:"events"`
}

// Open loads the index at path. A missing file gives an empty index.
func Open(path string) (*EventIndex, error) {
	idx := &EventIndex{path: path}
	if _, err := statefile.Read(path, &idx.file); err != nil {
		return nil, err
	}
	if idx.file.Events == nil {
		idx.file.Events = make(map[string]string)
	}
	return idx, nil
}

func (idx *EventIndex) Path() string { return idx.path }

// Bind ties the index to a calendar. Event ids recorded for another
// calendar mean nothing on this one, so they are dropped and tasks are found
// again by search.
func (idx *EventIndex) Bind(calendarID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.file.CalendarID == calendarID {
		return
	}
	if idx.file.CalendarID != "" {
		idx.file.Events = make(map[string]string)
	}
	idx.file.CalendarID = calendarID
	idx.dirty = true
}

func (idx *EventIndex) CalendarID() string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.file.CalendarID
}

// Save writes the index when it changed since it was opened or last saved.
func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}
	if err := statefile.Write(idx.path, idx.file); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

func (idx *EventIndex) Get(taskID string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.file.Events[taskID]
}

func (idx *EventIndex) Set(taskID, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.file.Events[taskID] != eventID {
		idx.file.Events[taskID] = eventID
		idx.dirty = true
	}
}

func (idx *EventIndex) Remove(taskID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.file.Events[taskID]; ok {
		delete(idx.file.Events, taskID)
		idx.dirty = true
	}
}

// TaskIDs lists the indexed tasks in sorted order.
func (idx *EventIndex) TaskIDs() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.file.Events))
	for id := range idx.file.Events {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
