// Package colors assigns calendar colors to CRM projects, recycling the
// least recently used color once all are taken.
package colors

import (
	"fmt"
	"strconv"
	"time"

	"github.com/harrisonrobin/crmsync/pkg/statefile"
)

const (
	// FileName is the cache file inside the config directory.
	FileName = "project_colors.json"

	// NoProject is the gray used for tasks outside any project.
	NoProject = "14"

	// paletteSize is the number of event colors handed out to projects.
	paletteSize = 11
)

type ProjectState struct {
	ColorID      string    `json:"color_id"`
	LastModified time.Time `json:"last_modified"`
}

type ColorCache struct {
	Path     string
	Projects map[string]*ProjectState
	dirty    bool
	now      func() time.Time
}

// Open loads the cache at path. A missing file gives an empty cache.
func Open(path string) (*ColorCache, error) {
	cache := &ColorCache{Path: path, now: time.Now}
	if _, err := statefile.Read(path, &cache.Projects); err != nil {
		return nil, fmt.Errorf("color cache: %w", err)
	}
	if cache.Projects == nil {
		cache.Projects = make(map[string]*ProjectState)
	}
	return cache, nil
}

func (c *ColorCache) Save() error {
	if !c.dirty {
		return nil
	}
	if err := statefile.Write(c.Path, c.Projects); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// ColorID returns the event color of a project and marks it recently used.
func (c *ColorCache) ColorID(projectID string) string {
	if projectID == "" {
		return NoProject
	}
	if state, ok := c.Projects[projectID]; ok {
		state.LastModified = c.now()
		c.dirty = true
		return state.ColorID
	}
	return c.assign(projectID)
}

func (c *ColorCache) assign(projectID string) string {
	used := make(map[string]bool, len(c.Projects))
	for _, s := range c.Projects {
		used[s.ColorID] = true
	}

	color := ""
	for i := 1; i <= paletteSize; i++ {
		if id := strconv.Itoa(i); !used[id] {
			color = id
			break
		}
	}

	if color == "" {
		var oldest string
		var oldestTime time.Time
		for p, s := range c.Projects {
			if oldest == "" || s.LastModified.Before(oldestTime) {
				oldest, oldestTime = p, s.LastModified
			}
		}
		color = c.Projects[oldest].ColorID
		delete(c.Projects, oldest)
	}

	c.Projects[projectID] = &ProjectState{ColorID: color, LastModified: c.now()}
	c.dirty = true
	return color
}
