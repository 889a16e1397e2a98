// Package orgmode reads TODO and DONE headlines from Org-mode files as task
// drafts.
package orgmode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/normalize"
)

var (
	headlineRegex = regexp.MustCompile(`^\*+\s+(TODO|DONE)\s+(?:\[#([A-Z])\]\s*)?(.*?)(?:\s+(:[\w@:]+:))?\s*$`)
	deadlineRegex = regexp.MustCompile(`DEADLINE:\s+<(\d{4}-\d{2}-\d{2})[^>]*>`)
	planningRegex = regexp.MustCompile(`^(DEADLINE|SCHEDULED|CLOSED):`)
)

var priorities = map[string]model.Priority{
	"A": model.PriorityHigh,
	"B": model.PriorityMedium,
	"C": model.PriorityLow,
}

func parseFile(filePath string) ([]normalize.Draft, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file)
}

// ParseFiles parses several Org-mode files in order.
func ParseFiles(filePaths []string) ([]normalize.Draft, error) {
	var all []normalize.Draft
	for _, filePath := range filePaths {
		drafts, err := parseFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filePath, err)
		}
		all = append(all, drafts...)
	}
	return all, nil
}

// Parse returns one task draft per TODO or DONE headline. Body lines under
// a headline become its description; property drawers and planning lines
// other than DEADLINE are skipped.
func Parse(r io.Reader) ([]normalize.Draft, error) {
	scanner := bufio.NewScanner(r)
	var drafts []normalize.Draft
	var current normalize.Draft
	var body []string
	inDrawer := false

	flush := func() {
		if current == nil {
			return
		}
		if len(body) > 0 {
			current["description"] = strings.Join(body, "\n")
		}
		drafts = append(drafts, current)
		current, body = nil, nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "*") {
			flush()
			if m := headlineRegex.FindStringSubmatch(line); m != nil {
				current = headline(m)
			}
			continue
		}
		if current == nil {
			continue
		}

		switch {
		case line == ":PROPERTIES:" || line == ":LOGBOOK:":
			inDrawer = true
		case line == ":END:":
			inDrawer = false
		case inDrawer:
		case planningRegex.MatchString(line):
			if m := deadlineRegex.FindStringSubmatch(line); m != nil {
				current["due_date"] = m[1]
			}
		case line != "":
			body = append(body, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return drafts, nil
}

func headline(m []string) normalize.Draft {
	d := normalize.Draft{
		"title":  strings.TrimSpace(m[3]),
		"status": string(model.TaskTodo),
	}
	if m[1] == "DONE" {
		d["status"] = string(model.TaskDone)
	}
	if p, ok := priorities[m[2]]; ok {
		d["priority"] = string(p)
	}
	if m[4] != "" {
		d["tags"] = strings.Split(strings.Trim(m[4], ":"), ":")
	}
	return d
}

// FilterByTag keeps the drafts carrying tag.
func FilterByTag(drafts []normalize.Draft, tag string) []normalize.Draft {
	var out []normalize.Draft
	for _, d := range drafts {
		tags, _ := d["tags"].([]string)
		for _, t := range tags {
			if t == tag {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
