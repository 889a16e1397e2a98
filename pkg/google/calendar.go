package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/harrisonrobin/crmsync/pkg/index"
)

var errStop = errors.New("stop paging")

// CalendarClient is a Google Calendar API client bound to one calendar.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	index      *index.EventIndex
	logger     *zap.Logger
}

// NewCalendarClient creates a client for calendarID and binds idx to it.
// idx may be nil, in which case every lookup searches the calendar.
func NewCalendarClient(srv *calendar.Service, calendarID string, idx *index.EventIndex, logger *zap.Logger) *CalendarClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if idx != nil {
		idx.Bind(calendarID)
	}
	return &CalendarClient{
		srv:        srv,
		calendarID: calendarID,
		index:      idx,
		logger:     logger.With(zap.String("calendar_id", calendarID)),
	}
}

func (c *CalendarClient) CalendarID() string { return c.calendarID }

// SyncEvent creates the event of a task or patches the existing one.
func (c *CalendarClient) SyncEvent(ctx context.Context, taskID string, event *calendar.Event) (*calendar.Event, error) {
	existing, err := c.find(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		patch := EventNeedsUpdate(existing, event)
		if patch == nil {
			c.remember(taskID, existing.Id)
			return existing, nil
		}
		updated, err := c.PatchEvent(ctx, existing.Id, patch)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("patched event", zap.String("task_id", taskID), zap.String("event_id", updated.Id))
		c.remember(taskID, updated.Id)
		return updated, nil
	}

	created, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert event for task %s: %w", taskID, err)
	}
	c.logger.Debug("created event", zap.String("task_id", taskID), zap.String("event_id", created.Id))
	c.remember(taskID, created.Id)
	return created, nil
}

// DeleteTask removes the event of a task. It reports false when the task had
// no event.
func (c *CalendarClient) DeleteTask(ctx context.Context, taskID string) (bool, error) {
	existing, err := c.find(ctx, taskID)
	if err != nil {
		return false, err
	}
	if c.index != nil {
		defer c.index.Remove(taskID)
	}
	if existing == nil {
		return false, nil
	}
	if err := c.DeleteEvent(ctx, existing.Id); err != nil {
		return false, err
	}
	return true, nil
}

// PatchEvent performs a partial update on an event.
func (c *CalendarClient) PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	ev, err := c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("patch event %s: %w", eventID, err)
	}
	return ev, nil
}

// DeleteEvent deletes an event. An event that is already gone is not an
// error.
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	if err != nil && !isGone(err) {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

// GetEventByTaskID searches the calendar for the event carrying the task id.
func (c *CalendarClient) GetEventByTaskID(ctx context.Context, taskID string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", TaskIDProperty, taskID)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search event for task %s: %w", taskID, err)
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

// find tries the local index first and falls back to searching the calendar.
func (c *CalendarClient) find(ctx context.Context, taskID string) (*calendar.Event, error) {
	if c.index != nil {
		if eventID := c.index.Get(taskID); eventID != "" {
			ev, err := c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
			switch {
			case err == nil && ev.Status != "cancelled":
				return ev, nil
			case err != nil && !isGone(err):
				c.logger.Warn("indexed event lookup failed, searching calendar",
					zap.String("task_id", taskID), zap.String("event_id", eventID), zap.Error(err))
			}
		}
	}
	return c.GetEventByTaskID(ctx, taskID)
}

func (c *CalendarClient) remember(taskID, eventID string) {
	if c.index != nil {
		c.index.Set(taskID, eventID)
	}
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}
