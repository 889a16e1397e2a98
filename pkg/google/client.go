// Package google mirrors CRM tasks onto a Google Calendar.
package google

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/crmsync/pkg/index"
)

// FindCalendar returns the id of the calendar whose summary is name.
func FindCalendar(ctx context.Context, srv *calendar.Service, name string) (string, error) {
	var calendarID string
	err := srv.CalendarList.List().Context(ctx).Pages(ctx, func(page *calendar.CalendarList) error {
		for _, item := range page.Items {
			if item.Summary == name {
				calendarID = item.Id
				return errStop
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	if calendarID == "" {
		return "", fmt.Errorf("calendar '%s' not found", name)
	}
	return calendarID, nil
}

// NewClient resolves the calendar by name and returns a client for it.
func NewClient(ctx context.Context, srv *calendar.Service, calendarName string, idx *index.EventIndex, logger *zap.Logger) (*CalendarClient, error) {
	calendarID, err := FindCalendar(ctx, srv, calendarName)
	if err != nil {
		return nil, err
	}
	return NewCalendarClient(srv, calendarID, idx, logger), nil
}
