// Package client holds the consuming application's view of the calendar:
// an in-memory event cache over the REST API plus the derived views the
// UI renders from it.
package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/medfolio/calendar/internal/app"
	"github.com/medfolio/calendar/internal/dategrid"
	"github.com/medfolio/calendar/internal/storage"
)

// DayCell is one month-view cell: a grid cell plus whether the cached
// list has any event on that day.
type DayCell struct {
	dategrid.Cell
	HasEvents bool
}

// PendingInvite is one outstanding invite row for the current user.
type PendingInvite struct {
	Event    storage.Event
	Attendee storage.Attendee
}

// Cache mirrors the server's event list for one signed-in user. Mutations go
// through the API and the local list is reconciled from the response: a full
// replace on refresh, an append on create, a replace-by-id on update, and a
// forced full refresh after any invite-affecting action so the attendee
// state shown to the user never drifts from server truth.
type Cache struct {
	mu     sync.RWMutex
	api    API
	userID string
	email  string
	events []storage.Event
}

// New creates an empty cache for the signed-in user. Call Refresh to load.
func New(api API, userID string, email string) *Cache {
	return &Cache{api: api, userID: userID, email: email, events: []storage.Event{}}
}

// Refresh replaces the whole local list with the server's. Overlapping
// refreshes are not ordered; the last response to arrive wins.
func (c *Cache) Refresh(ctx context.Context) error {
	events, err := c.api.ListEvents(ctx, storage.EventFilter{})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.events = events
	c.mu.Unlock()
	return nil
}

// CreateEvent appends the server-confirmed event to the local list.
func (c *Cache) CreateEvent(ctx context.Context, e storage.Event) (storage.Event, error) {
	created, err := c.api.CreateEvent(ctx, e)
	if err != nil {
		return storage.Event{}, err
	}
	c.mu.Lock()
	c.events = append(c.events, created)
	c.mu.Unlock()
	return created, nil
}

// UpdateEvent replaces the matching local event with the server's record.
func (c *Cache) UpdateEvent(ctx context.Context, id string, patch storage.EventPatch) (storage.Event, error) {
	updated, err := c.api.UpdateEvent(ctx, id, patch)
	if err != nil {
		return storage.Event{}, err
	}
	c.mu.Lock()
	for i := range c.events {
		if c.events[i].ID == id {
			c.events[i] = updated
			break
		}
	}
	c.mu.Unlock()
	return updated, nil
}

func (c *Cache) DeleteEvent(ctx context.Context, id string) error {
	if err := c.api.DeleteEvent(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	for i := range c.events {
		if c.events[i].ID == id {
			c.events = append(c.events[:i], c.events[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	return nil
}

// InviteAttendees dispatches the invites and then refetches the full list
// instead of patching the attendee list locally, picking up whatever the
// server actually persisted.
func (c *Cache) InviteAttendees(ctx context.Context, eventID string, invites []app.Invite) error {
	if _, err := c.api.InviteAttendees(ctx, eventID, invites); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// RespondToInvite answers an invite and refetches, same policy as invites.
func (c *Cache) RespondToInvite(ctx context.Context, eventID string, attendeeID string, status string) error {
	if err := c.api.RespondToInvite(ctx, eventID, attendeeID, status); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// Clear drops the local list, for sign-out.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.events = []storage.Event{}
	c.mu.Unlock()
}

func (c *Cache) Events() []storage.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	events := make([]storage.Event, len(c.events))
	copy(events, c.events)
	return events
}

// MarkedDates returns the date-keys that have at least one event, used to
// mark cells of the month grid.
func (c *Cache) MarkedDates() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	marked := make(map[string]bool)
	for _, e := range c.events {
		marked[e.Date] = true
	}
	return marked
}

// MonthView returns the 42-cell grid for the month with cells marked when
// the local list has an event on that day. Re-derived on every call; the
// grid itself is cheap and the event list may have been refreshed.
func (c *Cache) MonthView(year int, month time.Month) []DayCell {
	marked := c.MarkedDates()
	cells := dategrid.Month(year, month)
	view := make([]DayCell, 0, len(cells))
	for _, cell := range cells {
		view = append(view, DayCell{Cell: cell, HasEvents: marked[cell.Date]})
	}
	return view
}

// EventsOn returns the events of a single selected day.
func (c *Cache) EventsOn(date string) []storage.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	events := make([]storage.Event, 0)
	for _, e := range c.events {
		if e.Date == date {
			events = append(events, e)
		}
	}
	return events
}

// PendingInvites returns the current user's unanswered invites, matched by
// email case-insensitively.
func (c *Cache) PendingInvites() []PendingInvite {
	c.mu.RLock()
	defer c.mu.RUnlock()
	invites := make([]PendingInvite, 0)
	for _, e := range c.events {
		for _, a := range e.Attendees {
			if a.Status == storage.StatusInvited && strings.EqualFold(a.Email, c.email) {
				invites = append(invites, PendingInvite{Event: e, Attendee: a})
			}
		}
	}
	return invites
}
