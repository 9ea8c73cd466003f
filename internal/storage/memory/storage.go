package memorystorage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/medfolio/calendar/internal/storage"
)

type Storage struct {
	mu        sync.RWMutex
	events    map[string]storage.Event
	attendees map[string]map[string]storage.Attendee // eventID -> attendeeID
}

func New() *Storage {
	return &Storage{
		events:    make(map[string]storage.Event),
		attendees: make(map[string]map[string]storage.Attendee),
	}
}

func (s *Storage) Connect(_ context.Context) error {
	return nil
}

func (s *Storage) Close(_ context.Context) error {
	return nil
}

func (s *Storage) AddEvent(_ context.Context, e *storage.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, ok := s.events[e.ID]; ok {
		return fmt.Errorf("duplicate event ID %q: %w", e.ID, storage.ErrValidation)
	}
	stored := *e
	stored.Attendees = nil
	s.events[e.ID] = stored
	e.Attendees = []storage.Attendee{}
	return nil
}

func (s *Storage) GetEvent(_ context.Context, id string) (storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return storage.Event{}, fmt.Errorf("event %q: %w", id, storage.ErrNotFoundEvent)
	}
	e.Attendees = s.eventAttendees(id)
	return e, nil
}

func (s *Storage) UpdateEvent(_ context.Context, id string, patch storage.EventPatch) (storage.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return storage.Event{}, fmt.Errorf("failed to update event %q: %w", id, storage.ErrNotFoundEvent)
	}
	e = patch.Apply(e)
	s.events[id] = e
	e.Attendees = s.eventAttendees(id)
	return e, nil
}

func (s *Storage) RemoveEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("failed to remove event %q: %w", id, storage.ErrNotFoundEvent)
	}
	delete(s.events, id)
	delete(s.attendees, id)
	return nil
}

func (s *Storage) ListEvents(_ context.Context, userID string, filter storage.EventFilter) ([]storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]storage.Event, 0)
	for id, e := range s.events {
		if e.OwnerID != userID && !s.isAttendee(id, userID) {
			continue
		}
		if !filter.Matches(e) {
			continue
		}
		e.Attendees = s.eventAttendees(id)
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func (s *Storage) UpsertAttendee(_ context.Context, a *storage.Attendee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[a.EventID]; !ok {
		return fmt.Errorf("event %q: %w", a.EventID, storage.ErrNotFoundEvent)
	}
	byID := s.attendees[a.EventID]
	if byID == nil {
		byID = make(map[string]storage.Attendee)
		s.attendees[a.EventID] = byID
	}
	for id, existing := range byID {
		if existing.UserID == a.UserID {
			existing.Email = a.Email
			existing.Status = storage.StatusInvited
			byID[id] = existing
			*a = existing
			return nil
		}
	}
	a.ID = uuid.NewString()
	a.Status = storage.StatusInvited
	byID[a.ID] = *a
	return nil
}

func (s *Storage) GetAttendee(_ context.Context, eventID string, attendeeID string) (storage.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attendees[eventID][attendeeID]
	if !ok {
		return storage.Attendee{}, fmt.Errorf("attendee %q of event %q: %w", attendeeID, eventID, storage.ErrNotFoundAttendee)
	}
	return a, nil
}

func (s *Storage) SetAttendeeStatus(_ context.Context, eventID string, attendeeID string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attendees[eventID][attendeeID]
	if !ok {
		return fmt.Errorf("attendee %q of event %q: %w", attendeeID, eventID, storage.ErrNotFoundAttendee)
	}
	a.Status = status
	s.attendees[eventID][attendeeID] = a
	return nil
}

// Callers must hold at least a read lock.
func (s *Storage) eventAttendees(eventID string) []storage.Attendee {
	attendees := make([]storage.Attendee, 0, len(s.attendees[eventID]))
	for _, a := range s.attendees[eventID] {
		attendees = append(attendees, a)
	}
	sort.Slice(attendees, func(i, j int) bool { return attendees[i].ID < attendees[j].ID })
	return attendees
}

// Callers must hold at least a read lock.
func (s *Storage) isAttendee(eventID string, userID string) bool {
	for _, a := range s.attendees[eventID] {
		if a.UserID == userID {
			return true
		}
	}
	return false
}
