package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFoundEvent    = errors.New("event not found")
	ErrNotFoundAttendee = errors.New("attendee not found")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrValidation       = errors.New("validation failed")
)

type Storage interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	AddEvent(ctx context.Context, e *Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, id string, patch EventPatch) (Event, error)
	RemoveEvent(ctx context.Context, id string) error
	// ListEvents returns events the user owns plus events where the user
	// holds an attendee record, sorted by date ascending.
	ListEvents(ctx context.Context, userID string, filter EventFilter) ([]Event, error)
	// UpsertAttendee creates an attendee in the invited state. If the
	// (event, user) pair already exists the record keeps its ID and is
	// reset to invited with the given email.
	UpsertAttendee(ctx context.Context, a *Attendee) error
	GetAttendee(ctx context.Context, eventID string, attendeeID string) (Attendee, error)
	SetAttendeeStatus(ctx context.Context, eventID string, attendeeID string, status string) error
}
