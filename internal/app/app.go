package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/medfolio/calendar/internal/storage"
	log "github.com/sirupsen/logrus"
)

// Invite is one entry of an invite request.
type Invite struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// InviteNotifier delivers the invitation to the invited user. Delivery is
// best effort: failures are logged by the app and never fail the invite.
type InviteNotifier interface {
	NotifyInvite(ctx context.Context, event storage.Event, attendee storage.Attendee) error
}

type App struct {
	Storage  storage.Storage
	Notifier InviteNotifier
}

func New(storage storage.Storage, notifier InviteNotifier) *App {
	return &App{Storage: storage, Notifier: notifier}
}

func (a *App) CreateEvent(ctx context.Context, ownerID string, e storage.Event) (storage.Event, error) {
	e.OwnerID = ownerID
	if err := validateEvent(e); err != nil {
		return storage.Event{}, err
	}
	if err := a.Storage.AddEvent(ctx, &e); err != nil {
		return storage.Event{}, err
	}
	return e, nil
}

func (a *App) UpdateEvent(ctx context.Context, id string, requesterID string, patch storage.EventPatch) (storage.Event, error) {
	e, err := a.Storage.GetEvent(ctx, id)
	if err != nil {
		return storage.Event{}, err
	}
	if e.OwnerID != requesterID {
		return storage.Event{}, fmt.Errorf("user %q is not the owner of event %q: %w", requesterID, id, storage.ErrNotAuthorized)
	}
	if err := validateEvent(patch.Apply(e)); err != nil {
		return storage.Event{}, err
	}
	return a.Storage.UpdateEvent(ctx, id, patch)
}

func (a *App) RemoveEvent(ctx context.Context, id string, requesterID string) error {
	e, err := a.Storage.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if e.OwnerID != requesterID {
		return fmt.Errorf("user %q is not the owner of event %q: %w", requesterID, id, storage.ErrNotAuthorized)
	}
	return a.Storage.RemoveEvent(ctx, id)
}

func (a *App) ListEvents(ctx context.Context, userID string, filter storage.EventFilter) ([]storage.Event, error) {
	return a.Storage.ListEvents(ctx, userID, filter)
}

// InviteAttendees persists one invited attendee per entry and then attempts
// delivery. The attendee record is kept even when delivery fails.
func (a *App) InviteAttendees(ctx context.Context, eventID string, requesterID string, invites []Invite) (storage.Event, error) {
	e, err := a.Storage.GetEvent(ctx, eventID)
	if err != nil {
		return storage.Event{}, err
	}
	if e.OwnerID != requesterID {
		return storage.Event{}, fmt.Errorf("user %q is not the owner of event %q: %w", requesterID, eventID, storage.ErrNotAuthorized)
	}
	for _, invite := range invites {
		if invite.UserID == "" || invite.Email == "" {
			return storage.Event{}, fmt.Errorf("attendee userId and email are required: %w", storage.ErrValidation)
		}
		if invite.UserID == e.OwnerID {
			return storage.Event{}, fmt.Errorf("owner cannot be invited to own event: %w", storage.ErrValidation)
		}
	}

	for _, invite := range invites {
		attendee := storage.Attendee{EventID: eventID, UserID: invite.UserID, Email: invite.Email}
		if err := a.Storage.UpsertAttendee(ctx, &attendee); err != nil {
			return storage.Event{}, err
		}
		if err := a.Notifier.NotifyInvite(ctx, e, attendee); err != nil {
			log.WithField("eventId", eventID).WithField("email", attendee.Email).
				Warnf("failed to deliver invite notification: %v", err)
		}
	}
	return a.Storage.GetEvent(ctx, eventID)
}

// RespondToInvite overwrites the attendee status unconditionally: a repeated
// or conflicting response is resolved last write wins.
func (a *App) RespondToInvite(ctx context.Context, eventID string, attendeeID string, status string) error {
	if status != storage.StatusAccepted && status != storage.StatusDeclined {
		return fmt.Errorf("status must be %q or %q: %w", storage.StatusAccepted, storage.StatusDeclined, storage.ErrValidation)
	}
	return a.Storage.SetAttendeeStatus(ctx, eventID, attendeeID, status)
}

func validateEvent(e storage.Event) error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("title is required: %w", storage.ErrValidation)
	}
	if e.Date == "" {
		return fmt.Errorf("date is required: %w", storage.ErrValidation)
	}
	if e.Type != storage.TypeOfficial && e.Type != storage.TypePersonal {
		return fmt.Errorf("type must be %q or %q: %w", storage.TypeOfficial, storage.TypePersonal, storage.ErrValidation)
	}
	return nil
}
