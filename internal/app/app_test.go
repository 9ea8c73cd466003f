package app

import (
	"context"
	"errors"
	"testing"

	"github.com/medfolio/calendar/internal/storage"
	memorystorage "github.com/medfolio/calendar/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

type stubNotifier struct {
	err      error
	notified []storage.Attendee
}

func (n *stubNotifier) NotifyInvite(_ context.Context, _ storage.Event, a storage.Attendee) error {
	n.notified = append(n.notified, a)
	return n.err
}

func newApp() (*App, *stubNotifier) {
	notifier := &stubNotifier{}
	return New(memorystorage.New(), notifier), notifier
}

func officialEvent() storage.Event {
	return storage.Event{
		Type:  storage.TypeOfficial,
		Title: "Ward Review",
		Date:  "2025-03-10",
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("owner is taken from the request identity", func(t *testing.T) {
		a, _ := newApp()
		e := officialEvent()
		e.OwnerID = "somebody-else"
		created, err := a.CreateEvent(ctx, "user-1", e)
		require.NoError(t, err)
		require.Equal(t, "user-1", created.OwnerID)
		require.NotEmpty(t, created.ID)
		require.Empty(t, created.Attendees)
	})

	t.Run("required fields", func(t *testing.T) {
		a, _ := newApp()
		for name, e := range map[string]storage.Event{
			"missing title": {Type: storage.TypeOfficial, Date: "2025-03-10"},
			"missing date":  {Type: storage.TypeOfficial, Title: "Ward Review"},
			"bad type":      {Type: "conference", Title: "Ward Review", Date: "2025-03-10"},
		} {
			_, err := a.CreateEvent(ctx, "user-1", e)
			require.ErrorIs(t, err, storage.ErrValidation, name)
		}
	})

	t.Run("times are stored as free-form strings", func(t *testing.T) {
		a, _ := newApp()
		e := officialEvent()
		e.StartTime = "17:00"
		e.EndTime = "09:00" // never validated against start
		created, err := a.CreateEvent(ctx, "user-1", e)
		require.NoError(t, err)
		require.Equal(t, "17:00", created.StartTime)
		require.Equal(t, "09:00", created.EndTime)
	})
}

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("non-owner is rejected and event unchanged", func(t *testing.T) {
		a, _ := newApp()
		created, err := a.CreateEvent(ctx, "user-1", officialEvent())
		require.NoError(t, err)

		title := "Hijacked"
		_, err = a.UpdateEvent(ctx, created.ID, "user-2", storage.EventPatch{Title: &title})
		require.ErrorIs(t, err, storage.ErrNotAuthorized)

		events, err := a.ListEvents(ctx, "user-1", storage.EventFilter{})
		require.NoError(t, err)
		require.Equal(t, "Ward Review", events[0].Title)
	})

	t.Run("patch cannot clear required fields", func(t *testing.T) {
		a, _ := newApp()
		created, err := a.CreateEvent(ctx, "user-1", officialEvent())
		require.NoError(t, err)

		empty := ""
		_, err = a.UpdateEvent(ctx, created.ID, "user-1", storage.EventPatch{Title: &empty})
		require.ErrorIs(t, err, storage.ErrValidation)
	})

	t.Run("unknown event", func(t *testing.T) {
		a, _ := newApp()
		title := "x"
		_, err := a.UpdateEvent(ctx, "missing", "user-1", storage.EventPatch{Title: &title})
		require.ErrorIs(t, err, storage.ErrNotFoundEvent)
	})
}

func TestRemoveEvent(t *testing.T) {
	ctx := context.Background()
	a, _ := newApp()
	created, err := a.CreateEvent(ctx, "user-1", officialEvent())
	require.NoError(t, err)

	require.ErrorIs(t, a.RemoveEvent(ctx, created.ID, "user-2"), storage.ErrNotAuthorized)
	require.NoError(t, a.RemoveEvent(ctx, created.ID, "user-1"))
	require.ErrorIs(t, a.RemoveEvent(ctx, created.ID, "user-1"), storage.ErrNotFoundEvent)
}

func TestInviteAttendees(t *testing.T) {
	ctx := context.Background()

	t.Run("creates invited attendees and notifies", func(t *testing.T) {
		a, notifier := newApp()
		created, err := a.CreateEvent(ctx, "user-1", officialEvent())
		require.NoError(t, err)

		event, err := a.InviteAttendees(ctx, created.ID, "user-1", []Invite{
			{UserID: "42", Email: "a@x.com"},
			{UserID: "43", Email: "b@x.com"},
		})
		require.NoError(t, err)
		require.Len(t, event.Attendees, 2)
		for _, attendee := range event.Attendees {
			require.Equal(t, storage.StatusInvited, attendee.Status)
		}
		require.Len(t, notifier.notified, 2)
	})

	t.Run("delivery failure does not fail the invite", func(t *testing.T) {
		a, notifier := newApp()
		notifier.err = errors.New("smtp is down")
		created, err := a.CreateEvent(ctx, "user-1", officialEvent())
		require.NoError(t, err)

		event, err := a.InviteAttendees(ctx, created.ID, "user-1", []Invite{{UserID: "42", Email: "a@x.com"}})
		require.NoError(t, err)
		require.Len(t, event.Attendees, 1)
		require.Equal(t, storage.StatusInvited, event.Attendees[0].Status)
	})

	t.Run("only the owner can invite", func(t *testing.T) {
		a, _ := newApp()
		created, err := a.CreateEvent(ctx, "user-1", officialEvent())
		require.NoError(t, err)

		_, err = a.InviteAttendees(ctx, created.ID, "user-2", []Invite{{UserID: "42", Email: "a@x.com"}})
		require.ErrorIs(t, err, storage.ErrNotAuthorized)
	})

	t.Run("owner cannot self-invite", func(t *testing.T) {
		a, _ := newApp()
		created, err := a.CreateEvent(ctx, "user-1", officialEvent())
		require.NoError(t, err)

		_, err = a.InviteAttendees(ctx, created.ID, "user-1", []Invite{{UserID: "user-1", Email: "me@x.com"}})
		require.ErrorIs(t, err, storage.ErrValidation)

		event, err := a.InviteAttendees(ctx, created.ID, "user-1", nil)
		require.NoError(t, err)
		require.Empty(t, event.Attendees)
	})

	t.Run("reinvite resets status", func(t *testing.T) {
		a, _ := newApp()
		created, err := a.CreateEvent(ctx, "user-1", officialEvent())
		require.NoError(t, err)

		event, err := a.InviteAttendees(ctx, created.ID, "user-1", []Invite{{UserID: "42", Email: "a@x.com"}})
		require.NoError(t, err)
		attendeeID := event.Attendees[0].ID
		require.NoError(t, a.RespondToInvite(ctx, created.ID, attendeeID, storage.StatusDeclined))

		event, err = a.InviteAttendees(ctx, created.ID, "user-1", []Invite{{UserID: "42", Email: "a@x.com"}})
		require.NoError(t, err)
		require.Len(t, event.Attendees, 1)
		require.Equal(t, attendeeID, event.Attendees[0].ID)
		require.Equal(t, storage.StatusInvited, event.Attendees[0].Status)
	})
}

func TestRespondToInvite(t *testing.T) {
	ctx := context.Background()

	invite := func(t *testing.T, a *App) (eventID, attendeeID string) {
		t.Helper()
		created, err := a.CreateEvent(ctx, "user-1", officialEvent())
		require.NoError(t, err)
		event, err := a.InviteAttendees(ctx, created.ID, "user-1", []Invite{{UserID: "42", Email: "a@x.com"}})
		require.NoError(t, err)
		return created.ID, event.Attendees[0].ID
	}

	t.Run("accept is idempotent", func(t *testing.T) {
		a, _ := newApp()
		eventID, attendeeID := invite(t, a)

		require.NoError(t, a.RespondToInvite(ctx, eventID, attendeeID, storage.StatusAccepted))
		require.NoError(t, a.RespondToInvite(ctx, eventID, attendeeID, storage.StatusAccepted))

		events, err := a.ListEvents(ctx, "42", storage.EventFilter{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Len(t, events[0].Attendees, 1)
		require.Equal(t, storage.StatusAccepted, events[0].Attendees[0].Status)
	})

	t.Run("last write wins", func(t *testing.T) {
		a, _ := newApp()
		eventID, attendeeID := invite(t, a)

		require.NoError(t, a.RespondToInvite(ctx, eventID, attendeeID, storage.StatusAccepted))
		require.NoError(t, a.RespondToInvite(ctx, eventID, attendeeID, storage.StatusDeclined))

		events, err := a.ListEvents(ctx, "42", storage.EventFilter{})
		require.NoError(t, err)
		require.Equal(t, storage.StatusDeclined, events[0].Attendees[0].Status)
	})

	t.Run("unknown attendee or status", func(t *testing.T) {
		a, _ := newApp()
		eventID, attendeeID := invite(t, a)

		require.ErrorIs(t, a.RespondToInvite(ctx, eventID, "missing", storage.StatusAccepted), storage.ErrNotFoundAttendee)
		require.ErrorIs(t, a.RespondToInvite(ctx, eventID, attendeeID, "maybe"), storage.ErrValidation)
	})
}

func TestInviteScenario(t *testing.T) {
	ctx := context.Background()
	a, _ := newApp()

	created, err := a.CreateEvent(ctx, "owner", storage.Event{
		Type:  storage.TypeOfficial,
		Title: "Ward Review",
		Date:  "2025-03-10",
	})
	require.NoError(t, err)

	event, err := a.InviteAttendees(ctx, created.ID, "owner", []Invite{{UserID: "42", Email: "a@x.com"}})
	require.NoError(t, err)
	require.Len(t, event.Attendees, 1)

	require.NoError(t, a.RespondToInvite(ctx, created.ID, event.Attendees[0].ID, storage.StatusDeclined))

	events, err := a.ListEvents(ctx, "owner", storage.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, events[0].Attendees, 1)
	require.Equal(t, storage.StatusDeclined, events[0].Attendees[0].Status)
}
