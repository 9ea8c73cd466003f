//go:build sql
// +build sql

package sqlstorage_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/medfolio/calendar/internal/storage"
	sqlstorage "github.com/medfolio/calendar/internal/storage/sql"
	"github.com/stretchr/testify/require"
)

var (
	host     = "127.0.0.1"
	port     = 5432
	database = "testing"
	username = "postgres"
	password = "pas"
)

func TestMain(m *testing.M) {
	pgHost := os.Getenv("POSTGRES_HOST")
	if pgHost != "" {
		host = pgHost
	}
	pgPort := os.Getenv("POSTGRES_PORT")
	if pgPort != "" {
		var err error
		port, err = strconv.Atoi(pgPort)
		if err != nil {
			fmt.Printf("failed to parse port %q: %v\n", pgPort, err)
			os.Exit(1)
		}
	}
	pgDatabase := os.Getenv("POSTGRES_DB")
	if pgDatabase != "" {
		database = pgDatabase
	}
	pgUser := os.Getenv("POSTGRES_USER")
	if pgUser != "" {
		username = pgUser
	}
	pgPassword := os.Getenv("POSTGRES_PASSWORD")
	if pgPassword != "" {
		password = pgPassword
	}

	cleanupDB()
	os.Exit(m.Run())
}

func cleanupDB() {
	db, err := sqlx.Connect(
		"postgres",
		fmt.Sprintf("sslmode=disable host=%s port=%d dbname=%s user=%s password=%s",
			host, port, database, username, password),
	)
	if err != nil {
		fmt.Printf("failed to connect for cleanup: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	db.MustExec("DELETE FROM attendees")
	db.MustExec("DELETE FROM events")
}

func newStorage(t *testing.T) *sqlstorage.Storage {
	t.Helper()
	s := sqlstorage.New(sqlstorage.Config{
		Host:     host,
		Port:     port,
		Database: database,
		Username: username,
		Password: password,
	})
	require.NoError(t, s.Connect(context.Background()))
	t.Cleanup(func() {
		cleanupDB()
		s.Close(context.Background())
	})
	return s
}

func TestSQLEvents(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	e := storage.Event{
		OwnerID:   "user-1",
		Type:      storage.TypeOfficial,
		Title:     "Ward Review",
		Date:      "2025-03-10",
		StartTime: "09:00",
		EndTime:   "10:30",
		Location:  "Ward 5",
	}
	require.NoError(t, s.AddEvent(ctx, &e))
	require.NotEmpty(t, e.ID)

	got, err := s.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, e.Title, got.Title)
	require.Equal(t, e.Date, got.Date)
	require.Empty(t, got.Attendees)

	title := "Renamed"
	updated, err := s.UpdateEvent(ctx, e.ID, storage.EventPatch{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Title)
	require.Equal(t, "Ward 5", updated.Location)

	_, err = s.UpdateEvent(ctx, "11111111-1111-1111-1111-111111111111", storage.EventPatch{Title: &title})
	require.ErrorIs(t, err, storage.ErrNotFoundEvent)

	require.NoError(t, s.RemoveEvent(ctx, e.ID))
	require.ErrorIs(t, s.RemoveEvent(ctx, e.ID), storage.ErrNotFoundEvent)
}

func TestSQLAttendees(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	e := storage.Event{OwnerID: "user-1", Type: storage.TypeOfficial, Title: "Ward Review", Date: "2025-03-10"}
	require.NoError(t, s.AddEvent(ctx, &e))

	a := storage.Attendee{EventID: e.ID, UserID: "42", Email: "a@x.com"}
	require.NoError(t, s.UpsertAttendee(ctx, &a))
	require.Equal(t, storage.StatusInvited, a.Status)

	require.NoError(t, s.SetAttendeeStatus(ctx, e.ID, a.ID, storage.StatusDeclined))

	// Re-invite keeps the row, resets the status and refreshes the email.
	again := storage.Attendee{EventID: e.ID, UserID: "42", Email: "new@x.com"}
	require.NoError(t, s.UpsertAttendee(ctx, &again))
	require.Equal(t, a.ID, again.ID)

	got, err := s.GetAttendee(ctx, e.ID, a.ID)
	require.NoError(t, err)
	require.Equal(t, storage.StatusInvited, got.Status)
	require.Equal(t, "new@x.com", got.Email)

	events, err := s.ListEvents(ctx, "42", storage.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, events[0].Attendees, 1)

	// Deleting the event cascades the attendees.
	require.NoError(t, s.RemoveEvent(ctx, e.ID))
	_, err = s.GetAttendee(ctx, e.ID, a.ID)
	require.ErrorIs(t, err, storage.ErrNotFoundAttendee)
}

func TestSQLListFilters(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	dates := []string{"2025-03-09", "2025-03-10", "2025-03-11"}
	for i, date := range dates {
		eventType := storage.TypeOfficial
		if i == 2 {
			eventType = storage.TypePersonal
		}
		e := storage.Event{OwnerID: "user-1", Type: eventType, Title: "Event", Date: date}
		require.NoError(t, s.AddEvent(ctx, &e))
	}

	events, err := s.ListEvents(ctx, "user-1", storage.EventFilter{StartDate: "2025-03-10", EndDate: "2025-03-11"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "2025-03-10", events[0].Date)

	events, err = s.ListEvents(ctx, "user-1", storage.EventFilter{Type: storage.TypePersonal})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "2025-03-11", events[0].Date)
}
