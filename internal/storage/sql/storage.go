package sqlstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/medfolio/calendar/internal/storage"
	log "github.com/sirupsen/logrus"
)

var ErrConnectionFailed = errors.New("failed to connect")

const eventColumns = "id, owner_id, type, title, description, event_date, start_time, end_time, location"

type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

type Storage struct {
	host     string
	port     int
	database string
	username string
	password string
	db       *sqlx.DB
}

func New(config Config) *Storage {
	return &Storage{
		host:     config.Host,
		port:     config.Port,
		database: config.Database,
		username: config.Username,
		password: config.Password,
	}
}

func (s *Storage) Connect(ctx context.Context) error {
	db, err := sqlx.ConnectContext(
		ctx,
		"postgres",
		fmt.Sprintf(
			"sslmode=disable host=%s port=%d dbname=%s user=%s password=%s",
			s.host, s.port, s.database, s.username, s.password),
	)
	if err != nil {
		log.Errorf("failed to connect: %v", err)
		return ErrConnectionFailed
	}
	s.db = db
	return nil
}

func (s *Storage) Close(_ context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func (s *Storage) AddEvent(ctx context.Context, e *storage.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(
		ctx,
		"INSERT INTO events(id, owner_id, type, title, description, event_date, start_time, end_time, location) "+
			"VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		e.ID, e.OwnerID, e.Type, e.Title, e.Description, e.Date, e.StartTime, e.EndTime, e.Location)
	if err != nil {
		return err
	}
	e.Attendees = []storage.Attendee{}
	return nil
}

func (s *Storage) GetEvent(ctx context.Context, id string) (storage.Event, error) {
	var e storage.Event
	err := s.db.GetContext(ctx, &e, "SELECT "+eventColumns+" FROM events WHERE id=$1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Event{}, fmt.Errorf("event %q: %w", id, storage.ErrNotFoundEvent)
	}
	if err != nil {
		return storage.Event{}, err
	}
	if err := s.loadAttendees(ctx, []*storage.Event{&e}); err != nil {
		return storage.Event{}, err
	}
	return e, nil
}

func (s *Storage) UpdateEvent(ctx context.Context, id string, patch storage.EventPatch) (storage.Event, error) {
	var e storage.Event
	err := s.db.GetContext(
		ctx,
		&e,
		"UPDATE events SET type=COALESCE($2, type), title=COALESCE($3, title), "+
			"description=COALESCE($4, description), event_date=COALESCE($5, event_date), "+
			"start_time=COALESCE($6, start_time), end_time=COALESCE($7, end_time), "+
			"location=COALESCE($8, location) WHERE id=$1 RETURNING "+eventColumns,
		id, patch.Type, patch.Title, patch.Description, patch.Date, patch.StartTime, patch.EndTime, patch.Location)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Event{}, fmt.Errorf("failed to update event %q: %w", id, storage.ErrNotFoundEvent)
	}
	if err != nil {
		return storage.Event{}, err
	}
	if err := s.loadAttendees(ctx, []*storage.Event{&e}); err != nil {
		return storage.Event{}, err
	}
	return e, nil
}

func (s *Storage) RemoveEvent(ctx context.Context, id string) error {
	// Attendees go with the event via ON DELETE CASCADE.
	var found bool
	err := s.db.GetContext(ctx, &found, "DELETE FROM events WHERE id=$1 RETURNING TRUE", id)
	if errors.Is(err, sql.ErrNoRows) || !found {
		return fmt.Errorf("failed to remove event %q: %w", id, storage.ErrNotFoundEvent)
	}
	return err
}

func (s *Storage) ListEvents(ctx context.Context, userID string, filter storage.EventFilter) ([]storage.Event, error) {
	query := "SELECT DISTINCT e.id, e.owner_id, e.type, e.title, e.description, e.event_date, " +
		"e.start_time, e.end_time, e.location " +
		"FROM events e LEFT JOIN attendees a ON a.event_id = e.id " +
		"WHERE (e.owner_id=$1 OR a.user_id=$1)"
	args := []interface{}{userID}
	if filter.StartDate != "" {
		args = append(args, filter.StartDate)
		query += fmt.Sprintf(" AND e.event_date>=$%d", len(args))
	}
	if filter.EndDate != "" {
		args = append(args, filter.EndDate)
		query += fmt.Sprintf(" AND e.event_date<=$%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND e.type=$%d", len(args))
	}
	query += " ORDER BY e.event_date, e.id"

	var events []storage.Event
	if err := s.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, err
	}
	refs := make([]*storage.Event, len(events))
	for i := range events {
		refs[i] = &events[i]
	}
	if err := s.loadAttendees(ctx, refs); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Storage) UpsertAttendee(ctx context.Context, a *storage.Attendee) error {
	var exists bool
	err := s.db.GetContext(ctx, &exists, "SELECT TRUE FROM events WHERE id=$1", a.EventID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("event %q: %w", a.EventID, storage.ErrNotFoundEvent)
	}
	if err != nil {
		return err
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Status = storage.StatusInvited
	// A re-invite keeps the existing row ID and resets it to invited.
	err = s.db.GetContext(
		ctx,
		&a.ID,
		"INSERT INTO attendees(id, event_id, user_id, email, status) VALUES($1, $2, $3, $4, $5) "+
			"ON CONFLICT (event_id, user_id) DO UPDATE SET email=EXCLUDED.email, status=EXCLUDED.status "+
			"RETURNING id",
		a.ID, a.EventID, a.UserID, a.Email, a.Status)
	return err
}

func (s *Storage) GetAttendee(ctx context.Context, eventID string, attendeeID string) (storage.Attendee, error) {
	var a storage.Attendee
	err := s.db.GetContext(
		ctx,
		&a,
		"SELECT id, event_id, user_id, email, status FROM attendees WHERE event_id=$1 AND id=$2",
		eventID, attendeeID)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Attendee{}, fmt.Errorf("attendee %q of event %q: %w", attendeeID, eventID, storage.ErrNotFoundAttendee)
	}
	return a, err
}

func (s *Storage) SetAttendeeStatus(ctx context.Context, eventID string, attendeeID string, status string) error {
	var found bool
	err := s.db.GetContext(
		ctx,
		&found,
		"UPDATE attendees SET status=$3 WHERE event_id=$1 AND id=$2 RETURNING TRUE",
		eventID, attendeeID, status)
	if errors.Is(err, sql.ErrNoRows) || !found {
		return fmt.Errorf("attendee %q of event %q: %w", attendeeID, eventID, storage.ErrNotFoundAttendee)
	}
	return err
}

func (s *Storage) loadAttendees(ctx context.Context, events []*storage.Event) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]string, 0, len(events))
	byEvent := make(map[string]*storage.Event, len(events))
	for _, e := range events {
		e.Attendees = []storage.Attendee{}
		ids = append(ids, e.ID)
		byEvent[e.ID] = e
	}

	var attendees []storage.Attendee
	err := s.db.SelectContext(
		ctx,
		&attendees,
		"SELECT id, event_id, user_id, email, status FROM attendees WHERE event_id = ANY($1) ORDER BY id",
		pq.Array(ids))
	if err != nil {
		return err
	}
	for _, a := range attendees {
		e := byEvent[a.EventID]
		e.Attendees = append(e.Attendees, a)
	}
	return nil
}
