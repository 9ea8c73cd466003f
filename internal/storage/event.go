package storage

const (
	TypeOfficial = "official"
	TypePersonal = "personal"
)

const (
	StatusInvited  = "invited"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

// Event dates and times are opaque strings: the calendar never interprets
// them beyond sorting date-keys lexicographically.
type Event struct {
	ID          string     `db:"id" json:"id"`
	OwnerID     string     `db:"owner_id" json:"ownerUserId"`
	Type        string     `db:"type" json:"type"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description,omitempty"`
	Date        string     `db:"event_date" json:"date"`
	StartTime   string     `db:"start_time" json:"startTime,omitempty"`
	EndTime     string     `db:"end_time" json:"endTime,omitempty"`
	Location    string     `db:"location" json:"location,omitempty"`
	Attendees   []Attendee `db:"-" json:"attendees"`
}

// Attendee is an invitation record attached to an event.
// (EventID, UserID) is unique per event.
type Attendee struct {
	ID      string `db:"id" json:"id"`
	EventID string `db:"event_id" json:"eventId"`
	UserID  string `db:"user_id" json:"userId"`
	Email   string `db:"email" json:"email"`
	Status  string `db:"status" json:"status"`
}

// EventFilter narrows ListEvents results. Empty fields match everything.
// Date bounds are inclusive and compared as date-key strings.
type EventFilter struct {
	StartDate string
	EndDate   string
	Type      string
}

// EventPatch carries partial updates; nil fields are left unchanged.
type EventPatch struct {
	Type        *string `json:"type"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	StartTime   *string `json:"startTime"`
	EndTime     *string `json:"endTime"`
	Location    *string `json:"location"`
}

func (f EventFilter) Matches(e Event) bool {
	if f.StartDate != "" && e.Date < f.StartDate {
		return false
	}
	if f.EndDate != "" && e.Date > f.EndDate {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	return true
}

func (p EventPatch) Apply(e Event) Event {
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.StartTime != nil {
		e.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = *p.EndTime
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	return e
}
