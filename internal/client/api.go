package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/medfolio/calendar/internal/app"
	"github.com/medfolio/calendar/internal/storage"
)

// API is the calendar REST surface as seen by the consuming application.
type API interface {
	ListEvents(ctx context.Context, filter storage.EventFilter) ([]storage.Event, error)
	CreateEvent(ctx context.Context, e storage.Event) (storage.Event, error)
	UpdateEvent(ctx context.Context, id string, patch storage.EventPatch) (storage.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	InviteAttendees(ctx context.Context, eventID string, invites []app.Invite) (storage.Event, error)
	RespondToInvite(ctx context.Context, eventID string, attendeeID string, status string) error
}

// HTTPAPI talks to the calendar server over HTTP. The authenticated user
// identity travels in a header; session handling itself lives upstream.
type HTTPAPI struct {
	baseURL string
	userID  string
	client  *http.Client
}

func NewHTTPAPI(baseURL string, userID string) *HTTPAPI {
	return &HTTPAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		client:  &http.Client{},
	}
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
	Error   string          `json:"error"`
}

func (c *HTTPAPI) ListEvents(ctx context.Context, filter storage.EventFilter) ([]storage.Event, error) {
	query := url.Values{}
	if filter.StartDate != "" {
		query.Set("startDate", filter.StartDate)
	}
	if filter.EndDate != "" {
		query.Set("endDate", filter.EndDate)
	}
	if filter.Type != "" {
		query.Set("type", filter.Type)
	}
	path := "/events"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var events []storage.Event
	if err := c.do(ctx, http.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *HTTPAPI) CreateEvent(ctx context.Context, e storage.Event) (storage.Event, error) {
	var created storage.Event
	err := c.do(ctx, http.MethodPost, "/events", e, &created)
	return created, err
}

func (c *HTTPAPI) UpdateEvent(ctx context.Context, id string, patch storage.EventPatch) (storage.Event, error) {
	var updated storage.Event
	err := c.do(ctx, http.MethodPut, "/events/"+id, patch, &updated)
	return updated, err
}

func (c *HTTPAPI) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/events/"+id, nil, nil)
}

func (c *HTTPAPI) InviteAttendees(ctx context.Context, eventID string, invites []app.Invite) (storage.Event, error) {
	body := map[string]interface{}{"attendees": invites}
	var event storage.Event
	err := c.do(ctx, http.MethodPost, "/events/"+eventID+"/invite", body, &event)
	return event, err
}

func (c *HTTPAPI) RespondToInvite(ctx context.Context, eventID string, attendeeID string, status string) error {
	body := map[string]string{"status": status}
	return c.do(ctx, http.MethodPost, "/events/"+eventID+"/attendees/"+attendeeID+"/respond", body, nil)
}

func (c *HTTPAPI) do(ctx context.Context, method string, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", c.userID)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s %s failed: %s", method, path, env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return nil
}
