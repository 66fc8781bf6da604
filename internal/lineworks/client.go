package lineworks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"shiftcal/internal/config"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/model"
)

// lwTimeFormat is the zone-less local date-time format the calendar API
// uses; the zone travels separately as an IANA name.
const lwTimeFormat = "2006-01-02T15:04:05"

// ErrNotFound is returned by DeleteEvent when the remote event no
// longer exists. Callers may treat it as already-deleted.
var ErrNotFound = errors.New("lineworks: event not found")

// APIError reports a non-success calendar API response, carrying the
// remote status code and body for the ledger.
type APIError struct {
	Op         string // "list", "create", "delete"
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lineworks %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsUnauthorized reports whether err is an expired/invalid-credential
// API response; the engine refreshes the token once and retries.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client is the calendar events REST client for one user's calendar.
type Client struct {
	cfg    config.LineWorksConfig
	loc    *time.Location
	client *http.Client
}

// NewClient builds a calendar Client. loc is the calendar timezone used
// for formatting and parsing event date-times.
func NewClient(cfg config.LineWorksConfig, loc *time.Location) *Client {
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		cfg: cfg,
		loc: loc,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// wire shapes

type lwDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type lwEvent struct {
	ID          string      `json:"id,omitempty"`
	EventID     string      `json:"eventId,omitempty"`
	Summary     string      `json:"summary"`
	Description string      `json:"description,omitempty"`
	Start       *lwDateTime `json:"start,omitempty"`
	End         *lwDateTime `json:"end,omitempty"`
	IsAllDay    bool        `json:"isAllDay,omitempty"`
	Attendees   []any       `json:"attendees"`
}

func (e *lwEvent) id() string {
	if e.ID != "" {
		return e.ID
	}
	return e.EventID
}

// ListEvents fetches all events of the user's calendar intersecting
// [from, until).
func (c *Client) ListEvents(ctx context.Context, token string, from, until time.Time) ([]model.RemoteEvent, error) {
	q := url.Values{
		"fromDateTime":  {from.In(c.loc).Format(lwTimeFormat)},
		"untilDateTime": {until.In(c.loc).Format(lwTimeFormat)},
	}
	endpoint := c.eventsURL() + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("lineworks list: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lineworks list: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lineworks list: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Op: "list", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		Events []lwEvent `json:"events"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("lineworks list: %w", err)
	}

	events := make([]model.RemoteEvent, 0, len(payload.Events))
	for _, ev := range payload.Events {
		events = append(events, c.toRemote(ev))
	}

	appLog.Debug("listed calendar events", "user", c.cfg.UserID, "count", len(events))
	return events, nil
}

// CreateEvent creates one event on the user's calendar.
func (c *Client) CreateEvent(ctx context.Context, token string, ev model.DesiredEvent) (model.RemoteEvent, error) {
	comp := lwEvent{
		Summary:     ev.Summary,
		Description: ev.Description,
		Attendees:   []any{},
		Start: &lwDateTime{
			DateTime: ev.Start.In(c.loc).Format(lwTimeFormat),
			TimeZone: c.loc.String(),
		},
		End: &lwDateTime{
			DateTime: ev.End.In(c.loc).Format(lwTimeFormat),
			TimeZone: c.loc.String(),
		},
		IsAllDay: ev.AllDay,
	}

	payload := map[string]any{
		"eventComponents": []lwEvent{comp},
		"ical":            "REQUEST",
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return model.RemoteEvent{}, fmt.Errorf("lineworks create: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.eventsURL(), bytes.NewReader(jsonBody))
	if err != nil {
		return model.RemoteEvent{}, fmt.Errorf("lineworks create: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return model.RemoteEvent{}, fmt.Errorf("lineworks create: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.RemoteEvent{}, fmt.Errorf("lineworks create: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return model.RemoteEvent{}, &APIError{Op: "create", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var created lwEvent
	if err := json.Unmarshal(body, &created); err != nil {
		// Some deployments return an empty or envelope body on create;
		// the event exists remotely either way.
		appLog.Debug("create response not an event body", "user", c.cfg.UserID)
	}

	remote := c.toRemote(created)
	if remote.Summary == "" {
		remote.Summary = ev.Summary
		remote.AllDay = ev.AllDay
		remote.Start = ev.Start
		remote.End = ev.End
	}
	return remote, nil
}

// DeleteEvent deletes one event by ID. A 404 maps to ErrNotFound.
func (c *Client) DeleteEvent(ctx context.Context, token, eventID string) error {
	endpoint := c.eventsURL() + "/" + url.PathEscape(eventID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("lineworks delete: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("lineworks delete: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Op: "delete", StatusCode: resp.StatusCode, Body: string(body)}
	}
}

func (c *Client) eventsURL() string {
	return c.cfg.APIBaseURL + "/users/" + url.PathEscape(c.cfg.UserID) + "/calendar/events"
}

func (c *Client) toRemote(ev lwEvent) model.RemoteEvent {
	out := model.RemoteEvent{
		ID:      ev.id(),
		Summary: ev.Summary,
		AllDay:  ev.IsAllDay,
	}
	if ev.Start != nil {
		out.Start = c.parseTime(*ev.Start)
	}
	if ev.End != nil {
		out.End = c.parseTime(*ev.End)
	}
	return out
}

// parseTime interprets a wire date-time in its named zone, falling back
// to the client's calendar zone when the name does not resolve.
func (c *Client) parseTime(dt lwDateTime) time.Time {
	loc := c.loc
	if dt.TimeZone != "" {
		if l, err := time.LoadLocation(dt.TimeZone); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation(lwTimeFormat, dt.DateTime, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}
