package plannersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Content Planner HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	// ActorID is sent as X-Actor-Id when no bearer token is set. Servers
	// accept it only with the legacy header option enabled.
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Item mirrors the API item model.
type Item struct {
	ID              string    `json:"id"`
	CreatedByID     string    `json:"created_by_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Tags            []string  `json:"tags"`
	Format          string    `json:"format"`
	Objective       string    `json:"objective"`
	Distribution    string    `json:"distribution"`
	Status          string    `json:"status"`
	ScriptID        *string   `json:"script_id,omitempty"`
	EquipmentID     *string   `json:"equipment_id,omitempty"`
	EquipmentName   *string   `json:"equipment_name,omitempty"`
	ResponsibleID   *string   `json:"responsible_id,omitempty"`
	ResponsibleName *string   `json:"responsible_name,omitempty"`
	ScheduledDate   *string   `json:"scheduled_date,omitempty"`
	CalendarEventID *string   `json:"calendar_event_id,omitempty"`
	AIGenerated     bool      `json:"ai_generated"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ItemInput is a partial item; nil fields are not sent. Use an empty string
// to clear a nullable association.
type ItemInput struct {
	Title           *string   `json:"title,omitempty"`
	Description     *string   `json:"description,omitempty"`
	Tags            *[]string `json:"tags,omitempty"`
	Format          *string   `json:"format,omitempty"`
	Objective       *string   `json:"objective,omitempty"`
	Distribution    *string   `json:"distribution,omitempty"`
	Status          *string   `json:"status,omitempty"`
	EquipmentID     *string   `json:"equipment_id,omitempty"`
	ResponsibleID   *string   `json:"responsible_id,omitempty"`
	ScheduledDate   *string   `json:"scheduled_date,omitempty"`
	CalendarEventID *string   `json:"calendar_event_id,omitempty"`
}

// Filter narrows ListItems and Board. Zero values are not sent.
type Filter struct {
	Statuses      []string
	Objective     string
	Distribution  string
	Format        string
	EquipmentID   string
	ResponsibleID string
	From          string
	To            string
}

func (f Filter) query() url.Values {
	q := url.Values{}
	if len(f.Statuses) > 0 {
		q.Set("status", strings.Join(f.Statuses, ","))
	}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("objective", f.Objective)
	set("distribution", f.Distribution)
	set("format", f.Format)
	set("equipment_id", f.EquipmentID)
	set("responsible_id", f.ResponsibleID)
	set("from", f.From)
	set("to", f.To)
	return q
}

// Column is one board stage.
type Column struct {
	Status     string `json:"status"`
	Title      string `json:"title"`
	Icon       string `json:"icon"`
	Count      int    `json:"count"`
	Unfiltered int    `json:"unfiltered"`
	Items      []Item `json:"items"`
}

type Board struct {
	Columns          []Column `json:"columns"`
	HasActiveFilters bool     `json:"has_active_filters"`
	Total            int      `json:"total"`
}

type Notification struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Suggestions is the result of GenerateSuggestions.
type Suggestions struct {
	Items         []Item         `json:"items"`
	Notifications []Notification `json:"notifications"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateItem creates an item.
func (c *Client) CreateItem(ctx context.Context, in ItemInput) (Item, error) {
	var resp Item
	err := c.do(ctx, http.MethodPost, "items", in, &resp)
	return resp, err
}

// ListItems returns matching items in insertion order.
func (c *Client) ListItems(ctx context.Context, f Filter) ([]Item, error) {
	var resp struct {
		Items []Item `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("items", f.query()), nil, &resp)
	return resp.Items, err
}

func (c *Client) GetItem(ctx context.Context, id string) (Item, error) {
	var resp Item
	err := c.do(ctx, http.MethodGet, "items/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// UpdateItem applies a partial update.
func (c *Client) UpdateItem(ctx context.Context, id string, in ItemInput) (Item, error) {
	var resp Item
	err := c.do(ctx, http.MethodPatch, "items/"+url.PathEscape(id), in, &resp)
	return resp, err
}

// MoveItem changes the item's status.
func (c *Client) MoveItem(ctx context.Context, id, status string) (Item, error) {
	var resp Item
	err := c.do(ctx, http.MethodPost, "items/"+url.PathEscape(id)+"/move", map[string]string{"status": status}, &resp)
	return resp, err
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "items/"+url.PathEscape(id), nil, nil)
}

// Board returns the five status columns.
func (c *Client) Board(ctx context.Context, f Filter) (Board, error) {
	var resp Board
	err := c.do(ctx, http.MethodGet, withQuery("board", f.query()), nil, &resp)
	return resp, err
}

// GenerateSuggestions asks the server for count idea items. objective and
// format may be empty.
func (c *Client) GenerateSuggestions(ctx context.Context, count int, objective, format string) (Suggestions, error) {
	body := map[string]any{"count": count}
	if objective != "" {
		body["objective"] = objective
	}
	if format != "" {
		body["format"] = format
	}
	var resp Suggestions
	err := c.do(ctx, http.MethodPost, "suggestions", body, &resp)
	return resp, err
}

// EventsPage returns a paginated event listing, newest first.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, withQuery("events", q), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
