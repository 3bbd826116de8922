// Package client - HTTP и websocket клиент диспетчерского API для dispatchctl
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shenikar/fireguard_dispatch/internal/events"
	"github.com/shenikar/fireguard_dispatch/internal/models"
)

const snapshotPageSize = 100

// Options - адрес сервера и учётные данные участника
type Options struct {
	BaseURL   string
	APIKey    string
	ActorID   string
	ActorRole string
	Timeout   time.Duration
}

type Client struct {
	base       *url.URL
	opts       Options
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// APIError - ответ сервера с кодом не 2xx
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		base:       base,
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		dialer:     &websocket.Dialer{HandshakeTimeout: opts.Timeout},
	}, nil
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("X-API-Key", c.opts.APIKey)
	h.Set("X-Actor-ID", c.opts.ActorID)
	h.Set("X-Actor-Role", c.opts.ActorRole)
	return h
}

func (c *Client) endpoint(path string, query url.Values) *url.URL {
	u := *c.base
	u.Path = c.base.Path + "/api/v1" + path
	u.RawQuery = query.Encode()
	return &u
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query).String(), nil)
	if err != nil {
		return err
	}
	req.Header = c.header()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return events.ErrCursorExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &body) != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	return &APIError{Status: resp.StatusCode, Message: body.Error}
}

// wireEvent - событие в том виде, в каком его отдаёт сервер
type wireEvent struct {
	Seq        uint64          `json:"seq"`
	Topic      models.Topic    `json:"topic"`
	EntityID   uuid.UUID       `json:"entity_id"`
	Version    int64           `json:"version"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (w wireEvent) model() models.Event {
	return models.Event(w)
}

func topicsQuery(topics []models.Topic, cursor uint64) url.Values {
	q := url.Values{}
	if len(topics) > 0 {
		names := make([]string, len(topics))
		for i, t := range topics {
			names[i] = string(t)
		}
		q.Set("topics", strings.Join(names, ","))
	}
	q.Set("cursor", strconv.FormatUint(cursor, 10))
	return q
}

// ReadEvents - одна страница журнала после cursor и курсор для следующего вызова
func (c *Client) ReadEvents(ctx context.Context, topics []models.Topic, cursor uint64, limit int) ([]models.Event, uint64, error) {
	q := topicsQuery(topics, cursor)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var page struct {
		Events []wireEvent `json:"events"`
		Cursor uint64      `json:"cursor"`
	}
	if err := c.getJSON(ctx, "/events", q, &page); err != nil {
		return nil, cursor, err
	}
	out := make([]models.Event, len(page.Events))
	for i, ev := range page.Events {
		out[i] = ev.model()
	}
	return out, page.Cursor, nil
}

// Head - текущая голова журнала
func (c *Client) Head(ctx context.Context) (uint64, error) {
	var page struct {
		Cursor uint64 `json:"cursor"`
	}
	if err := c.getJSON(ctx, "/events/head", nil, &page); err != nil {
		return 0, err
	}
	return page.Cursor, nil
}

// Stream - открытая websocket-подписка
type Stream struct {
	conn *websocket.Conn
}

// Subscribe открывает websocket-подписку с позиции cursor
func (c *Client) Subscribe(ctx context.Context, topics []models.Topic, cursor uint64) (*Stream, error) {
	u := c.endpoint("/events/ws", topicsQuery(topics, cursor))
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), c.header())
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusGone {
				return nil, events.ErrCursorExpired
			}
			if errors.Is(err, websocket.ErrBadHandshake) {
				return nil, decodeAPIError(resp)
			}
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return &Stream{conn: conn}, nil
}

// Next блокируется до следующего события. Закрытие сервером из-за отставания
// возвращается как events.ErrSubscriberDropped.
func (s *Stream) Next() (models.Event, error) {
	var ev wireEvent
	if err := s.conn.ReadJSON(&ev); err != nil {
		if websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
			return models.Event{}, fmt.Errorf("%w: %v", events.ErrSubscriberDropped, err)
		}
		return models.Event{}, err
	}
	return ev.model(), nil
}

func (s *Stream) Close() error {
	return s.conn.Close()
}

// snapshotItem - общие поля снимка сущности любой темы
type snapshotItem struct {
	ID      uuid.UUID `json:"id"`
	UnitID  uuid.UUID `json:"unit_id"`
	Version int64     `json:"version"`
}

func (s snapshotItem) entityID() uuid.UUID {
	if s.ID != uuid.Nil {
		return s.ID
	}
	return s.UnitID
}

// Entity - снимок одной сущности для затравки реплики
type Entity struct {
	ID      uuid.UUID
	Version int64
	Payload json.RawMessage
}

func toEntities(raw []json.RawMessage) ([]Entity, error) {
	out := make([]Entity, 0, len(raw))
	for _, item := range raw {
		var head snapshotItem
		if err := json.Unmarshal(item, &head); err != nil {
			return nil, fmt.Errorf("could not decode snapshot item: %w", err)
		}
		out = append(out, Entity{ID: head.entityID(), Version: head.Version, Payload: item})
	}
	return out, nil
}

// Snapshot загружает все сущности темы
func (c *Client) Snapshot(ctx context.Context, topic models.Topic) ([]Entity, error) {
	switch topic {
	case models.TopicIncident:
		var all []Entity
		for page := 1; ; page++ {
			var raw []json.RawMessage
			q := url.Values{"page": {strconv.Itoa(page)}, "pageSize": {strconv.Itoa(snapshotPageSize)}}
			if err := c.getJSON(ctx, "/incidents", q, &raw); err != nil {
				return nil, err
			}
			items, err := toEntities(raw)
			if err != nil {
				return nil, err
			}
			all = append(all, items...)
			if len(raw) < snapshotPageSize {
				return all, nil
			}
		}
	case models.TopicResource, models.TopicLocation:
		var raw []json.RawMessage
		if err := c.getJSON(ctx, "/"+string(topic)+"s", nil, &raw); err != nil {
			return nil, err
		}
		return toEntities(raw)
	}
	return nil, fmt.Errorf("unknown topic %q", topic)
}

// Fetch загружает текущее состояние одной сущности
func (c *Client) Fetch(ctx context.Context, topic models.Topic, id uuid.UUID) (Entity, error) {
	if !topic.Valid() {
		return Entity{}, fmt.Errorf("unknown topic %q", topic)
	}
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/"+string(topic)+"s/"+id.String(), nil, &raw); err != nil {
		return Entity{}, err
	}
	items, err := toEntities([]json.RawMessage{raw})
	if err != nil {
		return Entity{}, err
	}
	return items[0], nil
}

// Stats - сводка панели диспетчера в исходном JSON
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/incidents/stats", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
