package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/shenikar/fireguard_dispatch/internal/events"
	"github.com/shenikar/fireguard_dispatch/internal/models"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 1000

	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// EventStream - источник журнала изменений для наблюдателей
type EventStream interface {
	Read(ctx context.Context, topics []models.Topic, cursor uint64, limit int) ([]models.Event, error)
	Subscribe(ctx context.Context, topics []models.Topic, cursor uint64) (*events.Subscription, error)
	LastSeq(ctx context.Context) (uint64, error)
}

// parseStreamQuery разбирает topics (через запятую) и cursor
func parseStreamQuery(c *gin.Context) ([]models.Topic, uint64, error) {
	var topics []models.Topic
	if raw := c.Query("topics"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			topics = append(topics, models.Topic(strings.TrimSpace(t)))
		}
	}
	cursor, err := strconv.ParseUint(c.DefaultQuery("cursor", "0"), 10, 64)
	if err != nil {
		return nil, 0, errors.New("cursor must be a non-negative integer")
	}
	return topics, cursor, nil
}

// @Summary Read the change log
// @Description Catch-up read of events with seq greater than cursor. Pass the returned cursor to the next call.
// @Tags Events
// @Produce json
// @Security ApiKeyAuth
// @Param topics query string false "Comma-separated topics: incident, resource, location"
// @Param cursor query int false "Last seen seq" default(0)
// @Param limit query int false "Page size" default(100)
// @Success 200 {object} EventsPage
// @Failure 400 {object} map[string]string "Invalid query"
// @Failure 410 {object} map[string]string "Cursor expired, resync from snapshot"
// @Router /events [get]
func (h *Handler) readEvents(c *gin.Context) {
	log := h.logger.WithField("method", "readEvents")
	topics, cursor, err := parseStreamQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultEventsLimit)))
	if limit <= 0 || limit > maxEventsLimit {
		limit = defaultEventsLimit
	}

	evs, err := h.stream.Read(c.Request.Context(), topics, cursor, limit)
	if err != nil {
		respondError(c, log, err)
		return
	}

	page := EventsPage{Events: make([]*EventResponse, len(evs)), Cursor: cursor}
	for i, ev := range evs {
		page.Events[i] = ModelToEventResponse(ev)
		page.Cursor = ev.Seq
	}
	c.JSON(http.StatusOK, page)
}

// @Summary Current head of the change log
// @Description Cursor of the newest event. Take it before loading a snapshot, then subscribe from it.
// @Tags Events
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} EventsPage
// @Router /events/head [get]
func (h *Handler) eventsHead(c *gin.Context) {
	log := h.logger.WithField("method", "eventsHead")
	head, err := h.stream.LastSeq(c.Request.Context())
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, EventsPage{Events: []*EventResponse{}, Cursor: head})
}

// @Summary Subscribe to the change stream
// @Description Websocket: replays events after cursor, then streams live. The server closes the socket if the client falls too far behind.
// @Tags Events
// @Security ApiKeyAuth
// @Param topics query string false "Comma-separated topics"
// @Param cursor query int false "Last seen seq" default(0)
// @Success 101 "Switching Protocols"
// @Failure 410 {object} map[string]string "Cursor expired"
// @Router /events/ws [get]
func (h *Handler) streamEvents(c *gin.Context) {
	log := h.logger.WithField("method", "streamEvents")
	topics, cursor, err := parseStreamQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Подписываемся до апгрейда, чтобы ошибки курсора ушли обычным HTTP-ответом
	sub, err := h.stream.Subscribe(ctx, topics, cursor)
	if err != nil {
		respondError(c, log, err)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	go h.wsReadPump(conn, cancel)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				reason := "stream closed"
				switch {
				case errors.Is(sub.Err(), events.ErrSubscriberDropped):
					reason = "subscriber fell behind, resubscribe from last cursor"
				case errors.Is(sub.Err(), events.ErrCursorExpired):
					reason = "cursor expired during catch-up, resync from snapshot"
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, reason))
				log.WithField("reason", reason).Info("Websocket stream ended")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ModelToEventResponse(ev)); err != nil {
				log.WithError(err).Debug("Websocket write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// wsReadPump читает входящие кадры только ради pong и закрытия соединения
func (h *Handler) wsReadPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
