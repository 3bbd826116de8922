package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

// NATSConfig - параметры подключения к NATS
type NATSConfig struct {
	URL            string
	Name           string
	ReconnectWait  time.Duration
	MaxReconnects  int
	ConnectTimeout time.Duration
}

// NewNATSConn подключается к NATS с автоматическим переподключением
func NewNATSConn(cfg NATSConfig) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
	}
	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSSink публикует события в субъекты <prefix>.<topic>
type NATSSink struct {
	conn   msgPublisher
	prefix string
}

func NewNATSSink(conn msgPublisher, prefix string) *NATSSink {
	return &NATSSink{conn: conn, prefix: prefix}
}

func (s *NATSSink) Subject(topic models.Topic) string {
	return s.prefix + "." + string(topic)
}

// Forward публикует событие. Nats-Msg-Id позволяет JetStream отбросить повтор
// после возобновления с курсора.
func (s *NATSSink) Forward(_ context.Context, ev models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := nats.NewMsg(s.Subject(ev.Topic))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, fmt.Sprintf("%s:%s:%d", ev.Topic, ev.EntityID, ev.Version))
	msg.Header.Set("Fireguard-Seq", fmt.Sprintf("%d", ev.Seq))
	if err := s.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return nil
}
