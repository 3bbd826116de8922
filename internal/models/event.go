package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Topic string

const (
	TopicIncident Topic = "incident"
	TopicResource Topic = "resource"
	TopicLocation Topic = "location"
)

// AllTopics - известные журналы событий
var AllTopics = []Topic{TopicIncident, TopicResource, TopicLocation}

func (t Topic) Valid() bool {
	return t == TopicIncident || t == TopicResource || t == TopicLocation
}

// Event - версионированное изменение сущности. Seq - глобальная позиция в
// журнале, используется как курсор подписки.
type Event struct {
	Seq        uint64          `json:"seq"`
	Topic      Topic           `json:"topic"`
	EntityID   uuid.UUID       `json:"entity_id"`
	Version    int64           `json:"version"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}
