package events

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

func TestReplica_ApplyIdempotentAndGapTriggersResync(t *testing.T) {
	var resynced []uuid.UUID
	r := NewReplica(func(_ models.Topic, id uuid.UUID) { resynced = append(resynced, id) })
	id := uuid.New()

	ev := func(seq uint64, v int64) models.Event {
		return models.Event{Seq: seq, Topic: models.TopicIncident, EntityID: id, Version: v, Payload: json.RawMessage(`{}`)}
	}

	assert.Equal(t, Applied, r.Apply(ev(1, 1)))
	assert.Equal(t, Duplicate, r.Apply(ev(1, 1)))
	assert.Equal(t, Applied, r.Apply(ev(2, 2)))
	assert.Equal(t, Gap, r.Apply(ev(5, 4)))
	assert.Equal(t, []uuid.UUID{id}, resynced)

	v, _, ok := r.Get(models.TopicIncident, id)
	assert.True(t, ok)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, uint64(5), r.Cursor())

	// Снимок после ресинхронизации, затем поток продолжается с v+1
	r.Seed(models.TopicIncident, id, 4, json.RawMessage(`{"status":"arrived"}`))
	assert.Equal(t, Applied, r.Apply(ev(6, 5)))

	// Старый снимок не откатывает состояние
	r.Seed(models.TopicIncident, id, 3, json.RawMessage(`{}`))
	v, _, _ = r.Get(models.TopicIncident, id)
	assert.Equal(t, int64(5), v)
}

func TestReplica_UnknownEntityMidStreamIsGap(t *testing.T) {
	calls := 0
	r := NewReplica(func(models.Topic, uuid.UUID) { calls++ })

	res := r.Apply(models.Event{Seq: 10, Topic: models.TopicResource, EntityID: uuid.New(), Version: 7})

	assert.Equal(t, Gap, res)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, r.Len())
}
