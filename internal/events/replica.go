package events

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

type ApplyResult int

const (
	// Applied - событие применено, версия сущности сдвинулась на единицу
	Applied ApplyResult = iota
	// Duplicate - версия уже применена, событие отброшено
	Duplicate
	// Gap - пропуск версий, событие отброшено, запрошен свежий снимок
	Gap
)

func (r ApplyResult) String() string {
	switch r {
	case Applied:
		return "applied"
	case Duplicate:
		return "duplicate"
	case Gap:
		return "gap"
	}
	return "unknown"
}

// ResyncFunc вызывается при обнаружении пропуска версий сущности
type ResyncFunc func(topic models.Topic, entityID uuid.UUID)

// Replica - локальная проекция потока событий на стороне потребителя.
// Применяет событие только если его версия ровно last+1, иначе отбрасывает
// его и при пропуске запрашивает снимок сущности.
type Replica struct {
	mu       sync.RWMutex
	versions map[entityKey]int64
	state    map[entityKey]json.RawMessage
	cursor   uint64
	resync   ResyncFunc
}

func NewReplica(resync ResyncFunc) *Replica {
	return &Replica{
		versions: make(map[entityKey]int64),
		state:    make(map[entityKey]json.RawMessage),
		resync:   resync,
	}
}

// Apply применяет событие идемпотентно
func (r *Replica) Apply(ev models.Event) ApplyResult {
	key := entityKey{topic: ev.Topic, id: ev.EntityID}

	r.mu.Lock()
	if ev.Seq > r.cursor {
		r.cursor = ev.Seq
	}
	last, known := r.versions[key]
	var result ApplyResult
	switch {
	case known && ev.Version <= last:
		result = Duplicate
	case (!known && ev.Version == 1) || (known && ev.Version == last+1):
		r.versions[key] = ev.Version
		r.state[key] = ev.Payload
		result = Applied
	default:
		result = Gap
	}
	r.mu.Unlock()

	if result == Gap && r.resync != nil {
		r.resync(ev.Topic, ev.EntityID)
	}
	return result
}

// Seed кладет снимок сущности, полученный при ресинхронизации. Более старый
// снимок, чем уже примененная версия, игнорируется.
func (r *Replica) Seed(topic models.Topic, entityID uuid.UUID, version int64, payload json.RawMessage) {
	key := entityKey{topic: topic, id: entityID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.versions[key]; ok && last >= version {
		return
	}
	r.versions[key] = version
	r.state[key] = payload
}

// Get возвращает примененную версию и состояние сущности
func (r *Replica) Get(topic models.Topic, entityID uuid.UUID) (int64, json.RawMessage, bool) {
	key := entityKey{topic: topic, id: entityID}

	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.versions[key]
	return v, r.state[key], ok
}

// Cursor - Seq последнего увиденного события, для переподписки
func (r *Replica) Cursor() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cursor
}

// Len - число сущностей в проекции
func (r *Replica) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.versions)
}
