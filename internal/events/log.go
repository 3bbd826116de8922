package events

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

// ErrCursorExpired - курсор старше окна хранения журнала, подписчику нужен
// свежий снимок вместо догоняющего чтения.
var ErrCursorExpired = errors.New("cursor is older than retained event log")

// Log - упорядоченный журнал событий по темам. Append присваивает Seq,
// ReadFrom возвращает события с Seq > cursor в порядке возрастания Seq.
type Log interface {
	Append(ctx context.Context, ev *models.Event) error
	ReadFrom(ctx context.Context, topics []models.Topic, cursor uint64, limit int) ([]models.Event, error)
	// LastVersion - последняя записанная версия сущности, 0 если событий не было
	LastVersion(ctx context.Context, topic models.Topic, entityID uuid.UUID) (int64, error)
	// LastSeq - позиция последнего записанного события, 0 для пустого журнала
	LastSeq(ctx context.Context) (uint64, error)
}

// MemoryLog хранит последние retention событий каждой темы в памяти процесса
type MemoryLog struct {
	mu        sync.RWMutex
	retention int
	seq       uint64
	topics    map[models.Topic][]models.Event
	evicted   map[models.Topic]uint64
	versions  map[entityKey]int64
}

func NewMemoryLog(retention int) *MemoryLog {
	if retention <= 0 {
		retention = 10000
	}
	return &MemoryLog{
		retention: retention,
		topics:    make(map[models.Topic][]models.Event),
		evicted:   make(map[models.Topic]uint64),
		versions:  make(map[entityKey]int64),
	}
}

func (l *MemoryLog) Append(_ context.Context, ev *models.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	ev.Seq = l.seq
	l.versions[entityKey{topic: ev.Topic, id: ev.EntityID}] = ev.Version

	evs := append(l.topics[ev.Topic], *ev)
	if over := len(evs) - l.retention; over > 0 {
		l.evicted[ev.Topic] = evs[over-1].Seq
		evs = evs[over:]
	}
	l.topics[ev.Topic] = evs
	return nil
}

func (l *MemoryLog) ReadFrom(_ context.Context, topics []models.Topic, cursor uint64, limit int) ([]models.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.Event
	for _, topic := range topics {
		if cursor < l.evicted[topic] {
			return nil, ErrCursorExpired
		}
		evs := l.topics[topic]
		start := sort.Search(len(evs), func(i int) bool { return evs[i].Seq > cursor })
		out = append(out, evs[start:]...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *MemoryLog) LastVersion(_ context.Context, topic models.Topic, entityID uuid.UUID) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.versions[entityKey{topic: topic, id: entityID}], nil
}

func (l *MemoryLog) LastSeq(_ context.Context) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq, nil
}
