package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/entities"
)

// MemoryStore keeps readings in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	stamp    *stamper
	readings []entities.SensorReading // ascending by CreatedAt
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{stamp: newStamper(opts...)}
}

func (m *MemoryStore) Append(_ context.Context, f entities.ReadingFields) (entities.SensorReading, error) {
	if err := checkFields(f); err != nil {
		return entities.SensorReading{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r := entities.SensorReading{ID: newID(), ReadingFields: f, CreatedAt: m.stamp.next()}
	m.readings = append(m.readings, r)
	return r, nil
}

func (m *MemoryStore) FindLatest(_ context.Context) (*entities.SensorReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.readings) == 0 {
		return nil, nil
	}
	r := m.readings[len(m.readings)-1]
	return &r, nil
}

func (m *MemoryStore) FindSince(_ context.Context, since time.Time) ([]entities.SensorReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := sort.Search(len(m.readings), func(i int) bool {
		return !m.readings[i].CreatedAt.Before(since)
	})
	out := make([]entities.SensorReading, len(m.readings)-i)
	copy(out, m.readings[i:])
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
