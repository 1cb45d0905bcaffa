package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/entities"
)

var (
	// ErrValidation is returned by Append when a measurement is NaN or infinite.
	ErrValidation = errors.New("reading has non-finite measurements")
	// ErrUnavailable wraps every fault of the underlying storage.
	ErrUnavailable = errors.New("reading store unavailable")
)

// ReadingStore is an append-only log of sensor readings.
// Implementations assign ID and CreatedAt and must be safe for concurrent use.
type ReadingStore interface {
	Append(ctx context.Context, f entities.ReadingFields) (entities.SensorReading, error)
	// FindLatest returns nil, nil when the store is empty.
	FindLatest(ctx context.Context) (*entities.SensorReading, error)
	// FindSince returns readings with CreatedAt >= since, ascending.
	FindSince(ctx context.Context, since time.Time) ([]entities.SensorReading, error)
	Ping(ctx context.Context) error
	Close() error
}

type Option func(*stamper)

// WithClock replaces the wall clock used to stamp readings.
func WithClock(now func() time.Time) Option {
	return func(s *stamper) {
		if now != nil {
			s.now = now
		}
	}
}

// stamper hands out strictly increasing, millisecond-precision UTC timestamps.
type stamper struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newStamper(opts ...Option) *stamper {
	s := &stamper{now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *stamper) next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().UTC().Truncate(time.Millisecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Millisecond)
	}
	s.last = t
	return t
}

// seed makes sure the next stamp is after t (e.g. the newest persisted reading).
func (s *stamper) seed(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.last) {
		s.last = t.UTC().Truncate(time.Millisecond)
	}
}

func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func checkFields(f entities.ReadingFields) error {
	if !f.Finite() {
		return ErrValidation
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// ceilMilli rounds t up to the next whole millisecond.
func ceilMilli(t time.Time) int64 {
	ms := t.UnixMilli()
	if t.After(time.UnixMilli(ms)) {
		ms++
	}
	return ms
}
