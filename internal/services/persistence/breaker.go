package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/entities"
)

// Breaker fails fast while the wrapped store keeps erroring, so requests answer
// with a 500 instead of piling up behind a dead database.
type Breaker struct {
	next ReadingStore
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker opens after `failures` consecutive store faults and probes again
// after openFor.
func NewBreaker(next ReadingStore, failures int, openFor time.Duration) *Breaker {
	if failures < 1 {
		failures = 1
	}
	if openFor <= 0 {
		openFor = 10 * time.Second
	}
	return &Breaker{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "reading-store",
			Timeout: openFor,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= uint32(failures)
			},
			// a rejected reading or a caller that went away says nothing about store health
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrValidation) || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("persistence: breaker %s %s -> %s", name, from, to)
			},
		}),
	}
}

// State reports the breaker state ("closed", "open", "half-open").
func (b *Breaker) State() string { return b.cb.State().String() }

func (b *Breaker) Append(ctx context.Context, f entities.ReadingFields) (entities.SensorReading, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Append(ctx, f)
	})
	if err != nil {
		return entities.SensorReading{}, b.wrap(err)
	}
	return res.(entities.SensorReading), nil
}

func (b *Breaker) FindLatest(ctx context.Context) (*entities.SensorReading, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.FindLatest(ctx)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return res.(*entities.SensorReading), nil
}

func (b *Breaker) FindSince(ctx context.Context, since time.Time) ([]entities.SensorReading, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.FindSince(ctx, since)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return res.([]entities.SensorReading), nil
}

// Ping reports unavailable while the breaker is open without touching the store.
func (b *Breaker) Ping(ctx context.Context) error {
	if b.cb.State() == gobreaker.StateOpen {
		return fmt.Errorf("breaker %s: %w", b.cb.Name(), ErrUnavailable)
	}
	return b.next.Ping(ctx)
}

func (b *Breaker) Close() error { return b.next.Close() }

func (b *Breaker) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("breaker %s: %w: %w", b.cb.Name(), ErrUnavailable, err)
	}
	return err
}
