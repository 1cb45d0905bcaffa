package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/messages"
)

// ErrRangeSuperseded is returned by SelectRange when another range was selected
// before the response arrived; the response is dropped.
var ErrRangeSuperseded = errors.New("range selection superseded")

const DefaultRange = "1h"

type HistoryFetcher interface {
	History(ctx context.Context, rng string) (messages.HistorySensorData, error)
}

// Snapshot is an immutable copy of the session state.
type Snapshot struct {
	Current *messages.LatestSensorData
	State   State
	Reason  Reason
	Range   string
	History messages.HistorySensorData
}

// Session holds what the presentation layer renders. It implements Sink so a
// Tracker can feed it directly.
type Session struct {
	fetch HistoryFetcher

	mu       sync.Mutex
	current  *messages.LatestSensorData
	state    State
	reason   Reason
	history  *HistoryCache
	rng      string
	rangeSeq uint64
	onChange func(Snapshot)
}

func NewSession(fetch HistoryFetcher) *Session {
	return &Session{
		fetch:   fetch,
		state:   StateOffline,
		history: NewHistoryCache(),
		rng:     DefaultRange,
	}
}

// OnChange registers fn to run after every mutation, outside the session lock.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) SetCurrent(l messages.LatestSensorData) {
	s.update(func() { s.current = &l })
}

func (s *Session) SetLiveness(state State, reason Reason) {
	s.update(func() { s.state, s.reason = state, reason })
}

func (s *Session) PushToHistory(e messages.HistoryEntry) {
	s.update(func() { s.history.Merge(e) })
}

func (s *Session) SetHistory(list messages.HistorySensorData) {
	s.update(func() { s.history.Replace(list) })
}

// SelectRange switches the window and reloads the history for it. Only the
// response for the most recent selection is applied.
func (s *Session) SelectRange(ctx context.Context, rng string) error {
	var seq uint64
	s.update(func() {
		s.rng = rng
		s.rangeSeq++
		seq = s.rangeSeq
	})

	list, err := s.fetch.History(ctx, rng)
	if err != nil {
		return fmt.Errorf("load %s history: %w", rng, err)
	}

	applied := false
	s.update(func() {
		if seq != s.rangeSeq {
			return
		}
		s.history.Replace(list)
		applied = true
	})
	if !applied {
		return ErrRangeSuperseded
	}
	return nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:   s.state,
		Reason:  s.reason,
		Range:   s.rng,
		History: s.history.Entries(),
	}
	if s.current != nil {
		c := *s.current
		snap.Current = &c
	}
	return snap
}

func (s *Session) update(mutate func()) {
	s.mu.Lock()
	mutate()
	fn := s.onChange
	var snap Snapshot
	if fn != nil {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}
