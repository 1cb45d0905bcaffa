package dashboard

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/messages"
)

// State is the liveness of the data feed as seen by the client.
type State string

const (
	StateLive    State = "LIVE"
	StateOffline State = "OFFLINE"
)

// Reason says why the tracker is OFFLINE. It is empty while LIVE.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonFetchFailed Reason = "fetch_failed"
	ReasonNoData      Reason = "no_data"
	ReasonStale       Reason = "stale"
)

const DefaultPollInterval = 3 * time.Second

type LatestFetcher interface {
	Latest(ctx context.Context) (messages.LatestSensorData, error)
}

// Sink receives the tracker's decisions. Sink methods must not call back into the
// Tracker.
type Sink interface {
	SetLiveness(state State, reason Reason)
	SetCurrent(l messages.LatestSensorData)
	PushToHistory(e messages.HistoryEntry)
}

type TrackerOption func(*Tracker)

func WithInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithRequestTimeout bounds each latest fetch.
func WithRequestTimeout(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// Tracker polls the latest reading while visible and decides LIVE or OFFLINE by
// whether createdAt moved since the previous poll.
//
// At most one poll runs at a time; ticks that fire meanwhile are skipped. A poll
// that started before a visibility change runs to completion but its result is
// dropped, and a tick of the new period it blocked is replayed right after.
type Tracker struct {
	fetch    LatestFetcher
	sink     Sink
	interval time.Duration
	timeout  time.Duration

	inFlight atomic.Bool
	wg       sync.WaitGroup

	mu         sync.Mutex
	visible    bool
	generation uint64
	stopLoop   chan struct{}
	// a tick of generation pendingGen was skipped
	pending    bool
	pendingGen uint64
	seen       bool
	lastSeen   int64 // createdAt of the last LIVE reading, epoch ms
	state      State
	reason     Reason
}

func NewTracker(fetch LatestFetcher, sink Sink, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		fetch:    fetch,
		sink:     sink,
		interval: DefaultPollInterval,
		timeout:  10 * time.Second,
		state:    StateOffline,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// State returns the current liveness and reason.
func (t *Tracker) State() (State, Reason) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.reason
}

// SetVisible starts polling (with an immediate poll) when v is true and stops
// the schedule when false. Repeated calls with the same value do nothing.
func (t *Tracker) SetVisible(v bool) {
	t.mu.Lock()
	if v == t.visible {
		t.mu.Unlock()
		return
	}
	t.visible = v
	t.generation++
	if !v {
		close(t.stopLoop)
		t.stopLoop = nil
		t.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	t.stopLoop = stop
	gen := t.generation
	t.wg.Add(1)
	t.mu.Unlock()

	go t.loop(gen, stop)
}

// Stop hides the tracker and waits for running polls to finish.
func (t *Tracker) Stop() {
	t.SetVisible(false)
	t.wg.Wait()
}

// PollNow runs one poll synchronously for the current visibility period.
// It reports false when skipped because another poll is in flight.
func (t *Tracker) PollNow() bool {
	if !t.inFlight.CompareAndSwap(false, true) {
		return false
	}
	t.mu.Lock()
	gen := t.generation
	t.mu.Unlock()
	t.poll(gen)
	return true
}

func (t *Tracker) loop(gen uint64, stop <-chan struct{}) {
	defer t.wg.Done()
	t.tick(gen)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.tick(gen)
		}
	}
}

func (t *Tracker) tick(gen uint64) {
	if !t.inFlight.CompareAndSwap(false, true) {
		t.mu.Lock()
		if gen == t.generation {
			t.pending, t.pendingGen = true, gen
		}
		t.mu.Unlock()
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.poll(gen)
	}()
}

// poll must be entered with inFlight held.
func (t *Tracker) poll(gen uint64) {
	next, replay := t.fetchAndApply(gen)
	t.inFlight.Store(false)
	if replay {
		t.tick(next)
	}
}

// fetchAndApply reports the generation to poll again when its result belonged
// to an older period and the current one had a tick skipped.
func (t *Tracker) fetchAndApply(gen uint64) (uint64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	l, err := t.fetch.Latest(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		if t.visible && t.pending && t.pendingGen == t.generation {
			t.pending = false
			return t.generation, true
		}
		return 0, false
	}
	if t.pendingGen == gen {
		t.pending = false
	}

	switch {
	case err != nil:
		reason := ReasonFetchFailed
		if errors.Is(err, ErrNoData) {
			reason = ReasonNoData
		} else {
			log.Printf("dashboard: latest fetch failed: %v", err)
		}
		t.setState(StateOffline, reason)
	case !t.seen || l.CreatedAt != t.lastSeen:
		t.seen = true
		t.lastSeen = l.CreatedAt
		t.setState(StateLive, ReasonNone)
		t.sink.SetCurrent(l)
		t.sink.PushToHistory(l.AsHistoryEntry())
	default:
		t.setState(StateOffline, ReasonStale)
	}
	return 0, false
}

func (t *Tracker) setState(s State, r Reason) {
	t.state, t.reason = s, r
	t.sink.SetLiveness(s, r)
}
