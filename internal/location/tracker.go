// Package location holds the live position tracker. Devices report
// positions; consumers read the latest value or subscribe to a stream
// of updates.
package location

import (
	"context"
	"sync"
	"time"
)

// Position is one reported device position. Elevation is 0 when the
// provider reports none.
type Position struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Elevation  float64   `json:"elevation"`
	ObservedAt time.Time `json:"observed_at"`
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan Position
	closed bool
}

// Tracker keeps the latest-known position per user and fans updates out
// to subscribers. Every update replaces the previous value; nothing is
// merged or smoothed.
type Tracker struct {
	mu     sync.RWMutex
	latest map[string]Position
	subs   map[string]map[*subscriber]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		latest: make(map[string]Position),
		subs:   make(map[string]map[*subscriber]struct{}),
	}
}

// Publish records a new position for the user and delivers it to all
// subscribers. A subscriber that has not drained its previous update
// gets this one instead (latest wins).
func (t *Tracker) Publish(userID string, pos Position) {
	if pos.ObservedAt.IsZero() {
		pos.ObservedAt = time.Now().UTC()
	}

	t.mu.Lock()
	t.latest[userID] = pos
	subs := make([]*subscriber, 0, len(t.subs[userID]))
	for s := range t.subs[userID] {
		subs = append(subs, s)
	}
	t.mu.Unlock()

	for _, s := range subs {
		s.deliver(pos)
	}
}

// Latest returns the last reported position for the user.
func (t *Tracker) Latest(userID string) (Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pos, ok := t.latest[userID]
	return pos, ok
}

// Subscribe registers a stream of position updates for the user. The
// last known position, when present, is delivered first. The stream is
// released when stop is called or ctx is cancelled; callers must ensure
// one of the two happens on every exit path.
func (t *Tracker) Subscribe(ctx context.Context, userID string) (<-chan Position, func()) {
	s := &subscriber{ch: make(chan Position, 1)}

	t.mu.Lock()
	if t.subs[userID] == nil {
		t.subs[userID] = make(map[*subscriber]struct{})
	}
	t.subs[userID][s] = struct{}{}
	pos, ok := t.latest[userID]
	t.mu.Unlock()

	if ok {
		s.deliver(pos)
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs[userID], s)
			if len(t.subs[userID]) == 0 {
				delete(t.subs, userID)
			}
			t.mu.Unlock()
			s.close()
		})
	}

	go func() {
		<-ctx.Done()
		stop()
	}()

	return s.ch, stop
}

// Forget drops the stored position for a user, e.g. after logout.
func (t *Tracker) Forget(userID string) {
	t.mu.Lock()
	delete(t.latest, userID)
	t.mu.Unlock()
}

// deliver replaces any undrained update with the new one.
func (s *subscriber) deliver(pos Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- pos:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
