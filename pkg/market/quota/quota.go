// Package quota enforces the rolling acquisition cap: a participant
// may not buy more than Cap units of one good within Window.
package quota

import (
	"sync"
	"time"

	"github.com/uhyunpark/bazaar/pkg/util"
)

// Key identifies one (participant, good) quota bucket. A struct key
// avoids the parsing ambiguity of concatenated string keys.
type Key struct {
	Participant string
	Good        string
}

type event struct {
	at  time.Time
	qty int64
}

// Limiter tracks settled purchase quantity per (participant, good)
// over a rolling window.
//
// Policy: Allow is consulted once at order placement against the full
// requested quantity, and Record logs only quantity that actually
// settles. An order that never fully fills therefore holds quota
// headroom for its requested size until it is cancelled; this matches
// the reference behavior and is intentionally not re-checked per fill.
type Limiter struct {
	mu     sync.Mutex
	clock  util.Clock
	window time.Duration
	cap    int64
	events map[Key][]event
}

func NewLimiter(clock util.Clock, window time.Duration, cap int64) *Limiter {
	return &Limiter{
		clock:  clock,
		window: window,
		cap:    cap,
		events: make(map[Key][]event),
	}
}

// Allow reports whether buying qty more units now would stay within the
// cap. Pruning expired events is a side effect of the call; there is no
// background sweeper.
func (l *Limiter) Allow(participant, good string, qty int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := Key{Participant: participant, Good: good}
	used := l.pruneLocked(k)
	return used+qty <= l.cap
}

// Record logs settled purchase quantity against the bucket. Called by
// the matching engine after settlement, never by Allow.
func (l *Limiter) Record(participant, good string, qty int64) {
	if qty <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	k := Key{Participant: participant, Good: good}
	l.events[k] = append(l.events[k], event{at: l.clock.Now(), qty: qty})
}

// Used returns the quantity currently counted against the bucket.
func (l *Limiter) Used(participant, good string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pruneLocked(Key{Participant: participant, Good: good})
}

// pruneLocked drops events older than now-window and returns the sum of
// the survivors. Caller holds l.mu.
func (l *Limiter) pruneLocked(k Key) int64 {
	cutoff := l.clock.Now().Add(-l.window)
	evs := l.events[k]

	keep := evs[:0]
	var sum int64
	for _, e := range evs {
		if e.at.Before(cutoff) {
			continue
		}
		keep = append(keep, e)
		sum += e.qty
	}
	if len(keep) == 0 {
		delete(l.events, k)
	} else {
		l.events[k] = keep
	}
	return sum
}
