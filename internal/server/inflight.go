package server

import (
	"sync"
)

// Tracker counts requests currently being serviced. Handlers enter before the
// engine runs and exit exactly once on every completion path; the shutdown
// coordinator observes the count to decide when draining is complete.
//
// All transitions happen under one mutex, so entries arriving while a quiesce
// wait is armed (requests delivered on keep-alive connections that were
// accepted before the listener closed) are serialized against it: either they
// land before the count reaches zero and extend the drain, or they land after
// the drain decision, where the server teardown closes their connection.
type Tracker struct {
	mu       sync.Mutex
	inFlight int64
	waiters  []chan struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Enter records the start of a request.
func (t *Tracker) Enter() {
	t.mu.Lock()
	t.inFlight++
	t.mu.Unlock()
}

// Exit records the completion of a request. Calling Exit without a matching
// Enter is a programming error and panics, keeping the count non-negative.
func (t *Tracker) Exit() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.inFlight == 0 {
		panic("server: Tracker.Exit without matching Enter")
	}

	t.inFlight--
	if t.inFlight == 0 {
		for _, ch := range t.waiters {
			close(ch)
		}
		t.waiters = nil
	}
}

// Count returns the number of requests currently in flight.
func (t *Tracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight
}

// Quiesced returns a channel that is closed once the in-flight count next
// reaches zero. If nothing is in flight, it is closed already. Requests that
// enter after the count reached zero do not reopen the channel.
func (t *Tracker) Quiesced() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan struct{})
	if t.inFlight == 0 {
		close(ch)
		return ch
	}

	t.waiters = append(t.waiters, ch)
	return ch
}
