// Package msghub provides a central hub relaying newly stored message
// summaries to its listeners, with a short replay history for late joiners.
package msghub

import (
	"container/ring"
	"context"

	"github.com/inbucket/mailbag/pkg/message"
)

// Length of msghub operation queue
const opChanLen = 100

// Listener receives the contents of the history buffer, followed by new
// messages.
type Listener interface {
	Receive(msg message.Summary) error
}

// Hub relays message summaries on to its listeners.
type Hub struct {
	// history buffer, points next summary to write.  Preceding non-nil entry is the oldest.
	history   *ring.Ring
	listeners map[Listener]struct{} // listeners interested in new messages
	opChan    chan func(h *Hub)     // operations queued for this actor
	done      chan struct{}         // closed once the processing loop exits
}

// New constructs a Hub which caches historyLen summaries for playback to
// future listeners.  Start must be called before use.
func New(historyLen int) *Hub {
	return &Hub{
		history:   ring.New(historyLen),
		listeners: make(map[Listener]struct{}),
		opChan:    make(chan func(h *Hub), opChanLen),
		done:      make(chan struct{}),
	}
}

// Start runs the Hub processing loop until ctx is canceled.
func (hub *Hub) Start(ctx context.Context) {
	defer close(hub.done)
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-hub.opChan:
			op(hub)
		}
	}
}

// submit queues op for the processing loop.  Operations arriving after
// shutdown are dropped; message sources may outlive the hub.
func (hub *Hub) submit(op func(h *Hub)) {
	select {
	case hub.opChan <- op:
	case <-hub.done:
	}
}

// Dispatch queues a summary for broadcast by the hub.  It will be placed
// into the history buffer and then relayed to all registered listeners.
func (hub *Hub) Dispatch(msg message.Summary) {
	hub.submit(func(h *Hub) {
		if h.history != nil {
			// Add to history buffer
			h.history.Value = msg
			h.history = h.history.Next()
		}

		// Deliver to all listeners, dropping those that return an error
		for l := range h.listeners {
			if err := l.Receive(msg); err != nil {
				delete(h.listeners, l)
			}
		}
	})
}

// AddListener registers a listener to receive broadcasted summaries.
func (hub *Hub) AddListener(l Listener) {
	hub.submit(func(h *Hub) {
		// Playback history
		h.history.Do(func(v interface{}) {
			if v != nil {
				l.Receive(v.(message.Summary))
			}
		})

		h.listeners[l] = struct{}{}
	})
}

// RemoveListener deletes a listener registration, it will cease to receive
// messages.
func (hub *Hub) RemoveListener(l Listener) {
	hub.submit(func(h *Hub) {
		delete(h.listeners, l)
	})
}

// Sync blocks until the hub has processed its queue up to this point, useful
// for unit tests.
func (hub *Hub) Sync() {
	synced := make(chan struct{})
	hub.submit(func(h *Hub) {
		close(synced)
	})
	select {
	case <-synced:
	case <-hub.done:
	}
}
