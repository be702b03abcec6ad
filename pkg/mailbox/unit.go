package mailbox

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/inbucket/mailbag/pkg/message"
	"github.com/inbucket/mailbag/pkg/msghub"
)

// Length of the per-mailbox operation queue.
const opChanLen = 32

// Page is one ListMessages result.  An empty Cursor means the traversal is
// exhausted; otherwise passing Cursor to the next call resumes immediately
// after the last summary returned.
type Page struct {
	Cursor   string
	Messages []*message.Summary
}

// Unit is the exclusive owner of one mailbox's message store.  A single
// goroutine consumes operations from opChan in arrival order, so the store
// needs no locking.  Replies travel on per-request channels supplied by the
// caller's goroutine; the Registry only resolves the address and is never on
// the critical path.
//
// A Unit moves through Created, Active, Terminating and Terminated.  Stop or
// a panic while servicing an operation ends the run loop and closes done;
// Terminated is absorbing.  Operations racing a termination observe
// ErrNoMailbox.
type Unit struct {
	address  string
	store    *tstore
	hub      *msghub.Hub
	opChan   chan func(*Unit)
	done     chan struct{} // closed once the run loop exits
	lastNano int64
	stopping bool
}

func newUnit(address string, hub *msghub.Hub) *Unit {
	return &Unit{
		address: address,
		store:   newStore(),
		hub:     hub,
		opChan:  make(chan func(*Unit), opChanLen),
		done:    make(chan struct{}),
	}
}

// Address returns the address this unit serves.
func (u *Unit) Address() string {
	return u.address
}

// run consumes operations until stopped.  A panic inside an operation
// terminates the unit; the store contents are unrecoverable and the Registry
// observes done to purge the mapping.
func (u *Unit) run() {
	defer close(u.done)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "mailbox").Str("address", u.address).
				Interface("panic", r).Msg("Mailbox unit failed")
		}
	}()
	for op := range u.opChan {
		op(u)
		if u.stopping {
			return
		}
	}
}

// submit queues op for the run loop, failing fast if the unit has terminated
// or the caller's deadline expires first.  An expired context never queues.
func (u *Unit) submit(ctx context.Context, op func(*Unit)) error {
	if ctx.Err() != nil {
		return ErrTimeout
	}
	select {
	case u.opChan <- op:
		return nil
	case <-u.done:
		return ErrNoMailbox
	case <-ctx.Done():
		return ErrTimeout
	}
}

// awaitReply waits for the unit to answer, preferring a buffered reply over a
// concurrent termination.  An operation still queued when the unit terminates
// is dropped; its caller is released here with ErrNoMailbox.
func awaitReply[T any](ctx context.Context, u *Unit, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-u.done:
		// The operation may have replied just before termination.
		select {
		case v := <-reply:
			return v, nil
		default:
		}
		return zero, ErrNoMailbox
	case <-ctx.Done():
		return zero, ErrTimeout
	}
}

// CreateMessage stores a new message and returns its generated ID.
func (u *Unit) CreateMessage(ctx context.Context, from, subject, body string) (string, error) {
	reply := make(chan string, 1)
	err := u.submit(ctx, func(u *Unit) {
		nanos := time.Now().UnixNano()
		if nanos <= u.lastNano {
			// Clock did not advance; keep IDs strictly increasing.
			nanos = u.lastNano + 1
		}
		u.lastNano = nanos
		m := &message.Message{
			Summary: message.Summary{
				Mailbox: u.address,
				ID:      makeID(nanos),
				From:    from,
				Subject: subject,
				Date:    time.Unix(0, nanos),
			},
			Body: body,
		}
		u.store.insert(m)
		if u.hub != nil {
			u.hub.Dispatch(m.Summary)
		}
		reply <- m.ID
	})
	if err != nil {
		return "", err
	}
	return awaitReply(ctx, u, reply)
}

// List returns one page of summaries, most recent first.  The cursor entry
// itself is excluded; size must be positive.  Cursor is set on the returned
// page only when it held a full size messages.
func (u *Unit) List(ctx context.Context, cursor string, size int) (*Page, error) {
	reply := make(chan *Page, 1)
	err := u.submit(ctx, func(u *Unit) {
		msgs := u.store.scan(cursor, size)
		page := &Page{Messages: msgs}
		if len(msgs) == size {
			page.Cursor = msgs[len(msgs)-1].ID
		}
		reply <- page
	})
	if err != nil {
		return nil, err
	}
	return awaitReply(ctx, u, reply)
}

// Get returns the message with the given ID.
func (u *Unit) Get(ctx context.Context, id string) (*message.Message, error) {
	reply := make(chan *message.Message, 1)
	err := u.submit(ctx, func(u *Unit) {
		reply <- u.store.get(id)
	})
	if err != nil {
		return nil, err
	}
	m, err := awaitReply(ctx, u, reply)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotExist
	}
	return m, nil
}

// Remove deletes the message with the given ID.  Removing an unknown ID
// succeeds.
func (u *Unit) Remove(ctx context.Context, id string) error {
	reply := make(chan struct{}, 1)
	err := u.submit(ctx, func(u *Unit) {
		u.store.remove(id)
		reply <- struct{}{}
	})
	if err != nil {
		return err
	}
	_, err = awaitReply(ctx, u, reply)
	return err
}

// Stop terminates the unit.  Once acknowledged no further operations are
// accepted; operations already queued behind the stop are dropped and their
// callers observe ErrNoMailbox.  Stopping a terminated unit succeeds.
func (u *Unit) Stop(ctx context.Context) error {
	reply := make(chan struct{}, 1)
	err := u.submit(ctx, func(u *Unit) {
		u.stopping = true
		reply <- struct{}{}
	})
	if err != nil {
		if errors.Is(err, ErrNoMailbox) {
			return nil
		}
		return err
	}
	if _, err = awaitReply(ctx, u, reply); errors.Is(err, ErrNoMailbox) {
		return nil
	}
	return err
}

// stopAsync requests termination without waiting for acknowledgment, used
// during registry shutdown.  A unit with a full queue is abandoned to process
// exit.
func (u *Unit) stopAsync() {
	select {
	case u.opChan <- func(u *Unit) { u.stopping = true }:
	case <-u.done:
	default:
	}
}
