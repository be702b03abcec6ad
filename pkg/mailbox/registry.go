// Package mailbox implements the ephemeral mailbox core: an address registry
// that creates, destroys and routes to per-mailbox units, each the exclusive
// owner of an ordered in-memory message store.  Nothing is persisted; a
// mailbox and its contents live exactly as long as its unit.
package mailbox

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/inbucket/mailbag/pkg/config"
	"github.com/inbucket/mailbag/pkg/message"
	"github.com/inbucket/mailbag/pkg/msghub"
)

// Registry is the single authority for address lifecycle and routing.  Its
// goroutine serializes every mutation of the address map; message operations
// run against the owning Unit without passing back through the registry.
type Registry struct {
	conf    config.Mailbox
	hub     *msghub.Hub
	units   map[string]*Unit
	counter uint64               // address allocator, touched only in the control loop
	opChan  chan func(*Registry) // operations queued for this actor
	done    chan struct{}        // closed once the control loop exits
}

// New creates a Registry.  The configured default page size must be positive.
// Start must be called before use; hub may be nil to disable monitoring.
func New(conf config.Mailbox, hub *msghub.Hub) (*Registry, error) {
	if conf.DefaultPageSize < 1 {
		return nil, fmt.Errorf("default page size must be positive, got %v", conf.DefaultPageSize)
	}
	return &Registry{
		conf:   conf,
		hub:    hub,
		units:  make(map[string]*Unit),
		opChan: make(chan func(*Registry), opChanLen),
		done:   make(chan struct{}),
	}, nil
}

// Start runs the registry control loop until ctx is canceled, then requests
// termination of every live unit.
func (r *Registry) Start(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			for _, u := range r.units {
				u.stopAsync()
			}
			return
		case op := <-r.opChan:
			op(r)
		}
	}
}

// submit queues op for the control loop.  An expired context never queues.
func (r *Registry) submit(ctx context.Context, op func(*Registry)) error {
	if ctx.Err() != nil {
		return ErrTimeout
	}
	select {
	case r.opChan <- op:
		return nil
	case <-r.done:
		return ErrShutdown
	case <-ctx.Done():
		return ErrTimeout
	}
}

// withDeadline applies the configured operation timeout when the caller
// supplied no deadline of its own.
func (r *Registry) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.conf.OpTimeout)
}

// watch purges the address mapping once its unit terminates, planned or not.
// The mapping never outlives the unit it points to.
func (r *Registry) watch(addr string, u *Unit) {
	<-u.done
	select {
	case r.opChan <- func(r *Registry) {
		if r.units[addr] == u {
			delete(r.units, addr)
			log.Debug().Str("module", "mailbox").Str("address", addr).
				Msg("Purged mailbox mapping")
		}
	}:
	case <-r.done:
	}
}

// CreateAddress allocates a fresh unique address with an empty mailbox
// behind it.
func (r *Registry) CreateAddress(ctx context.Context) (string, error) {
	ctx, cancel := r.withDeadline(ctx)
	defer cancel()
	reply := make(chan string, 1)
	err := r.submit(ctx, func(r *Registry) {
		r.counter++
		addr := fmt.Sprintf("%s%d@%s", r.conf.LocalPrefix, r.counter, r.conf.Domain)
		u := newUnit(addr, r.hub)
		r.units[addr] = u
		go u.run()
		go r.watch(addr, u)
		log.Debug().Str("module", "mailbox").Str("address", addr).Msg("Created mailbox")
		reply <- addr
	})
	if err != nil {
		return "", err
	}
	select {
	case addr := <-reply:
		return addr, nil
	case <-ctx.Done():
		return "", ErrTimeout
	}
}

// DeleteAddress stops the mailbox for addr and removes it from the registry.
// The mailbox contents are unrecoverable.  Deleting an unknown address
// succeeds.
func (r *Registry) DeleteAddress(ctx context.Context, addr string) error {
	ctx, cancel := r.withDeadline(ctx)
	defer cancel()
	reply := make(chan *Unit, 1)
	err := r.submit(ctx, func(r *Registry) {
		u := r.units[addr]
		// Purge now; the termination watcher's delete becomes a no-op.
		delete(r.units, addr)
		reply <- u
	})
	if err != nil {
		return err
	}
	select {
	case u := <-reply:
		if u == nil {
			return nil
		}
		return u.Stop(ctx)
	case <-ctx.Done():
		return ErrTimeout
	}
}

// lookup resolves addr to its live unit.
func (r *Registry) lookup(ctx context.Context, addr string) (*Unit, error) {
	reply := make(chan *Unit, 1)
	if err := r.submit(ctx, func(r *Registry) { reply <- r.units[addr] }); err != nil {
		return nil, err
	}
	select {
	case u := <-reply:
		if u == nil {
			return nil, ErrNoMailbox
		}
		return u, nil
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// CreateMessage stores a message in the mailbox for addr, returning the
// generated message ID.
func (r *Registry) CreateMessage(ctx context.Context, addr, from, subject, body string) (string, error) {
	ctx, cancel := r.withDeadline(ctx)
	defer cancel()
	u, err := r.lookup(ctx, addr)
	if err != nil {
		return "", err
	}
	return u.CreateMessage(ctx, from, subject, body)
}

// ListMessages returns one page of summaries for addr, most recent first.
// A non-positive size falls back to the configured default.  The returned
// cursor resumes after the last summary; it is empty once the mailbox is
// exhausted.
func (r *Registry) ListMessages(ctx context.Context, addr, cursor string, size int) (*Page, error) {
	ctx, cancel := r.withDeadline(ctx)
	defer cancel()
	if size < 1 {
		size = r.conf.DefaultPageSize
	}
	u, err := r.lookup(ctx, addr)
	if err != nil {
		return nil, err
	}
	return u.List(ctx, cursor, size)
}

// GetMessage returns the full message with the given ID from addr.
func (r *Registry) GetMessage(ctx context.Context, addr, id string) (*message.Message, error) {
	ctx, cancel := r.withDeadline(ctx)
	defer cancel()
	u, err := r.lookup(ctx, addr)
	if err != nil {
		return nil, err
	}
	return u.Get(ctx, id)
}

// RemoveMessage deletes the message with the given ID from addr.  Removing
// an unknown ID succeeds.
func (r *Registry) RemoveMessage(ctx context.Context, addr, id string) error {
	ctx, cancel := r.withDeadline(ctx)
	defer cancel()
	u, err := r.lookup(ctx, addr)
	if err != nil {
		return err
	}
	return u.Remove(ctx, id)
}
