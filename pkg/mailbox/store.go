package mailbox

import (
	"github.com/google/btree"

	"github.com/inbucket/mailbag/pkg/message"
)

// btreeDegree sizes tree nodes for mailboxes holding up to a few thousand
// messages.
const btreeDegree = 16

// tstore is the ordered message store for a single mailbox, keyed by message
// ID.  It is owned by exactly one Unit and must only be touched from that
// Unit's run loop; no lock guards it.
type tstore struct {
	tree *btree.BTreeG[*message.Message]
}

func newStore() *tstore {
	return &tstore{
		tree: btree.NewG(btreeDegree, func(a, b *message.Message) bool {
			return a.ID < b.ID
		}),
	}
}

// key builds a lookup pivot for the given ID.
func key(id string) *message.Message {
	return &message.Message{Summary: message.Summary{ID: id}}
}

// insert adds m to the store, replacing any entry with the same ID.
func (s *tstore) insert(m *message.Message) {
	s.tree.ReplaceOrInsert(m)
}

// get returns the message with the given ID, or nil.
func (s *tstore) get(id string) *message.Message {
	m, ok := s.tree.Get(key(id))
	if !ok {
		return nil
	}
	return m
}

// remove deletes the message with the given ID, reporting whether it was
// present.
func (s *tstore) remove(id string) bool {
	_, ok := s.tree.Delete(key(id))
	return ok
}

// count returns the number of stored messages.
func (s *tstore) count() int {
	return s.tree.Len()
}

// scan returns up to limit summaries in descending ID order, most recent
// first.  A non-empty cursor starts traversal immediately after that ID; a
// cursor ID no longer in the tree starts from the position it would occupy,
// so pages survive deletes racing between requests.
func (s *tstore) scan(cursor string, limit int) []*message.Summary {
	// limit is caller-controlled; never preallocate past the store size.
	out := make([]*message.Summary, 0, min(limit, s.tree.Len()))
	iter := func(m *message.Message) bool {
		if m.ID == cursor {
			// The cursor entry was delivered on a previous page.
			return true
		}
		out = append(out, &m.Summary)
		return len(out) < limit
	}
	if cursor == "" {
		s.tree.Descend(iter)
	} else {
		s.tree.DescendLessOrEqual(key(cursor), iter)
	}
	return out
}
