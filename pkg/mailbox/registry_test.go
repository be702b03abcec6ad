package mailbox_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inbucket/mailbag/pkg/config"
	"github.com/inbucket/mailbag/pkg/mailbox"
	"github.com/inbucket/mailbag/pkg/message"
	"github.com/inbucket/mailbag/pkg/msghub"
)

func testConf() config.Mailbox {
	return config.Mailbox{
		Domain:          "example.com",
		LocalPrefix:     "mb",
		DefaultPageSize: 20,
		OpTimeout:       5 * time.Second,
	}
}

// testRegistry starts a registry whose control loop stops with the test.
func testRegistry(t *testing.T, hub *msghub.Hub) *mailbox.Registry {
	t.Helper()
	reg, err := mailbox.New(testConf(), hub)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go reg.Start(ctx)
	return reg
}

// createMessages posts n messages with subjects subject-1..subject-n.
func createMessages(t *testing.T, reg *mailbox.Registry, addr string, n int) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		subject := fmt.Sprintf("subject-%v", i+1)
		id, err := reg.CreateMessage(ctx, addr, "from@example.com", subject, "body of "+subject)
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func TestNewRejectsBadPageSize(t *testing.T) {
	conf := testConf()
	conf.DefaultPageSize = 0
	_, err := mailbox.New(conf, nil)
	require.Error(t, err)

	conf.DefaultPageSize = -5
	_, err = mailbox.New(conf, nil)
	require.Error(t, err)
}

func TestCreateAddressUnique(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 10; i++ {
		addr, err := reg.CreateAddress(ctx)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(addr, "mb"), "address %q missing local prefix", addr)
		assert.True(t, strings.HasSuffix(addr, "@example.com"), "address %q missing domain", addr)
		_, dup := seen[addr]
		assert.False(t, dup, "address %q issued twice", addr)
		seen[addr] = struct{}{}
	}
}

func TestListEmptyMailbox(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()
	addr, err := reg.CreateAddress(ctx)
	require.NoError(t, err)

	page, err := reg.ListMessages(ctx, addr, "", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.Empty(t, page.Cursor)
}

// Scenario: 5 messages fit into one page of 10 with no continuation cursor.
func TestListSinglePage(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()
	addr, err := reg.CreateAddress(ctx)
	require.NoError(t, err)
	createMessages(t, reg, addr, 5)

	page, err := reg.ListMessages(ctx, addr, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 5)
	assert.Empty(t, page.Cursor)

	// Most recent first, timestamps non-increasing.
	assert.Equal(t, "subject-5", page.Messages[0].Subject)
	assert.Equal(t, "subject-1", page.Messages[4].Subject)
	for i := 1; i < len(page.Messages); i++ {
		newer, older := page.Messages[i-1], page.Messages[i]
		assert.False(t, newer.Date.Before(older.Date))
		assert.Greater(t, newer.ID, older.ID)
	}
}

func TestListDefaultSize(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()
	addr, err := reg.CreateAddress(ctx)
	require.NoError(t, err)
	createMessages(t, reg, addr, 25)

	// Non-positive sizes normalize to the configured default of 20.
	for _, size := range []int{0, -3} {
		page, err := reg.ListMessages(ctx, addr, "", size)
		require.NoError(t, err)
		assert.Len(t, page.Messages, 20)
		assert.NotEmpty(t, page.Cursor)
	}
}

// An absurdly large page size returns every message and leaves the mailbox
// intact.
func TestListHugeSize(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()
	addr, err := reg.CreateAddress(ctx)
	require.NoError(t, err)
	ids := createMessages(t, reg, addr, 3)

	page, err := reg.ListMessages(ctx, addr, "", 1<<55)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 3)
	assert.Empty(t, page.Cursor)

	// The mailbox and its contents must survive the oversized request.
	msg, err := reg.GetMessage(ctx, addr, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "subject-1", msg.Subject)
}

// An expired deadline surfaces ErrTimeout and the operation never runs.
func TestOperationTimeout(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()
	addr, err := reg.CreateAddress(ctx)
	require.NoError(t, err)

	expired, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
	defer cancel()

	_, err = reg.CreateMessage(expired, addr, "from@example.com", "tsub", "tbody")
	assert.ErrorIs(t, err, mailbox.ErrTimeout)
	_, err = reg.ListMessages(expired, addr, "", 5)
	assert.ErrorIs(t, err, mailbox.ErrTimeout)
	_, err = reg.GetMessage(expired, addr, "00000000000000000042")
	assert.ErrorIs(t, err, mailbox.ErrTimeout)
	assert.ErrorIs(t, reg.RemoveMessage(expired, addr, "00000000000000000042"), mailbox.ErrTimeout)
	_, err = reg.CreateAddress(expired)
	assert.ErrorIs(t, err, mailbox.ErrTimeout)

	// The timed-out create left no message behind.
	page, err := reg.ListMessages(ctx, addr, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
}

// Scenario: chaining pages of 5 over 48 messages yields each message exactly
// once across 10 pages.
func TestListPagination(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()
	addr, err := reg.CreateAddress(ctx)
	require.NoError(t, err)
	created := createMessages(t, reg, addr, 48)

	seen := make(map[string]int)
	pages := 0
	cursor := ""
	for {
		page, err := reg.ListMessages(ctx, addr, cursor, 5)
		require.NoError(t, err)
		pages++
		for _, m := range page.Messages {
			seen[m.ID]++
		}
		if page.Cursor == "" {
			assert.Less(t, len(page.Messages), 5, "final page must come up short")
			break
		}
		require.Len(t, page.Messages, 5)
		assert.Equal(t, page.Messages[4].ID, page.Cursor)
		cursor = page.Cursor
	}

	assert.Equal(t, 10, pages)
	assert.Len(t, seen, 48)
	for _, id := range created {
		assert.Equal(t, 1, seen[id], "message %v delivered wrong number of times", id)
	}
}

// When the message count is an exact multiple of the page size, the page
// after the last full one is empty with no cursor.
func TestListPaginationExactMultiple(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()
	addr, err := reg.CreateAddress(ctx)
	require.NoError(t, err)
	createMessages(t, reg, addr, 10)

	page1, err := reg.ListMessages(ctx, addr, "", 5)
	require.NoError(t, err)
	require.Len(t, page1.Messages, 5)
	require.NotEmpty(t, page1.Cursor)

	page2, err := reg.ListMessages(ctx, addr, page1.Cursor, 5)
	require.NoError(t, err)
	require.Len(t, page2.Messages, 5)
	require.NotEmpty(t, page2.Cursor)

	page3, err := reg.ListMessages(ctx, addr, page2.Cursor, 5)
	require.NoError(t, err)
	assert.Empty(t, page3.Messages)
	assert.Empty(t, page3.Cursor)
}

// Deleting the cursor message between page requests must not break the
// traversal.
func TestListCursorSurvivesDelete(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()
	addr, err := reg.CreateAddress(ctx)
	require.NoError(t, err)
	createMessages(t, reg, addr, 9)

	page1, err := reg.ListMessages(ctx, addr, "", 3)
	require.NoError(t, err)
	require.Len(t, page1.Messages, 3)
	require.NoError(t, reg.RemoveMessage(ctx, addr, page1.Cursor))

	page2, err := reg.ListMessages(ctx, addr, page1.Cursor, 3)
	require.NoError(t, err)
	require.Len(t, page2.Messages, 3)
	assert.Greater(t, page1.Messages[2].ID, page2.Messages[0].ID)
}

// Scenario: fetch a wide page of a large mailbox, pick an arbitrary summary,
// and confirm the full message matches its creation request.
func TestGetMessageMatchesCreation(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()
	addr, err := reg.CreateAddress(ctx)
	require.NoError(t, err)
	createMessages(t, reg, addr, 123)

	page, err := reg.ListMessages(ctx, addr, "", 50)
	require.NoError(t, err)
	require.Len(t, page.Messages, 50)

	want := page.Messages[25]
	msg, err := reg.GetMessage(ctx, addr, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.Subject, msg.Subject)
	assert.Equal(t, "body of "+want.Subject, msg.Body)
	assert.Equal(t, addr, msg.Mailbox)
}

func TestGetMessageNotExist(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()
	addr, err := reg.CreateAddress(ctx)
	require.NoError(t, err)
	createMessages(t, reg, addr, 3)

	_, err = reg.GetMessage(ctx, addr, "00000000000000000042")
	assert.ErrorIs(t, err, mailbox.ErrNotExist)
}

func TestRemoveMessage(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()
	addr, err := reg.CreateAddress(ctx)
	require.NoError(t, err)
	ids := createMessages(t, reg, addr, 3)

	require.NoError(t, reg.RemoveMessage(ctx, addr, ids[1]))
	_, err = reg.GetMessage(ctx, addr, ids[1])
	assert.ErrorIs(t, err, mailbox.ErrNotExist)

	page, err := reg.ListMessages(ctx, addr, "", 10)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 2)

	// Removing an unknown ID succeeds.
	assert.NoError(t, reg.RemoveMessage(ctx, addr, ids[1]))
	assert.NoError(t, reg.RemoveMessage(ctx, addr, "00000000000000000042"))
}

func TestOperationsOnUnknownMailbox(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()

	_, err := reg.CreateMessage(ctx, "nobody@example.com", "f", "s", "b")
	assert.ErrorIs(t, err, mailbox.ErrNoMailbox)
	_, err = reg.ListMessages(ctx, "nobody@example.com", "", 0)
	assert.ErrorIs(t, err, mailbox.ErrNoMailbox)
	_, err = reg.GetMessage(ctx, "nobody@example.com", "1")
	assert.ErrorIs(t, err, mailbox.ErrNoMailbox)
	err = reg.RemoveMessage(ctx, "nobody@example.com", "1")
	assert.ErrorIs(t, err, mailbox.ErrNoMailbox)
}

func TestDeleteAddress(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()
	addr, err := reg.CreateAddress(ctx)
	require.NoError(t, err)
	createMessages(t, reg, addr, 3)

	require.NoError(t, reg.DeleteAddress(ctx, addr))

	// Every subsequent operation observes a missing mailbox.
	_, err = reg.CreateMessage(ctx, addr, "f", "s", "b")
	assert.ErrorIs(t, err, mailbox.ErrNoMailbox)
	_, err = reg.ListMessages(ctx, addr, "", 0)
	assert.ErrorIs(t, err, mailbox.ErrNoMailbox)
	_, err = reg.GetMessage(ctx, addr, "1")
	assert.ErrorIs(t, err, mailbox.ErrNoMailbox)

	// Deleting again, or deleting an address never issued, still succeeds.
	assert.NoError(t, reg.DeleteAddress(ctx, addr))
	assert.NoError(t, reg.DeleteAddress(ctx, "nobody@example.com"))
}

// Concurrent creators against one mailbox must each see their message
// stored exactly once.
func TestConcurrentCreates(t *testing.T) {
	reg := testRegistry(t, nil)
	ctx := context.Background()
	addr, err := reg.CreateAddress(ctx)
	require.NoError(t, err)

	creators := 5
	perCreator := 20
	idChan := make(chan string, creators*perCreator)
	wg := &sync.WaitGroup{}
	wg.Add(creators)
	for c := 0; c < creators; c++ {
		go func(c int) {
			defer wg.Done()
			for i := 0; i < perCreator; i++ {
				id, err := reg.CreateMessage(ctx, addr, "from@example.com",
					fmt.Sprintf("c%v-m%v", c, i), "body")
				if err != nil {
					t.Error(err)
					return
				}
				idChan <- id
			}
		}(c)
	}
	wg.Wait()
	close(idChan)

	seen := make(map[string]struct{})
	for id := range idChan {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate message ID %v", id)
		seen[id] = struct{}{}
	}
	require.Len(t, seen, creators*perCreator)

	page, err := reg.ListMessages(ctx, addr, "", creators*perCreator+1)
	require.NoError(t, err)
	assert.Len(t, page.Messages, creators*perCreator)
	assert.Empty(t, page.Cursor)
}

// hubListener collects summaries broadcast by the monitor hub.
type hubListener struct {
	c chan message.Summary
}

func (l *hubListener) Receive(msg message.Summary) error {
	l.c <- msg
	return nil
}

func TestCreateMessageBroadcasts(t *testing.T) {
	hub := msghub.New(5)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Start(ctx)
	reg := testRegistry(t, hub)

	l := &hubListener{c: make(chan message.Summary, 10)}
	hub.AddListener(l)
	hub.Sync()

	addr, err := reg.CreateAddress(ctx)
	require.NoError(t, err)
	id, err := reg.CreateMessage(ctx, addr, "from@example.com", "tsub", "tbody")
	require.NoError(t, err)

	select {
	case got := <-l.c:
		assert.Equal(t, addr, got.Mailbox)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "tsub", got.Subject)
	case <-time.After(time.Second):
		t.Error("Timeout waiting for hub broadcast")
	}
}
