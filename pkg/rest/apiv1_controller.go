package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/inbucket/mailbag/pkg/mailbox"
	"github.com/inbucket/mailbag/pkg/message"
	"github.com/inbucket/mailbag/pkg/rest/model"
	"github.com/inbucket/mailbag/pkg/server/web"
)

// MailboxCreateV1 allocates a new mailbox address.
func MailboxCreateV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	addr, err := ctx.Registry.CreateAddress(req.Context())
	if err != nil {
		return fmt.Errorf("CreateAddress failed: %w", err)
	}
	return web.RenderJSON(w, &model.JSONMailboxV1{Mailbox: addr})
}

// MailboxDeleteV1 destroys a mailbox and all of its messages.  Deleting an
// unknown mailbox succeeds.
func MailboxDeleteV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	// Don't have to validate name isn't empty, Gorilla returns 404
	name := ctx.Vars["name"]
	if err := ctx.Registry.DeleteAddress(req.Context(), name); err != nil {
		return fmt.Errorf("DeleteAddress(%q) failed: %w", name, err)
	}
	return web.RenderJSON(w, "OK")
}

// MessageCreateV1 posts a new message into a mailbox.
func MessageCreateV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	name := ctx.Vars["name"]
	in := &model.JSONNewMessageV1{}
	if err := json.NewDecoder(req.Body).Decode(in); err != nil {
		http.Error(w, "Malformed JSON request body", http.StatusBadRequest)
		return nil
	}
	id, err := ctx.Registry.CreateMessage(req.Context(), name, in.From, in.Subject, in.Body)
	if errors.Is(err, mailbox.ErrNoMailbox) {
		http.Error(w, "Mailbox not found", http.StatusNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("CreateMessage(%q) failed: %w", name, err)
	}
	return web.RenderJSON(w, &model.JSONMessageIDV1{ID: id})
}

// MailboxListV1 renders one page of messages in a mailbox, most recent
// first.  Optional query parameters: cursor resumes a prior traversal, size
// overrides the default page size.  A missing, non-numeric or non-positive
// size falls back to the configured default.
func MailboxListV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	name := ctx.Vars["name"]
	cursor := req.URL.Query().Get("cursor")
	size, _ := strconv.Atoi(req.URL.Query().Get("size"))

	page, err := ctx.Registry.ListMessages(req.Context(), name, cursor, size)
	if errors.Is(err, mailbox.ErrNoMailbox) {
		http.Error(w, "Mailbox not found", http.StatusNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("ListMessages(%q) failed: %w", name, err)
	}

	jlist := &model.JSONMessageListV1{
		Messages: make([]*model.JSONMessageHeaderV1, len(page.Messages)),
	}
	if page.Cursor != "" {
		jlist.Cursor = &page.Cursor
	}
	for i, msg := range page.Messages {
		jlist.Messages[i] = makeJSONHeader(msg)
	}
	return web.RenderJSON(w, jlist)
}

// MessageShowV1 renders a particular message from a mailbox.
func MessageShowV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	name := ctx.Vars["name"]
	id := ctx.Vars["id"]
	msg, err := ctx.Registry.GetMessage(req.Context(), name, id)
	if errors.Is(err, mailbox.ErrNoMailbox) {
		http.Error(w, "Mailbox not found", http.StatusNotFound)
		return nil
	}
	if errors.Is(err, mailbox.ErrNotExist) {
		http.Error(w, "Message not found", http.StatusNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("GetMessage(%q) failed: %w", id, err)
	}
	return web.RenderJSON(w,
		&model.JSONMessageV1{
			Mailbox:      msg.Mailbox,
			ID:           msg.ID,
			From:         msg.From,
			Subject:      msg.Subject,
			Date:         msg.Date,
			PosixSeconds: msg.Date.Unix(),
			Body:         msg.Body,
		})
}

// MessageDeleteV1 removes a particular message from a mailbox.  Deleting an
// unknown message ID succeeds.
func MessageDeleteV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	name := ctx.Vars["name"]
	id := ctx.Vars["id"]
	err = ctx.Registry.RemoveMessage(req.Context(), name, id)
	if errors.Is(err, mailbox.ErrNoMailbox) {
		http.Error(w, "Mailbox not found", http.StatusNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("RemoveMessage(%q) failed: %w", id, err)
	}
	return web.RenderJSON(w, "OK")
}

// makeJSONHeader populates a wire header from a message summary.
func makeJSONHeader(msg *message.Summary) *model.JSONMessageHeaderV1 {
	return &model.JSONMessageHeaderV1{
		Mailbox:      msg.Mailbox,
		ID:           msg.ID,
		From:         msg.From,
		Subject:      msg.Subject,
		Date:         msg.Date,
		PosixSeconds: msg.Date.Unix(),
	}
}
