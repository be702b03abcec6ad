// Package model contains the JSON wire shapes for REST API v1.
package model

import "time"

// JSONMailboxV1 is returned when a mailbox address is created.
type JSONMailboxV1 struct {
	Mailbox string `json:"mailbox"`
}

// JSONNewMessageV1 is the request body for posting a message into a mailbox.
type JSONNewMessageV1 struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// JSONMessageIDV1 is returned when a message is created.
type JSONMessageIDV1 struct {
	ID string `json:"id"`
}

// JSONMessageHeaderV1 contains the summary data for a message.
type JSONMessageHeaderV1 struct {
	Mailbox      string    `json:"mailbox"`
	ID           string    `json:"id"`
	From         string    `json:"from"`
	Subject      string    `json:"subject"`
	Date         time.Time `json:"date"`
	PosixSeconds int64     `json:"posix-seconds"`
}

// JSONMessageListV1 is one page of mailbox contents.  Cursor is null once
// the mailbox is exhausted; otherwise it resumes the traversal after the
// last header in Messages.
type JSONMessageListV1 struct {
	Cursor   *string                `json:"cursor"`
	Messages []*JSONMessageHeaderV1 `json:"messages"`
}

// JSONMessageV1 contains the same data as the header plus the message body.
type JSONMessageV1 struct {
	Mailbox      string    `json:"mailbox"`
	ID           string    `json:"id"`
	From         string    `json:"from"`
	Subject      string    `json:"subject"`
	Date         time.Time `json:"date"`
	PosixSeconds int64     `json:"posix-seconds"`
	Body         string    `json:"body"`
}
