// Package message contains the message value types exchanged with the mailbox core.
package message

import "time"

// Summary holds the list-view fields of a stored message.  Immutable once
// created.
type Summary struct {
	Mailbox string
	ID      string
	From    string
	Subject string
	Date    time.Time
}

// Message is a stored message: its summary plus the body text.
type Message struct {
	Summary
	Body string
}
