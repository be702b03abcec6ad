package mailbox

import "errors"

var (
	// ErrNoMailbox indicates the address has no live mailbox.
	ErrNoMailbox = errors.New("mailbox does not exist")

	// ErrNotExist indicates the requested message does not exist.
	ErrNotExist = errors.New("message does not exist")

	// ErrTimeout indicates a mailbox operation did not reply before the
	// caller's deadline.  The queued operation may still complete inside the
	// unit; it is not retried.
	ErrTimeout = errors.New("mailbox operation timed out")

	// ErrShutdown indicates the registry control loop has exited.
	ErrShutdown = errors.New("mailbox registry has shut down")
)
