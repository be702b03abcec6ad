package mailbox

import "fmt"

// idWidth keeps message IDs fixed width so that lexical order always matches
// numeric recency; 20 digits holds a nanosecond Unix reading past year 2200.
const idWidth = 20

// makeID encodes a nanosecond clock reading as a message ID.
func makeID(nanos int64) string {
	return fmt.Sprintf("%0*d", idWidth, nanos)
}
