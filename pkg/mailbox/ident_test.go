package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeIDFixedWidth(t *testing.T) {
	assert.Len(t, makeID(0), idWidth)
	assert.Len(t, makeID(999), idWidth)
	assert.Len(t, makeID(1_700_000_000_000_000_000), idWidth)
}

// Lexical order must match numeric order even when readings differ in digit
// count.
func TestMakeIDLexicalOrder(t *testing.T) {
	readings := []int64{1, 9, 10, 99, 100, 999_999_999, 1_000_000_000, 1_700_000_000_000_000_000}
	for i := 1; i < len(readings); i++ {
		older := makeID(readings[i-1])
		newer := makeID(readings[i])
		assert.Less(t, older, newer, "makeID(%v) should sort before makeID(%v)",
			readings[i-1], readings[i])
	}
}
