package console

import (
	"strconv"
	"strings"
)

// FormatWon formats an integer amount as a string like "12,500 won".
func FormatWon(amount int64) string {
	neg := amount < 0
	s := strconv.FormatInt(amount, 10)
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	// digits + separators + sign + suffix
	b.Grow(len(s) + len(s)/3 + 5)
	if neg {
		b.WriteByte('-')
	}

	// Insert separators from the left.
	rem := len(s) % 3
	if rem == 0 {
		rem = 3
	}
	b.WriteString(s[:rem])
	for i := rem; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	b.WriteString(" won")

	return b.String()
}
