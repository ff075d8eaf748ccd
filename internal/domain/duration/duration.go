// Package duration converts human-entered show durations to seconds and back.
//
// Accepted input is lenient: anything that is not a digit or a colon is
// discarded first. "3:05", "03:05" and "305" all mean three minutes five
// seconds; "1:05:20" carries hours. Canonical output is "mm:ss", or
// "hh:mm:ss" once the value reaches one hour.
package duration

import (
	"fmt"
	"strconv"
	"strings"
)

// Zero is the canonical representation of an empty duration.
const Zero = "00:00"

// Parse returns the number of seconds represented by text.
// Empty or unparseable input yields 0.
func Parse(text string) int {
	clean := sanitize(text)
	if clean == "" {
		return 0
	}

	if strings.Contains(clean, ":") {
		return parseColon(clean)
	}

	// Packed digits: the last two digits are seconds, the rest minutes.
	// Seconds are not range checked: "199" is 1 min 99 s.
	v, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0
	}
	return clamp(v/100*60 + v%100)
}

func parseColon(clean string) int {
	raw := strings.Split(clean, ":")
	parts := make([]int64, len(raw))
	for i, p := range raw {
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return 0
		}
		parts[i] = n
	}

	switch len(parts) {
	case 2:
		return clamp(parts[0]*60 + parts[1])
	case 3:
		return clamp(parts[0]*3600 + parts[1]*60 + parts[2])
	default:
		return 0
	}
}

// Format renders seconds as "mm:ss" or "hh:mm:ss".
func Format(seconds int) string {
	if seconds < 0 {
		return Zero
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Normalize re-renders text in canonical form.
func Normalize(text string) string {
	return Format(Parse(text))
}

// IsZero reports whether text parses to no time at all.
func IsZero(text string) bool {
	return Parse(text) == 0
}

func sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == ':' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// clamp maps overflowed arithmetic to zero.
func clamp(v int64) int {
	if v < 0 || v > int64(^uint(0)>>1) {
		return 0
	}
	return int(v)
}
