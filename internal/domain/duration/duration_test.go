package duration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "mm:ss", input: "03:05", expected: 185},
		{name: "unpadded mm:ss", input: "3:05", expected: 185},
		{name: "hh:mm:ss", input: "1:05:20", expected: 3920},
		{name: "packed three digits", input: "305", expected: 185},
		{name: "packed 112", input: "112", expected: 72},
		{name: "packed two digits", input: "45", expected: 45},
		{name: "packed four digits", input: "7205", expected: 4325},
		{name: "packed seconds above 59 are kept", input: "199", expected: 159},
		{name: "empty", input: "", expected: 0},
		{name: "letters only", input: "abc", expected: 0},
		{name: "noise is stripped", input: " 3m:05s ", expected: 185},
		{name: "trailing colon reads as zero seconds", input: "3:", expected: 180},
		{name: "four parts", input: "1:2:3:4", expected: 0},
		{name: "lone colon", input: ":", expected: 0},
		{name: "minus sign is discarded", input: "-305", expected: 185},
		{name: "overflowing digits", input: "99999999999999999999999", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Parse(tt.input))
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int
		expected string
	}{
		{name: "zero", seconds: 0, expected: "00:00"},
		{name: "minutes and seconds", seconds: 185, expected: "03:05"},
		{name: "with hours", seconds: 3920, expected: "01:05:20"},
		{name: "exactly one hour", seconds: 3600, expected: "01:00:00"},
		{name: "just under an hour", seconds: 3599, expected: "59:59"},
		{name: "negative", seconds: -5, expected: "00:00"},
		{name: "out of range seconds are normalized", seconds: 159, expected: "02:39"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.seconds))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "03:05", Normalize("305"))
	assert.Equal(t, "02:39", Normalize("199"))
	assert.Equal(t, "00:00", Normalize("abc"))
	assert.Equal(t, "01:05:20", Normalize("1:5:20"))
}

func TestRoundTrip(t *testing.T) {
	for s := 0; s <= 3*3600+5; s++ {
		if got := Parse(Format(s)); got != s {
			t.Fatalf("Parse(Format(%d)) = %d", s, got)
		}
	}
	for _, s := range []int{100 * 3600, 123456789} {
		assert.Equal(t, s, Parse(Format(s)))
	}
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero(""))
	assert.True(t, IsZero("00:00"))
	assert.False(t, IsZero("00:01"))
}
