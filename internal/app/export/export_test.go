package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/showtime/internal/domain/setlist"
	"github.com/osa030/showtime/internal/domain/song"
	"github.com/osa030/showtime/internal/domain/validation"
)

func ptr(s string) *string { return &s }

func scenario() ([]setlist.Entry, setlist.Lookup) {
	library := []song.Song{
		{ID: "a", Title: "Zorro", Authors: "Diego", Duration: "03:00", Type: song.TypeSong},
		{ID: "b", Title: "Intro", Authors: "Host", Duration: "00:30", Type: song.TypeSpeech},
	}
	entries := []setlist.Entry{
		{InstanceID: "1", SongID: "a"},
		{InstanceID: "2", SongID: "b", OverrideDuration: ptr("00:45")},
	}
	return entries, setlist.LookupFrom(song.Index(library))
}

func TestText(t *testing.T) {
	entries, lookup := scenario()

	tests := []struct {
		name     string
		showName string
		entries  []setlist.Entry
		mode     Mode
		want     string
	}{
		{
			name:    "basic",
			entries: entries,
			mode:    ModeBasic,
			want:    "1. Zorro\n2. Intro\n\nTotal: 03:55",
		},
		{
			name:     "full",
			showName: "Gala 21hs",
			entries:  entries,
			mode:     ModeFull,
			want: "Show: Gala 21hs\n\n" +
				"1. Zorro - Diego [03:00]\n" +
				"2. Intro [00:45]\n" +
				"\nTotal: 03:55\n+10 sec. between items",
		},
		{
			name:    "full single entry has no gap note",
			entries: entries[:1],
			mode:    ModeFull,
			want:    "Show: Setlist\n\n1. Zorro - Diego [03:00]\n\nTotal: 03:00",
		},
		{
			name:    "dangling reference",
			entries: []setlist.Entry{{InstanceID: "9", SongID: "gone"}},
			mode:    ModeFull,
			want:    "Show: Setlist\n\n1. Unknown item [00:00]\n\nTotal: 00:00",
		},
		{
			name:    "empty show",
			entries: nil,
			mode:    ModeBasic,
			want:    "\nTotal: 00:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := NewSheet(tt.showName, tt.entries, lookup, setlist.DefaultGapSeconds)
			assert.Equal(t, tt.want, Text(sheet, tt.mode))
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("BASIC")
	require.NoError(t, err)
	assert.Equal(t, ModeBasic, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeFull, m)

	_, err = ParseMode("pdf")
	assert.True(t, validation.Is(err))
}

func TestHTML(t *testing.T) {
	entries, lookup := scenario()
	entries = append(entries, setlist.Entry{InstanceID: "3", SongID: "gone"})
	sheet := NewSheet("<Gala>", entries, lookup, setlist.DefaultGapSeconds)

	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, sheet))
	out := buf.String()

	assert.Contains(t, out, "<title>&lt;Gala&gt;</title>")
	assert.Contains(t, out, "<b>Zorro</b>")
	assert.Contains(t, out, `<tr class="speech">`)
	assert.Contains(t, out, "<b>Unknown item</b>")
	// Zorro 180s + gap, Intro 45s + gap
	assert.Contains(t, out, "<td>03:10</td>")
	assert.Contains(t, out, "<td>04:05</td>")
	assert.Contains(t, out, "+10 sec. between items, included in the total")
	assert.Contains(t, out, "Total: 04:05")
}
