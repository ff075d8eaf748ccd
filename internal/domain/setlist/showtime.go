package setlist

import (
	"github.com/osa030/showtime/internal/domain/duration"
	"github.com/osa030/showtime/internal/domain/song"
)

// DefaultGapSeconds is the pause counted between two consecutive entries.
const DefaultGapSeconds = 10

// EffectiveDuration returns the duration text that counts for e:
// the override, else the referenced song's duration, else zero.
func EffectiveDuration(e Entry, lookup Lookup) string {
	if o := e.Override(); o != "" {
		return o
	}
	if lookup != nil {
		if s, ok := lookup(e.SongID); ok && s.Duration != "" {
			return s.Duration
		}
	}
	return duration.Zero
}

// TotalSeconds sums effective durations plus one gap between each pair of entries.
func TotalSeconds(entries []Entry, lookup Lookup, gapSeconds int) int {
	total := 0
	for _, e := range entries {
		total += duration.Parse(EffectiveDuration(e, lookup))
	}
	if n := len(entries); n > 1 {
		total += (n - 1) * gapSeconds
	}
	return total
}

// Total is TotalSeconds rendered in canonical form.
func Total(entries []Entry, lookup Lookup, gapSeconds int) string {
	return duration.Format(TotalSeconds(entries, lookup, gapSeconds))
}

// Row is an entry resolved against the library for display or export.
type Row struct {
	Position int
	Entry    Entry
	Song     song.Song
	Known    bool
	Duration string
	Seconds  int
	// StartsAt is the offset from show start, gaps included.
	StartsAt int
}

// Title returns the song title, or fallback for dangling references.
func (r Row) Title(fallback string) string {
	if !r.Known {
		return fallback
	}
	return r.Song.Title
}

// Resolve produces one Row per entry with running start offsets.
func Resolve(entries []Entry, lookup Lookup, gapSeconds int) []Row {
	rows := make([]Row, len(entries))
	offset := 0
	for i, e := range entries {
		var s song.Song
		known := false
		if lookup != nil {
			s, known = lookup(e.SongID)
		}
		d := EffectiveDuration(e, lookup)
		secs := duration.Parse(d)
		rows[i] = Row{
			Position: i + 1,
			Entry:    e,
			Song:     s,
			Known:    known,
			Duration: d,
			Seconds:  secs,
			StartsAt: offset,
		}
		offset += secs + gapSeconds
	}
	return rows
}
