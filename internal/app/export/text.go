// Package export renders the current show for sharing and printing.
package export

import (
	"fmt"
	"strings"

	"github.com/osa030/showtime/internal/domain/duration"
	"github.com/osa030/showtime/internal/domain/setlist"
	"github.com/osa030/showtime/internal/domain/validation"
)

// Mode selects the text export layout.
type Mode string

const (
	// ModeBasic lists titles only.
	ModeBasic Mode = "basic"
	// ModeFull adds authors, durations, a header and the gap note.
	ModeFull Mode = "full"
)

// UnknownTitle stands in for entries whose song is no longer in the library.
const UnknownTitle = "Unknown item"

// DefaultShowName is used when the show has no name.
const DefaultShowName = "Setlist"

// ParseMode parses a mode name. Empty means full.
func ParseMode(v string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(v))) {
	case ModeBasic:
		return ModeBasic, nil
	case ModeFull, "":
		return ModeFull, nil
	default:
		return "", validation.Newf("unknown export mode %q", v)
	}
}

// Sheet is a resolved show ready for rendering.
type Sheet struct {
	ShowName     string
	Rows         []setlist.Row
	TotalSeconds int
	GapSeconds   int
}

// NewSheet resolves entries against lookup.
func NewSheet(showName string, entries []setlist.Entry, lookup setlist.Lookup, gapSeconds int) Sheet {
	name := strings.TrimSpace(showName)
	if name == "" {
		name = DefaultShowName
	}
	return Sheet{
		ShowName:     name,
		Rows:         setlist.Resolve(entries, lookup, gapSeconds),
		TotalSeconds: setlist.TotalSeconds(entries, lookup, gapSeconds),
		GapSeconds:   gapSeconds,
	}
}

// Total returns the formatted show total.
func (s Sheet) Total() string {
	return duration.Format(s.TotalSeconds)
}

// GapNote describes the pause counted between entries.
func (s Sheet) GapNote() string {
	return fmt.Sprintf("+%d sec. between items", s.GapSeconds)
}

// Text renders the sheet as plain text.
//
// Basic:
//
//	1. Title
//
//	Total: 03:55
//
// Full:
//
//	Show: Name
//
//	1. Title - Authors [03:00]
//
//	Total: 03:55
//	+10 sec. between items
func Text(s Sheet, mode Mode) string {
	var b strings.Builder
	if mode == ModeFull {
		fmt.Fprintf(&b, "Show: %s\n\n", s.ShowName)
	}

	for _, r := range s.Rows {
		fmt.Fprintf(&b, "%d. %s", r.Position, r.Title(UnknownTitle))
		if mode == ModeFull {
			if r.Known && !r.Song.IsSpeech() && strings.TrimSpace(r.Song.Authors) != "" {
				fmt.Fprintf(&b, " - %s", r.Song.Authors)
			}
			fmt.Fprintf(&b, " [%s]", r.Duration)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nTotal: %s", s.Total())
	if mode == ModeFull && len(s.Rows) > 1 {
		fmt.Fprintf(&b, "\n%s", s.GapNote())
	}
	return b.String()
}
