// Package setlist provides the live show setlist, its presets and the
// show-time calculation.
package setlist

import (
	"time"

	"github.com/osa030/showtime/internal/domain/song"
)

// Collection and document names of the shared show state.
const (
	StateCollection  = "app_state"
	CurrentSetlistID = "current_setlist"
	PresetCollection = "presets"
)

// Entry is one placement of a library item in the show.
// The same song may appear several times, each with its own InstanceID.
type Entry struct {
	InstanceID       string  `json:"instanceId" mapstructure:"instanceId"`
	SongID           string  `json:"songId" mapstructure:"songId"`
	OverrideDuration *string `json:"overrideDuration" mapstructure:"overrideDuration"`
}

// Override returns the per-show duration, or "" when none is set.
func (e Entry) Override() string {
	if e.OverrideDuration == nil {
		return ""
	}
	return *e.OverrideDuration
}

// Setlist is the single shared ordered sequence of the active show.
// Values are treated as immutable snapshots: editing returns a new Setlist.
type Setlist struct {
	Items []Entry `json:"items" mapstructure:"items"`
}

// Len returns the number of entries.
func (s Setlist) Len() int {
	return len(s.Items)
}

// IndexOf returns the position of instanceID, or -1.
func (s Setlist) IndexOf(instanceID string) int {
	for i, e := range s.Items {
		if e.InstanceID == instanceID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (s Setlist) Clone() Setlist {
	return Setlist{Items: cloneEntries(s.Items)}
}

// Preset is a named snapshot of a setlist.
type Preset struct {
	ID      string    `json:"id" mapstructure:"id"`
	Name    string    `json:"name" mapstructure:"name"`
	Items   []Entry   `json:"items" mapstructure:"items"`
	SavedAt time.Time `json:"savedAt" mapstructure:"savedAt"`
}

// Lookup resolves a song id against the library.
type Lookup func(id string) (song.Song, bool)

// LookupFrom adapts an id index to a Lookup.
func LookupFrom(idx map[string]song.Song) Lookup {
	return func(id string) (song.Song, bool) {
		s, ok := idx[id]
		return s, ok
	}
}

func cloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = cloneEntry(e)
	}
	return out
}

func cloneEntry(e Entry) Entry {
	if e.OverrideDuration != nil {
		v := *e.OverrideDuration
		e.OverrideDuration = &v
	}
	return e
}
