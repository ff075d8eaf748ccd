package setlist

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/osa030/showtime/internal/domain/duration"
	"github.com/osa030/showtime/internal/domain/validation"
)

// IDFunc generates fresh identities for entries and presets.
type IDFunc func() string

// Editor applies edits to setlist snapshots. Every method leaves its input
// untouched and reports whether the returned value differs from it.
type Editor struct {
	lookup Lookup
	newID  IDFunc
	now    func() time.Time
}

// Option configures an Editor.
type Option func(*Editor)

// WithIDFunc overrides identity generation.
func WithIDFunc(fn IDFunc) Option {
	return func(e *Editor) { e.newID = fn }
}

// WithClock overrides the preset timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

// NewEditor creates an editor resolving songs through lookup.
func NewEditor(lookup Lookup, opts ...Option) *Editor {
	e := &Editor{
		lookup: lookup,
		newID:  func() string { return uuid.New().String() },
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Append adds songID at the end of the show. Unknown songs are ignored.
func (e *Editor) Append(s Setlist, songID string) (Setlist, bool) {
	if e.lookup == nil {
		return s, false
	}
	if _, ok := e.lookup(songID); !ok {
		return s, false
	}
	items := make([]Entry, 0, len(s.Items)+1)
	items = append(items, cloneEntries(s.Items)...)
	items = append(items, Entry{
		InstanceID: e.newID(),
		SongID:     songID,
	})
	return Setlist{Items: items}, true
}

// Remove deletes the entry with instanceID.
func (e *Editor) Remove(s Setlist, instanceID string) (Setlist, bool) {
	idx := s.IndexOf(instanceID)
	if idx < 0 {
		return s, false
	}
	items := make([]Entry, 0, len(s.Items)-1)
	items = append(items, cloneEntries(s.Items[:idx])...)
	items = append(items, cloneEntries(s.Items[idx+1:])...)
	return Setlist{Items: items}, true
}

// Reorder moves the entry at from to position to, shifting the entries in
// between. to is clamped to the valid range; an invalid from is a no-op.
// Drag-and-drop and keyboard moves both end up here.
func (e *Editor) Reorder(s Setlist, from, to int) (Setlist, bool) {
	n := len(s.Items)
	if from < 0 || from >= n {
		return s, false
	}
	if to < 0 {
		to = 0
	}
	if to >= n {
		to = n - 1
	}
	if from == to {
		return s, false
	}

	items := cloneEntries(s.Items)
	moved := items[from]
	if from < to {
		copy(items[from:to], items[from+1:to+1])
	} else {
		copy(items[to+1:from+1], items[to:from])
	}
	items[to] = moved
	return Setlist{Items: items}, true
}

// Move places instanceID at position.
func (e *Editor) Move(s Setlist, instanceID string, position int) (Setlist, bool) {
	return e.Reorder(s, s.IndexOf(instanceID), position)
}

// DropOn moves instanceID to where overInstanceID currently sits, as a
// drag gesture released over another entry does.
func (e *Editor) DropOn(s Setlist, instanceID, overInstanceID string) (Setlist, bool) {
	to := s.IndexOf(overInstanceID)
	if to < 0 {
		return s, false
	}
	return e.Reorder(s, s.IndexOf(instanceID), to)
}

// MoveUp moves instanceID one position towards the start.
func (e *Editor) MoveUp(s Setlist, instanceID string) (Setlist, bool) {
	idx := s.IndexOf(instanceID)
	if idx <= 0 {
		return s, false
	}
	return e.Reorder(s, idx, idx-1)
}

// MoveDown moves instanceID one position towards the end.
func (e *Editor) MoveDown(s Setlist, instanceID string) (Setlist, bool) {
	idx := s.IndexOf(instanceID)
	if idx < 0 || idx >= len(s.Items)-1 {
		return s, false
	}
	return e.Reorder(s, idx, idx+1)
}

// SetOverrideDuration stores raw, normalized, as the per-show duration of
// instanceID. Text that does not parse is stored as 00:00.
func (e *Editor) SetOverrideDuration(s Setlist, instanceID, raw string) (Setlist, bool) {
	idx := s.IndexOf(instanceID)
	if idx < 0 {
		return s, false
	}
	items := cloneEntries(s.Items)
	v := duration.Normalize(raw)
	items[idx].OverrideDuration = &v
	return Setlist{Items: items}, true
}

// ClearOverride drops the per-show duration of instanceID so the song's own
// duration counts again.
func (e *Editor) ClearOverride(s Setlist, instanceID string) (Setlist, bool) {
	idx := s.IndexOf(instanceID)
	if idx < 0 || s.Items[idx].OverrideDuration == nil {
		return s, false
	}
	items := cloneEntries(s.Items)
	items[idx].OverrideDuration = nil
	return Setlist{Items: items}, true
}

// Clear empties the show.
func (e *Editor) Clear(s Setlist) (Setlist, bool) {
	if len(s.Items) == 0 {
		return s, false
	}
	return Setlist{Items: []Entry{}}, true
}

// SaveAsPreset snapshots s under name. The name is stored as given; it only
// has to contain something besides whitespace.
func (e *Editor) SaveAsPreset(s Setlist, name string) (Preset, error) {
	if strings.TrimSpace(name) == "" {
		return Preset{}, validation.Newf("preset name is required")
	}
	return Preset{
		ID:      e.newID(),
		Name:    name,
		Items:   cloneEntries(s.Items),
		SavedAt: e.now().UTC(),
	}, nil
}

// LoadPreset replaces the show with the preset's entries. Each entry gets a
// fresh InstanceID so loading the same preset twice never duplicates ids.
func (e *Editor) LoadPreset(p Preset) Setlist {
	items := cloneEntries(p.Items)
	for i := range items {
		items[i].InstanceID = e.newID()
	}
	return Setlist{Items: items}
}

// DeletePreset removes id from presets.
func DeletePreset(presets []Preset, id string) ([]Preset, bool) {
	out := make([]Preset, 0, len(presets))
	found := false
	for _, p := range presets {
		if p.ID == id {
			found = true
			continue
		}
		out = append(out, p)
	}
	if !found {
		return presets, false
	}
	return out, true
}
