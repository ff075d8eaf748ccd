package repertoire

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/showtime/internal/domain/setlist"
	"github.com/osa030/showtime/internal/infra/store"
)

// Setlist returns the current show resolved against the library.
func (m *Manager) Setlist() SetlistView {
	m.mu.RLock()
	current := m.current
	idx := m.index
	m.mu.RUnlock()
	return newSetlistView(current, setlist.LookupFrom(idx), m.gapSeconds)
}

// Append adds songID at the end of the show. Unknown songs are ignored.
func (m *Manager) Append(ctx context.Context, songID string) (SetlistView, error) {
	return m.edit(ctx, "append", func(ed *setlist.Editor, s setlist.Setlist) (setlist.Setlist, bool) {
		return ed.Append(s, songID)
	})
}

// Remove deletes the entry with instanceID.
func (m *Manager) Remove(ctx context.Context, instanceID string) (SetlistView, error) {
	return m.edit(ctx, "remove", func(ed *setlist.Editor, s setlist.Setlist) (setlist.Setlist, bool) {
		return ed.Remove(s, instanceID)
	})
}

// Reorder moves the entry at position from to position to.
func (m *Manager) Reorder(ctx context.Context, from, to int) (SetlistView, error) {
	return m.edit(ctx, "reorder", func(ed *setlist.Editor, s setlist.Setlist) (setlist.Setlist, bool) {
		return ed.Reorder(s, from, to)
	})
}

// Move places instanceID at position.
func (m *Manager) Move(ctx context.Context, instanceID string, position int) (SetlistView, error) {
	return m.edit(ctx, "move", func(ed *setlist.Editor, s setlist.Setlist) (setlist.Setlist, bool) {
		return ed.Move(s, instanceID, position)
	})
}

// DropOn moves instanceID to the position of overInstanceID.
func (m *Manager) DropOn(ctx context.Context, instanceID, overInstanceID string) (SetlistView, error) {
	return m.edit(ctx, "drop", func(ed *setlist.Editor, s setlist.Setlist) (setlist.Setlist, bool) {
		return ed.DropOn(s, instanceID, overInstanceID)
	})
}

// MoveUp moves instanceID one position towards the start.
func (m *Manager) MoveUp(ctx context.Context, instanceID string) (SetlistView, error) {
	return m.edit(ctx, "move up", func(ed *setlist.Editor, s setlist.Setlist) (setlist.Setlist, bool) {
		return ed.MoveUp(s, instanceID)
	})
}

// MoveDown moves instanceID one position towards the end.
func (m *Manager) MoveDown(ctx context.Context, instanceID string) (SetlistView, error) {
	return m.edit(ctx, "move down", func(ed *setlist.Editor, s setlist.Setlist) (setlist.Setlist, bool) {
		return ed.MoveDown(s, instanceID)
	})
}

// SetOverride sets the per-show duration of instanceID.
func (m *Manager) SetOverride(ctx context.Context, instanceID, raw string) (SetlistView, error) {
	return m.edit(ctx, "override", func(ed *setlist.Editor, s setlist.Setlist) (setlist.Setlist, bool) {
		return ed.SetOverrideDuration(s, instanceID, raw)
	})
}

// ClearOverride drops the per-show duration of instanceID.
func (m *Manager) ClearOverride(ctx context.Context, instanceID string) (SetlistView, error) {
	return m.edit(ctx, "clear override", func(ed *setlist.Editor, s setlist.Setlist) (setlist.Setlist, bool) {
		return ed.ClearOverride(s, instanceID)
	})
}

// Clear empties the show.
func (m *Manager) Clear(ctx context.Context) (SetlistView, error) {
	return m.edit(ctx, "clear", func(ed *setlist.Editor, s setlist.Setlist) (setlist.Setlist, bool) {
		return ed.Clear(s)
	})
}

// edit reads the stored setlist, applies op and writes the result back.
// A no-op edit writes nothing.
func (m *Manager) edit(ctx context.Context, name string, op func(*setlist.Editor, setlist.Setlist) (setlist.Setlist, bool)) (SetlistView, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	current, err := m.loadSetlist(ctx)
	if err != nil {
		return SetlistView{}, err
	}
	lookup := m.freshLookup(ctx)
	next, changed := op(m.editor(lookup), current)
	if !changed {
		return newSetlistView(current, lookup, m.gapSeconds), nil
	}
	if err := m.writeSetlist(ctx, next); err != nil {
		return SetlistView{}, err
	}
	zlog.Debug().Msgf("Setlist %s: entries=%d", name, next.Len())
	return newSetlistView(next, lookup, m.gapSeconds), nil
}

func (m *Manager) loadSetlist(ctx context.Context) (setlist.Setlist, error) {
	doc, err := m.gateway.GetDocument(ctx, setlist.StateCollection, setlist.CurrentSetlistID)
	if errors.Is(err, store.ErrNotFound) {
		return setlist.Setlist{Items: []setlist.Entry{}}, nil
	}
	if err != nil {
		return setlist.Setlist{}, gatewayError(err, "failed to read the current setlist")
	}
	s, err := decodeSetlist(doc)
	if err != nil {
		return setlist.Setlist{}, gatewayError(err, "failed to decode the current setlist")
	}
	return s, nil
}

func (m *Manager) writeSetlist(ctx context.Context, s setlist.Setlist) error {
	if s.Items == nil {
		s.Items = []setlist.Entry{}
	}
	fields, err := store.Encode(s)
	if err != nil {
		return err
	}
	if err := m.gateway.WriteDocument(ctx, setlist.StateCollection, setlist.CurrentSetlistID, fields, true); err != nil {
		return gatewayError(err, "failed to write the current setlist")
	}
	return nil
}
