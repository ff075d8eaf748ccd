package repertoire

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/showtime/internal/app/export"
	"github.com/osa030/showtime/internal/domain/setlist"
	"github.com/osa030/showtime/internal/infra/store"
)

// ListPresets returns the saved presets, oldest first, with their totals.
func (m *Manager) ListPresets() []PresetView {
	m.mu.RLock()
	presets := m.presets
	lookup := setlist.LookupFrom(m.index)
	m.mu.RUnlock()

	out := make([]PresetView, len(presets))
	for i, p := range presets {
		out[i] = newPresetView(p, lookup, m.gapSeconds)
	}
	return out
}

// SavePreset stores a snapshot of the current show under name.
func (m *Manager) SavePreset(ctx context.Context, name string) (PresetView, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	current, err := m.loadSetlist(ctx)
	if err != nil {
		return PresetView{}, err
	}
	lookup := m.lookup()
	p, err := m.editor(lookup).SaveAsPreset(current, name)
	if err != nil {
		return PresetView{}, err
	}
	fields, err := store.Encode(p)
	if err != nil {
		return PresetView{}, err
	}
	if err := m.gateway.WriteDocument(ctx, setlist.PresetCollection, p.ID, fields, false); err != nil {
		return PresetView{}, gatewayError(err, "failed to save preset %q", p.Name)
	}
	zlog.Info().Msgf("Preset saved: id=%s name=%q entries=%d", p.ID, p.Name, len(p.Items))
	return newPresetView(p, lookup, m.gapSeconds), nil
}

// LoadPreset replaces the current show with the preset's entries.
func (m *Manager) LoadPreset(ctx context.Context, id string) (SetlistView, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	doc, err := m.gateway.GetDocument(ctx, setlist.PresetCollection, id)
	if errors.Is(err, store.ErrNotFound) {
		return SetlistView{}, notFound("preset %s not found", id)
	}
	if err != nil {
		return SetlistView{}, gatewayError(err, "failed to read preset %s", id)
	}
	var p setlist.Preset
	if err := store.DecodeDocument(doc, &p); err != nil {
		return SetlistView{}, gatewayError(err, "failed to decode preset %s", id)
	}

	lookup := m.freshLookup(ctx)
	next := m.editor(lookup).LoadPreset(p)
	if err := m.writeSetlist(ctx, next); err != nil {
		return SetlistView{}, err
	}
	zlog.Info().Msgf("Preset loaded: id=%s name=%q entries=%d", p.ID, p.Name, next.Len())
	return newSetlistView(next, lookup, m.gapSeconds), nil
}

// DeletePreset removes a saved preset.
func (m *Manager) DeletePreset(ctx context.Context, id string) error {
	if err := m.requireDocument(ctx, setlist.PresetCollection, id); err != nil {
		return err
	}
	if err := m.gateway.DeleteDocument(ctx, setlist.PresetCollection, id); err != nil {
		return gatewayError(err, "failed to delete preset %s", id)
	}
	zlog.Info().Msgf("Preset deleted: id=%s", id)
	return nil
}

// Sheet resolves the current show for export.
func (m *Manager) Sheet(showName string) export.Sheet {
	m.mu.RLock()
	current := m.current.Clone()
	lookup := setlist.LookupFrom(m.index)
	m.mu.RUnlock()
	return export.NewSheet(showName, current.Items, lookup, m.gapSeconds)
}

// Export renders the current show as text.
func (m *Manager) Export(mode export.Mode, showName string) string {
	return export.Text(m.Sheet(showName), mode)
}

// PrintSheet renders the current show as a printable HTML page.
func (m *Manager) PrintSheet(w io.Writer, showName string) error {
	return export.HTML(w, m.Sheet(showName))
}
