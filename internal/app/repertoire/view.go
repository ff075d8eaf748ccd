package repertoire

import (
	"time"

	"github.com/osa030/showtime/internal/app/export"
	"github.com/osa030/showtime/internal/domain/duration"
	"github.com/osa030/showtime/internal/domain/setlist"
	"github.com/osa030/showtime/internal/domain/song"
)

// RowView is one setlist entry resolved for display.
type RowView struct {
	Position   int       `json:"position"`
	InstanceID string    `json:"instanceId"`
	SongID     string    `json:"songId"`
	Title      string    `json:"title"`
	Authors    string    `json:"authors"`
	Type       song.Type `json:"type"`
	Known      bool      `json:"known"`
	Duration   string    `json:"duration"`
	Overridden bool      `json:"overridden"`
	StartsAt   string    `json:"startsAt"`
}

// SetlistView is the current show with its computed total.
type SetlistView struct {
	Items        []setlist.Entry `json:"items"`
	Rows         []RowView       `json:"rows"`
	Total        string          `json:"total"`
	TotalSeconds int             `json:"totalSeconds"`
	GapSeconds   int             `json:"gapSeconds"`
}

// PresetView is a saved preset with its computed total.
type PresetView struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Items   []setlist.Entry `json:"items"`
	SavedAt time.Time       `json:"savedAt"`
	Count   int             `json:"count"`
	Total   string          `json:"total"`
}

// State is everything a client needs to render the repertoire.
type State struct {
	Library []song.Song  `json:"library"`
	Setlist SetlistView  `json:"setlist"`
	Presets []PresetView `json:"presets"`
}

func newSetlistView(s setlist.Setlist, lookup setlist.Lookup, gap int) SetlistView {
	items := s.Clone().Items
	resolved := setlist.Resolve(items, lookup, gap)
	rows := make([]RowView, len(resolved))
	for i, r := range resolved {
		rows[i] = RowView{
			Position:   r.Position,
			InstanceID: r.Entry.InstanceID,
			SongID:     r.Entry.SongID,
			Title:      r.Title(export.UnknownTitle),
			Authors:    r.Song.Authors,
			Type:       r.Song.Type,
			Known:      r.Known,
			Duration:   r.Duration,
			Overridden: r.Entry.Override() != "",
			StartsAt:   duration.Format(r.StartsAt),
		}
	}
	total := setlist.TotalSeconds(items, lookup, gap)
	return SetlistView{
		Items:        items,
		Rows:         rows,
		Total:        duration.Format(total),
		TotalSeconds: total,
		GapSeconds:   gap,
	}
}

func newPresetView(p setlist.Preset, lookup setlist.Lookup, gap int) PresetView {
	items := setlist.Setlist{Items: p.Items}.Clone().Items
	return PresetView{
		ID:      p.ID,
		Name:    p.Name,
		Items:   items,
		SavedAt: p.SavedAt,
		Count:   len(items),
		Total:   setlist.Total(items, lookup, gap),
	}
}
