package connect

import (
	"encoding/json"

	"github.com/osa030/showtime/internal/app/repertoire"
	"github.com/osa030/showtime/internal/domain/song"
)

// Empty is the request or response of calls without payload.
type Empty struct{}

// ListSongsRequest filters and sorts the library.
type ListSongsRequest struct {
	Search string `json:"search,omitempty"`
	// Type is all, song or speech.
	Type string `json:"type,omitempty"`
	// Sort is title or duration.
	Sort string `json:"sort,omitempty"`
	// Language is a BCP 47 tag for title collation.
	Language string `json:"language,omitempty"`
}

type ListSongsResponse struct {
	Songs []song.Song `json:"songs"`
}

type SongIDRequest struct {
	ID string `json:"id"`
}

type SongRequest struct {
	Song song.Song `json:"song"`
}

type SongResponse struct {
	Song song.Song `json:"song"`
}

// ImportLibraryRequest carries a JSON library export as is.
type ImportLibraryRequest struct {
	Library json.RawMessage `json:"library"`
}

type ImportTextRequest struct {
	Text string `json:"text"`
}

// ImportSpotifyRequest names a playlist or track by URL, URI or ID.
type ImportSpotifyRequest struct {
	URL string `json:"url"`
}

type ImportResponse struct {
	Count int         `json:"count"`
	Songs []song.Song `json:"songs"`
}

type SetlistResponse struct {
	Setlist repertoire.SetlistView `json:"setlist"`
}

type AppendRequest struct {
	SongID string `json:"songId"`
}

type InstanceRequest struct {
	InstanceID string `json:"instanceId"`
}

type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type MoveRequest struct {
	InstanceID string `json:"instanceId"`
	Position   int    `json:"position"`
}

type DropOnRequest struct {
	InstanceID     string `json:"instanceId"`
	OverInstanceID string `json:"overInstanceId"`
}

// SetOverrideRequest sets a per-show duration. Text that does not parse
// stores 00:00.
type SetOverrideRequest struct {
	InstanceID string `json:"instanceId"`
	Duration   string `json:"duration"`
}

type ExportRequest struct {
	// Mode is basic or full. Empty means full.
	Mode     string `json:"mode,omitempty"`
	ShowName string `json:"showName,omitempty"`
}

type ExportResponse struct {
	Text string `json:"text"`
}

type ListPresetsResponse struct {
	Presets []repertoire.PresetView `json:"presets"`
}

type SavePresetRequest struct {
	Name string `json:"name"`
}

type PresetIDRequest struct {
	ID string `json:"id"`
}

type PresetResponse struct {
	Preset repertoire.PresetView `json:"preset"`
}
