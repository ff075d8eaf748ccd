package repertoire

import (
	"context"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"github.com/osa030/showtime/internal/app/importer"
	"github.com/osa030/showtime/internal/domain/song"
	"github.com/osa030/showtime/internal/domain/validation"
	"github.com/osa030/showtime/internal/infra/store"
)

// Songs returns the library snapshot ordered by id.
func (m *Manager) Songs() []song.Song {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]song.Song, len(m.songs))
	copy(out, m.songs)
	return out
}

// ListSongs returns the filtered and sorted library view.
// An undetermined query language falls back to the configured collation.
func (m *Manager) ListSongs(q song.Query) []song.Song {
	if q.Language == language.Und {
		q.Language = m.language
	}
	return song.View(m.Songs(), q)
}

// GetSong returns the library entry with id.
func (m *Manager) GetSong(id string) (song.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.index[id]
	if !ok {
		return song.Song{}, notFound("song %s not found", id)
	}
	return s, nil
}

// AddSong validates and stores a new library entry.
// An entry without id gets a fresh one.
func (m *Manager) AddSong(ctx context.Context, s song.Song) (song.Song, error) {
	s = s.Normalized()
	if strings.TrimSpace(s.ID) == "" {
		s.ID = m.newID()
	}
	if err := s.Validate(); err != nil {
		return song.Song{}, err
	}
	if err := m.writeSong(ctx, s); err != nil {
		return song.Song{}, err
	}
	zlog.Info().Msgf("Song added: id=%s title=%q", s.ID, s.Title)
	return s, nil
}

// UpdateSong replaces every field of an existing entry except its id.
func (m *Manager) UpdateSong(ctx context.Context, s song.Song) (song.Song, error) {
	if strings.TrimSpace(s.ID) == "" {
		return song.Song{}, validation.Newf("song id is required")
	}
	s = s.Normalized()
	if err := s.Validate(); err != nil {
		return song.Song{}, err
	}
	if err := m.requireDocument(ctx, SongCollection, s.ID); err != nil {
		return song.Song{}, err
	}
	if err := m.writeSong(ctx, s); err != nil {
		return song.Song{}, err
	}
	zlog.Info().Msgf("Song updated: id=%s title=%q", s.ID, s.Title)
	return s, nil
}

// DeleteSong removes an entry from the library. Setlist entries and presets
// referencing it are kept and render as unknown items.
func (m *Manager) DeleteSong(ctx context.Context, id string) error {
	if err := m.requireDocument(ctx, SongCollection, id); err != nil {
		return err
	}
	if err := m.gateway.DeleteDocument(ctx, SongCollection, id); err != nil {
		return gatewayError(err, "failed to delete song %s", id)
	}
	zlog.Info().Msgf("Song deleted: id=%s", id)
	return nil
}

// ImportSongs adds every song of a JSON library export. A malformed batch is
// rejected as a whole before anything is written.
func (m *Manager) ImportSongs(ctx context.Context, data []byte) ([]song.Song, error) {
	songs, err := importer.ParseLibrary(data, importer.IDFunc(m.newID))
	if err != nil {
		return nil, err
	}
	return m.importSongs(ctx, "json", songs)
}

// ImportText adds the songs of a plain-text repertoire listing.
func (m *Manager) ImportText(ctx context.Context, r io.Reader) ([]song.Song, error) {
	songs, err := importer.ParseText(r, importer.IDFunc(m.newID))
	if err != nil {
		return nil, err
	}
	return m.importSongs(ctx, "text", songs)
}

// ImportPlaylist adds every track of a Spotify playlist.
func (m *Manager) ImportPlaylist(ctx context.Context, playlistURL string) ([]song.Song, error) {
	if m.tracks == nil {
		return nil, errors.Mark(errors.New("spotify import is not configured"), ErrNotConfigured)
	}
	songs, err := importer.FromPlaylist(ctx, m.tracks, playlistURL, importer.IDFunc(m.newID), m.screen())
	if err != nil {
		return nil, sourceError(err)
	}
	return m.importSongs(ctx, "spotify", songs)
}

// ImportTrack adds a single Spotify track.
func (m *Manager) ImportTrack(ctx context.Context, trackURL string) (song.Song, error) {
	if m.tracks == nil {
		return song.Song{}, errors.Mark(errors.New("spotify import is not configured"), ErrNotConfigured)
	}
	s, err := importer.FromTrack(ctx, m.tracks, trackURL, importer.IDFunc(m.newID), m.screen())
	if err != nil {
		return song.Song{}, sourceError(err)
	}
	return m.AddSong(ctx, s)
}

func (m *Manager) screen() importer.Screen {
	return importer.Screen{Chain: m.filters, Library: m.Songs()}
}

// ExportSongs renders the library as a JSON library export.
func (m *Manager) ExportSongs() ([]byte, error) {
	return importer.MarshalLibrary(m.Songs())
}

// importSongs writes each song under its id, replacing existing entries.
// The store has no batches, so a failure leaves earlier songs written.
func (m *Manager) importSongs(ctx context.Context, source string, songs []song.Song) ([]song.Song, error) {
	for i, s := range songs {
		if err := m.writeSong(ctx, s); err != nil {
			return songs[:i], err
		}
	}
	zlog.Info().Msgf("Imported songs: source=%s count=%d", source, len(songs))
	return songs, nil
}

func (m *Manager) writeSong(ctx context.Context, s song.Song) error {
	fields, err := store.Encode(s)
	if err != nil {
		return err
	}
	if err := m.gateway.WriteDocument(ctx, SongCollection, s.ID, fields, false); err != nil {
		return gatewayError(err, "failed to write song %s", s.ID)
	}
	return nil
}

func (m *Manager) requireDocument(ctx context.Context, collection, id string) error {
	_, err := m.gateway.GetDocument(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("%s %s not found", strings.TrimSuffix(collection, "s"), id)
	}
	if err != nil {
		return gatewayError(err, "failed to read %s/%s", collection, id)
	}
	return nil
}
