package importer

import (
	"context"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/showtime/internal/app/filter"
	"github.com/osa030/showtime/internal/domain/duration"
	"github.com/osa030/showtime/internal/domain/song"
	"github.com/osa030/showtime/internal/infra/spotify"
)

// TrackSource fetches tracks from Spotify. *spotify.Client implements it.
type TrackSource interface {
	GetPlaylist(ctx context.Context, playlistURL string) (*spotify.Playlist, error)
	GetTrack(ctx context.Context, trackID string) (*spotify.Track, error)
}

// Screen decides which tracks are imported. A nil Chain accepts every track.
type Screen struct {
	Chain *filter.Chain
	// Library is the current library, checked for duplicates.
	Library []song.Song
}

// FromPlaylist converts the tracks of a Spotify playlist into songs.
// Tracks rejected by the screen are skipped; a playlist with nothing left
// to import is rejected.
func FromPlaylist(ctx context.Context, src TrackSource, playlistURL string, ids IDFunc, screen Screen) ([]song.Song, error) {
	if ids == nil {
		ids = newID
	}
	p, err := src.GetPlaylist(ctx, playlistURL)
	if err != nil {
		return nil, err
	}
	if len(p.Tracks) == 0 {
		return nil, errors.Mark(errors.Newf("playlist %q has no tracks", p.Name), ErrInvalidImport)
	}

	library := slices.Clone(screen.Library)
	songs := make([]song.Song, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		result := screen.Chain.Execute(ctx, filter.Candidate{Track: t, Library: library})
		if !result.Accepted {
			zlog.Info().Msgf("Skipped track: %s (%s) code=%s", t.Name, t.ID, result.Code)
			continue
		}
		s := fromTrack(t, ids())
		songs = append(songs, s)
		library = append(library, s)
	}
	if len(songs) == 0 {
		return nil, errors.Mark(errors.Newf("no importable tracks in playlist %q", p.Name), ErrInvalidImport)
	}
	return songs, nil
}

// FromTrack converts a single Spotify track into a song.
func FromTrack(ctx context.Context, src TrackSource, trackURL string, ids IDFunc, screen Screen) (song.Song, error) {
	if ids == nil {
		ids = newID
	}
	t, err := src.GetTrack(ctx, trackURL)
	if err != nil {
		return song.Song{}, err
	}
	result := screen.Chain.Execute(ctx, filter.Candidate{Track: *t, Library: screen.Library})
	if !result.Accepted {
		return song.Song{}, errors.Mark(errors.Newf("track %q rejected: %s", t.Name, result.Code), ErrInvalidImport)
	}
	return fromTrack(*t, ids()), nil
}

func fromTrack(t spotify.Track, id string) song.Song {
	return song.Song{
		ID:       id,
		Title:    t.Name,
		Authors:  strings.Join(t.Artists, ", "),
		Duration: duration.Format(int(t.Duration.Seconds())),
		Type:     song.TypeSong,
	}.Normalized()
}
