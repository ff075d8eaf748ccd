// Package importer converts external repertoire sources into library songs.
package importer

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/osa030/showtime/internal/domain/song"
	"github.com/osa030/showtime/internal/infra/store"
)

// ErrInvalidImport marks a rejected import. Nothing of a rejected batch is applied.
var ErrInvalidImport = errors.New("invalid import")

// IDFunc generates ids for imported songs that carry none.
type IDFunc func() string

func newID() string {
	return uuid.New().String()
}

// ParseLibrary parses a JSON library export. The document must be an array
// and every element needs a title and a duration; otherwise the whole batch
// is rejected. Missing ids are generated, missing types default to song.
func ParseLibrary(data []byte, ids IDFunc) ([]song.Song, error) {
	if ids == nil {
		ids = newID
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "library is not valid JSON"), ErrInvalidImport)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, errors.Mark(errors.New("library must be a JSON array"), ErrInvalidImport)
	}

	songs := make([]song.Song, 0, len(items))
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, errors.Mark(errors.Newf("item %d is not an object", i), ErrInvalidImport)
		}
		var s song.Song
		if err := store.Decode(fields, &s); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "item %d", i), ErrInvalidImport)
		}
		if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.Duration) == "" {
			return nil, errors.Mark(errors.Newf("item %d needs a title and a duration", i), ErrInvalidImport)
		}
		if s.Type != "" && s.Type != song.TypeSong && s.Type != song.TypeSpeech {
			return nil, errors.Mark(errors.Newf("item %d has unknown type %q", i, s.Type), ErrInvalidImport)
		}
		if strings.TrimSpace(s.ID) == "" {
			s.ID = ids()
		}
		songs = append(songs, s.Normalized())
	}
	return songs, nil
}

// MarshalLibrary renders songs as the JSON library interchange format.
func MarshalLibrary(songs []song.Song) ([]byte, error) {
	if songs == nil {
		songs = []song.Song{}
	}
	data, err := json.MarshalIndent(songs, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal library")
	}
	return data, nil
}
