// Package song provides the Song library entity.
package song

import (
	"strings"

	"github.com/osa030/showtime/internal/domain/duration"
	"github.com/osa030/showtime/internal/domain/validation"
)

// Type tags a library entry as music or spoken material.
type Type string

const (
	TypeSong   Type = "song"
	TypeSpeech Type = "speech"
)

// Song represents one entry of the shared repertoire.
type Song struct {
	ID       string `json:"id" mapstructure:"id"`
	Title    string `json:"title" mapstructure:"title" validate:"required,notblank_trim"`
	Authors  string `json:"authors" mapstructure:"authors"`
	Duration string `json:"duration" mapstructure:"duration" validate:"required,duration"`
	Type     Type   `json:"type,omitempty" mapstructure:"type" validate:"omitempty,oneof=song speech"`
}

// IsSpeech reports whether the entry is spoken material.
// Entries with no type behave as songs.
func (s Song) IsSpeech() bool {
	return s.Type == TypeSpeech
}

// Validate checks that the entry can be stored in the library.
func (s Song) Validate() error {
	return validation.Struct(s)
}

// Normalized returns a trimmed copy with a canonical duration and a type.
func (s Song) Normalized() Song {
	s.Title = strings.TrimSpace(s.Title)
	s.Authors = strings.TrimSpace(s.Authors)
	s.Duration = duration.Normalize(s.Duration)
	if s.Type == "" {
		s.Type = TypeSong
	}
	return s
}

// Seconds returns the parsed duration.
func (s Song) Seconds() int {
	return duration.Parse(s.Duration)
}

// Index builds an id lookup over songs.
func Index(songs []Song) map[string]Song {
	idx := make(map[string]Song, len(songs))
	for _, s := range songs {
		idx[s.ID] = s
	}
	return idx
}
