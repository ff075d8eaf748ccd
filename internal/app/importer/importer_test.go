package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/showtime/internal/app/filter"
	"github.com/osa030/showtime/internal/domain/song"
	"github.com/osa030/showtime/internal/infra/spotify"
)

func sequentialIDs() IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
}

func TestParseLibrary(t *testing.T) {
	data := []byte(`[
		{"id": "1", "title": "Zamba", "authors": "A", "duration": "3:05", "type": "song"},
		{"title": "Bienvenida", "duration": "45"},
		{"title": "Chacarera", "duration": 305, "type": "speech"}
	]`)

	songs, err := ParseLibrary(data, sequentialIDs())
	require.NoError(t, err)
	require.Len(t, songs, 3)

	assert.Equal(t, song.Song{ID: "1", Title: "Zamba", Authors: "A", Duration: "03:05", Type: song.TypeSong}, songs[0])
	assert.Equal(t, "gen-1", songs[1].ID)
	assert.Equal(t, song.TypeSong, songs[1].Type)
	assert.Equal(t, "00:45", songs[1].Duration)
	assert.Equal(t, "03:05", songs[2].Duration)
	assert.Equal(t, song.TypeSpeech, songs[2].Type)
}

func TestParseLibrary_RejectsWholeBatch(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{nope`},
		{name: "object instead of array", data: `{"title": "A", "duration": "3:00"}`},
		{name: "missing title", data: `[{"title": "A", "duration": "3:00"}, {"duration": "1:00"}]`},
		{name: "blank duration", data: `[{"title": "A", "duration": "  "}]`},
		{name: "non-object item", data: `[{"title": "A", "duration": "3:00"}, 7]`},
		{name: "unknown type", data: `[{"title": "A", "duration": "3:00", "type": "jingle"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			songs, err := ParseLibrary([]byte(tt.data), nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidImport))
			assert.Nil(t, songs)
		})
	}
}

func TestMarshalLibrary_RoundTrip(t *testing.T) {
	in := []song.Song{
		{ID: "1", Title: "Zamba", Authors: "A", Duration: "03:05", Type: song.TypeSong},
		{ID: "2", Title: "Discurso", Duration: "01:00", Type: song.TypeSpeech},
	}
	data, err := MarshalLibrary(in)
	require.NoError(t, err)

	out, err := ParseLibrary(data, nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	empty, err := MarshalLibrary(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

const repertoire = `
INTRO CORTA
Tiempo: 0:32

LA REVANCHA
Autores: Sergio Prada, Agustin Fantili
Tiempo: 3:05 (mas el tiempo de presentacion)

MIX CHACARERAS
La Olvidada
El Gato
Time: 4:12

SIN TIEMPO
Autores: Nadie
`

func TestParseText(t *testing.T) {
	songs, err := ParseText(strings.NewReader(repertoire), sequentialIDs())
	require.NoError(t, err)
	require.Len(t, songs, 3)

	assert.Equal(t, song.Song{ID: "gen-1", Title: "INTRO CORTA", Duration: "00:32", Type: song.TypeSong}, songs[0])
	assert.Equal(t, "Sergio Prada, Agustin Fantili", songs[1].Authors)
	assert.Equal(t, "03:05", songs[1].Duration)
	assert.Equal(t, "MIX CHACARERAS", songs[2].Title)
	assert.Equal(t, "La Olvidada El Gato", songs[2].Authors)
	assert.Equal(t, "04:12", songs[2].Duration)
}

func TestParseText_Empty(t *testing.T) {
	_, err := ParseText(strings.NewReader("\n\nonly a title\n"), nil)
	assert.True(t, errors.Is(err, ErrInvalidImport))
}

type fakeSource struct {
	playlist *spotify.Playlist
	track    *spotify.Track
	err      error
}

func (f *fakeSource) GetPlaylist(context.Context, string) (*spotify.Playlist, error) {
	return f.playlist, f.err
}

func (f *fakeSource) GetTrack(context.Context, string) (*spotify.Track, error) {
	return f.track, f.err
}

func TestFromPlaylist(t *testing.T) {
	src := &fakeSource{playlist: &spotify.Playlist{
		Name: "Peña",
		Tracks: []spotify.Track{
			{Name: "Zamba de mi esperanza", Artists: []string{"Luis Morales", "Los Chalchaleros"}, Duration: 185400 * time.Millisecond},
			{Name: "Luna tucumana", Artists: []string{"Atahualpa Yupanqui"}, Duration: 3*time.Hour + 5*time.Second},
		},
	}}

	songs, err := FromPlaylist(context.Background(), src, "spotify:playlist:x", sequentialIDs(), Screen{})
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, song.Song{
		ID:       "gen-1",
		Title:    "Zamba de mi esperanza",
		Authors:  "Luis Morales, Los Chalchaleros",
		Duration: "03:05",
		Type:     song.TypeSong,
	}, songs[0])
	assert.Equal(t, "03:00:05", songs[1].Duration)
}

func TestFromPlaylist_Errors(t *testing.T) {
	_, err := FromPlaylist(context.Background(), &fakeSource{err: errors.New("404 not found")}, "x", nil, Screen{})
	assert.Error(t, err)

	_, err = FromPlaylist(context.Background(), &fakeSource{playlist: &spotify.Playlist{Name: "empty"}}, "x", nil, Screen{})
	assert.True(t, errors.Is(err, ErrInvalidImport))
}

func TestFromTrack(t *testing.T) {
	src := &fakeSource{track: &spotify.Track{Name: "Alfonsina y el mar", Artists: []string{"Mercedes Sosa"}, Duration: 250 * time.Second}}
	s, err := FromTrack(context.Background(), src, "spotify:track:x", sequentialIDs(), Screen{})
	require.NoError(t, err)
	assert.Equal(t, "04:10", s.Duration)
	assert.Equal(t, "Mercedes Sosa", s.Authors)
}

func TestFromPlaylist_Screened(t *testing.T) {
	chain := filter.NewChain()
	chain.Add(&filter.MarketFilter{})
	chain.Add(&filter.DuplicateSongFilter{})

	src := &fakeSource{playlist: &spotify.Playlist{
		Name: "Peña",
		Tracks: []spotify.Track{
			{Name: "Zamba de mi esperanza", Artists: []string{"Luis Morales"}, Duration: 3 * time.Minute, Playable: true},
			{Name: "Luna tucumana", Artists: []string{"Atahualpa Yupanqui"}, Duration: 3 * time.Minute, Playable: false},
			{Name: "Alfonsina y el mar", Artists: []string{"Mercedes Sosa"}, Duration: 4 * time.Minute, Playable: true},
			{Name: "Alfonsina y el mar - Remastered", Artists: []string{"Mercedes Sosa"}, Duration: 4 * time.Minute, Playable: true},
		},
	}}
	screen := Screen{
		Chain:   chain,
		Library: []song.Song{{ID: "zamba", Title: "Zamba de mi esperanza", Authors: "Luis Morales", Duration: "03:00"}},
	}

	songs, err := FromPlaylist(context.Background(), src, "spotify:playlist:x", sequentialIDs(), screen)
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "Alfonsina y el mar", songs[0].Title)
	assert.Len(t, screen.Library, 1)

	src.playlist.Tracks = src.playlist.Tracks[:2]
	_, err = FromPlaylist(context.Background(), src, "spotify:playlist:x", sequentialIDs(), screen)
	assert.True(t, errors.Is(err, ErrInvalidImport))
}

func TestFromTrack_Screened(t *testing.T) {
	chain := filter.NewChain()
	chain.Add(&filter.MarketFilter{})

	src := &fakeSource{track: &spotify.Track{Name: "Luna tucumana", Artists: []string{"Atahualpa Yupanqui"}, Duration: 3 * time.Minute}}
	_, err := FromTrack(context.Background(), src, "spotify:track:x", nil, Screen{Chain: chain})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidImport))
	assert.Contains(t, err.Error(), "market_restriction")
}
