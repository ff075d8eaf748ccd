package connect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/showtime/internal/app/notification"
	"github.com/osa030/showtime/internal/app/repertoire"
	"github.com/osa030/showtime/internal/domain/song"
	"github.com/osa030/showtime/internal/infra/store"
)

func newTestServer(t *testing.T) (*Client, *repertoire.Manager) {
	t.Helper()
	gw := store.NewMemoryStore()
	m := repertoire.NewManager(gw)
	require.NoError(t, m.Start(context.Background()))

	mux := http.NewServeMux()
	opts := HandlerOptions()
	mux.Handle(NewLibraryServiceHandler(NewLibraryService(m), opts...))
	mux.Handle(NewSetlistServiceHandler(NewSetlistService(m), opts...))
	mux.Handle(NewPresetServiceHandler(NewPresetService(m), opts...))
	srv := httptest.NewServer(mux)

	t.Cleanup(srv.Close)
	t.Cleanup(func() {
		m.Close()
		_ = gw.Close()
	})
	return NewClient(srv.Client(), srv.URL), m
}

func TestCodec(t *testing.T) {
	c := Codec()
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(&AppendRequest{SongID: "s1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"songId":"s1"}`, string(data))

	var req AppendRequest
	require.NoError(t, c.Unmarshal(nil, &req))
	assert.Empty(t, req.SongID)
	require.NoError(t, c.Unmarshal(data, &req))
	assert.Equal(t, "s1", req.SongID)
	assert.Error(t, c.Unmarshal([]byte("{"), &req))
}

func TestLibraryService(t *testing.T) {
	client, m := newTestServer(t)
	ctx := context.Background()

	added, err := client.AddSong(ctx, &SongRequest{Song: song.Song{Title: "Zamba", Duration: "3:00"}})
	require.NoError(t, err)
	assert.NotEmpty(t, added.Song.ID)
	assert.Equal(t, "03:00", added.Song.Duration)

	require.Eventually(t, func() bool {
		return len(m.Songs()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	got, err := client.GetSong(ctx, added.Song.ID)
	require.NoError(t, err)
	assert.Equal(t, added.Song, got.Song)

	list, err := client.ListSongs(ctx, &ListSongsRequest{Search: "zam", Language: "es"})
	require.NoError(t, err)
	assert.Len(t, list.Songs, 1)

	imported, err := client.ImportLibrary(ctx, &ImportLibraryRequest{
		Library: json.RawMessage(`[{"title":"Intro","duration":"45","type":"speech"}]`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, imported.Count)

	text, err := client.ImportText(ctx, &ImportTextRequest{Text: "Chacarera\ntiempo: 2:30\n"})
	require.NoError(t, err)
	assert.Equal(t, 1, text.Count)

	updated, err := client.UpdateSong(ctx, &SongRequest{Song: song.Song{ID: added.Song.ID, Title: "Zamba II", Duration: "3:10"}})
	require.NoError(t, err)
	assert.Equal(t, "Zamba II", updated.Song.Title)

	require.NoError(t, client.DeleteSong(ctx, added.Song.ID))
}

func TestLibraryService_Errors(t *testing.T) {
	client, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		code connect.Code
	}{
		{
			name: "invalid song",
			call: func() error {
				_, err := client.AddSong(ctx, &SongRequest{Song: song.Song{Title: " "}})
				return err
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "missing song",
			call: func() error {
				_, err := client.GetSong(ctx, "missing")
				return err
			},
			code: connect.CodeNotFound,
		},
		{
			name: "bad import",
			call: func() error {
				_, err := client.ImportLibrary(ctx, &ImportLibraryRequest{Library: json.RawMessage(`{"title":"x"}`)})
				return err
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "spotify not configured",
			call: func() error {
				_, err := client.ImportPlaylist(ctx, &ImportSpotifyRequest{URL: "spotify:playlist:x"})
				return err
			},
			code: connect.CodeFailedPrecondition,
		},
		{
			name: "invalid language",
			call: func() error {
				_, err := client.ListSongs(ctx, &ListSongsRequest{Language: "not a tag!"})
				return err
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "invalid export mode",
			call: func() error {
				_, err := client.Export(ctx, &ExportRequest{Mode: "fancy"})
				return err
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "missing preset",
			call: func() error {
				_, err := client.LoadPreset(ctx, &PresetIDRequest{ID: "missing"})
				return err
			},
			code: connect.CodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.code, connect.CodeOf(err))
		})
	}
}

func TestSetlistService(t *testing.T) {
	client, m := newTestServer(t)
	ctx := context.Background()

	for _, s := range []song.Song{
		{ID: "zamba", Title: "Zamba", Authors: "Diego", Duration: "3:00"},
		{ID: "intro", Title: "Intro", Duration: "45", Type: song.TypeSpeech},
	} {
		_, err := client.AddSong(ctx, &SongRequest{Song: s})
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool {
		return len(m.Songs()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	res, err := client.Append(ctx, &AppendRequest{SongID: "zamba"})
	require.NoError(t, err)
	first := res.Setlist.Items[0].InstanceID
	res, err = client.Append(ctx, &AppendRequest{SongID: "intro"})
	require.NoError(t, err)
	second := res.Setlist.Items[1].InstanceID
	assert.Equal(t, "03:55", res.Setlist.Total)

	res, err = client.MoveUp(ctx, &InstanceRequest{InstanceID: second})
	require.NoError(t, err)
	assert.Equal(t, second, res.Setlist.Items[0].InstanceID)

	res, err = client.MoveDown(ctx, &InstanceRequest{InstanceID: second})
	require.NoError(t, err)
	assert.Equal(t, second, res.Setlist.Items[1].InstanceID)

	res, err = client.Reorder(ctx, &ReorderRequest{From: 1, To: 0})
	require.NoError(t, err)
	assert.Equal(t, second, res.Setlist.Items[0].InstanceID)

	res, err = client.DropOn(ctx, &DropOnRequest{InstanceID: first, OverInstanceID: second})
	require.NoError(t, err)
	assert.Equal(t, first, res.Setlist.Items[0].InstanceID)

	res, err = client.Move(ctx, &MoveRequest{InstanceID: first, Position: 1})
	require.NoError(t, err)
	assert.Equal(t, first, res.Setlist.Items[1].InstanceID)

	res, err = client.SetOverride(ctx, &SetOverrideRequest{InstanceID: first, Duration: "2:00"})
	require.NoError(t, err)
	assert.Equal(t, "02:55", res.Setlist.Total)

	res, err = client.SetOverride(ctx, &SetOverrideRequest{InstanceID: first, Duration: ""})
	require.NoError(t, err)
	assert.Equal(t, "00:55", res.Setlist.Total)

	res, err = client.ClearOverride(ctx, &InstanceRequest{InstanceID: first})
	require.NoError(t, err)
	assert.Equal(t, "03:55", res.Setlist.Total)

	res, err = client.SetOverride(ctx, &SetOverrideRequest{InstanceID: first, Duration: "2:00"})
	require.NoError(t, err)
	assert.Equal(t, "02:55", res.Setlist.Total)

	require.Eventually(t, func() bool {
		return m.Setlist().Total == "02:55"
	}, 2*time.Second, 10*time.Millisecond)

	current, err := client.GetSetlist(ctx)
	require.NoError(t, err)
	assert.Len(t, current.Setlist.Rows, 2)

	exported, err := client.Export(ctx, &ExportRequest{Mode: "basic"})
	require.NoError(t, err)
	assert.Equal(t, "1. Intro\n2. Zamba\n\nTotal: 02:55", exported.Text)

	res, err = client.Remove(ctx, &InstanceRequest{InstanceID: second})
	require.NoError(t, err)
	assert.Len(t, res.Setlist.Items, 1)

	res, err = client.Clear(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Setlist.Items)
}

func TestPresetService(t *testing.T) {
	client, m := newTestServer(t)
	ctx := context.Background()

	_, err := client.AddSong(ctx, &SongRequest{Song: song.Song{ID: "zamba", Title: "Zamba", Duration: "3:00"}})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(m.Songs()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	_, err = client.Append(ctx, &AppendRequest{SongID: "zamba"})
	require.NoError(t, err)

	saved, err := client.SavePreset(ctx, &SavePresetRequest{Name: "Peña"})
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Preset.Count)

	require.Eventually(t, func() bool {
		list, err := client.ListPresets(ctx)
		return err == nil && len(list.Presets) == 1
	}, 2*time.Second, 10*time.Millisecond)

	loaded, err := client.LoadPreset(ctx, &PresetIDRequest{ID: saved.Preset.ID})
	require.NoError(t, err)
	require.Len(t, loaded.Setlist.Items, 1)
	assert.NotEqual(t, saved.Preset.Items[0].InstanceID, loaded.Setlist.Items[0].InstanceID)

	require.NoError(t, client.DeletePreset(ctx, saved.Preset.ID))
	err = client.DeletePreset(ctx, saved.Preset.ID)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestSetlistService_Watch(t *testing.T) {
	client, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.Watch(ctx)
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Receive(), "initial state: %v", stream.Err())
	initial := stream.Msg()
	assert.Equal(t, notification.KindState, initial.Kind)
	assert.NotZero(t, initial.Seq)

	_, err = client.AddSong(ctx, &SongRequest{Song: song.Song{Title: "Zamba", Duration: "3:00"}})
	require.NoError(t, err)

	for stream.Receive() {
		event := stream.Msg()
		assert.Greater(t, event.Seq, initial.Seq)
		if event.Kind == notification.KindLibrary {
			songs, ok := event.Payload.([]any)
			require.True(t, ok)
			assert.Len(t, songs, 1)
			return
		}
	}
	t.Fatalf("stream ended without a library event: %v", stream.Err())
}
