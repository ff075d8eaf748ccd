// Package main provides the repertoire CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/showtime/internal/api/connect"
	"github.com/osa030/showtime/internal/app/notification"
	"github.com/osa030/showtime/internal/app/repertoire"
	"github.com/osa030/showtime/internal/domain/song"
)

var (
	app    = kingpin.New("showctl", "showtime repertoire client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").Envar("SHOWTIME_SERVER").String()

	// songs commands
	songsCmd = app.Command("songs", "Manage the song library")

	songsListCmd    = songsCmd.Command("list", "List songs").Default()
	songsListSearch = songsListCmd.Flag("search", "Title or author substring").Short('s').String()
	songsListType   = songsListCmd.Flag("type", "all, song or speech").Default("all").Enum("all", "song", "speech")
	songsListSort   = songsListCmd.Flag("sort", "title or duration").Default("title").Enum("title", "duration")
	songsListLang   = songsListCmd.Flag("language", "Collation language (BCP 47)").String()

	songsAddCmd      = songsCmd.Command("add", "Add a song")
	songsAddTitle    = songsAddCmd.Arg("title", "Title").Required().String()
	songsAddDuration = songsAddCmd.Arg("duration", "Duration (mm:ss, seconds or packed digits)").Required().String()
	songsAddAuthors  = songsAddCmd.Flag("authors", "Authors").String()
	songsAddSpeech   = songsAddCmd.Flag("speech", "Mark as spoken material").Bool()

	songsDeleteCmd = songsCmd.Command("delete", "Delete a song")
	songsDeleteID  = songsDeleteCmd.Arg("song-id", "Song ID").Required().String()

	songsImportCmd  = songsCmd.Command("import", "Import songs from a file or Spotify")
	songsImportFrom = songsImportCmd.Arg("source", "JSON or text file, or a Spotify playlist/track URL").Required().String()

	// setlist commands
	setlistCmd = app.Command("setlist", "Edit the current setlist")

	setlistShowCmd = setlistCmd.Command("show", "Show the setlist").Default()

	setlistAppendCmd = setlistCmd.Command("append", "Append a song")
	setlistAppendID  = setlistAppendCmd.Arg("song-id", "Song ID").Required().String()

	setlistRemoveCmd = setlistCmd.Command("remove", "Remove an entry")
	setlistRemoveID  = setlistRemoveCmd.Arg("instance-id", "Entry instance ID").Required().String()

	setlistMoveCmd      = setlistCmd.Command("move", "Move an entry to a 1-based position")
	setlistMoveID       = setlistMoveCmd.Arg("instance-id", "Entry instance ID").Required().String()
	setlistMovePosition = setlistMoveCmd.Arg("position", "Target position").Required().Int()

	setlistOverrideCmd      = setlistCmd.Command("override", "Set or clear a per-show duration")
	setlistOverrideClear    = setlistOverrideCmd.Flag("clear", "Drop the override and use the song duration").Bool()
	setlistOverrideID       = setlistOverrideCmd.Arg("instance-id", "Entry instance ID").Required().String()
	setlistOverrideDuration = setlistOverrideCmd.Arg("duration", "Duration (unparseable text means 00:00)").String()

	setlistClearCmd = setlistCmd.Command("clear", "Remove every entry")

	setlistExportCmd  = setlistCmd.Command("export", "Print the setlist as text")
	setlistExportMode = setlistExportCmd.Flag("mode", "basic or full").Default("full").Enum("basic", "full")
	setlistExportName = setlistExportCmd.Flag("name", "Show name").String()

	// presets commands
	presetsCmd = app.Command("presets", "Manage saved setlists")

	presetsListCmd = presetsCmd.Command("list", "List presets").Default()

	presetsSaveCmd  = presetsCmd.Command("save", "Save the current setlist")
	presetsSaveName = presetsSaveCmd.Arg("name", "Preset name").Required().String()

	presetsLoadCmd = presetsCmd.Command("load", "Replace the setlist with a preset")
	presetsLoadID  = presetsLoadCmd.Arg("preset-id", "Preset ID").Required().String()

	presetsDeleteCmd = presetsCmd.Command("delete", "Delete a preset")
	presetsDeleteID  = presetsDeleteCmd.Arg("preset-id", "Preset ID").Required().String()

	// watch command
	watchCmd = app.Command("watch", "Stream repertoire changes")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Create client
	client := apiconnect.NewClient(http.DefaultClient, *server)

	ctx := context.Background()

	// Execute command
	switch command {
	case songsListCmd.FullCommand():
		listSongs(ctx, client)
	case songsAddCmd.FullCommand():
		addSong(ctx, client)
	case songsDeleteCmd.FullCommand():
		check(client.DeleteSong(ctx, *songsDeleteID))
		fmt.Println("Song deleted")
	case songsImportCmd.FullCommand():
		importSongs(ctx, client, *songsImportFrom)
	case setlistShowCmd.FullCommand():
		res, err := client.GetSetlist(ctx)
		check(err)
		printSetlist(res.Setlist)
	case setlistAppendCmd.FullCommand():
		printSetlist(setlistOf(client.Append(ctx, &apiconnect.AppendRequest{SongID: *setlistAppendID})))
	case setlistRemoveCmd.FullCommand():
		printSetlist(setlistOf(client.Remove(ctx, &apiconnect.InstanceRequest{InstanceID: *setlistRemoveID})))
	case setlistMoveCmd.FullCommand():
		printSetlist(setlistOf(client.Move(ctx, &apiconnect.MoveRequest{
			InstanceID: *setlistMoveID,
			Position:   *setlistMovePosition - 1,
		})))
	case setlistOverrideCmd.FullCommand():
		if *setlistOverrideClear {
			printSetlist(setlistOf(client.ClearOverride(ctx, &apiconnect.InstanceRequest{InstanceID: *setlistOverrideID})))
			break
		}
		printSetlist(setlistOf(client.SetOverride(ctx, &apiconnect.SetOverrideRequest{
			InstanceID: *setlistOverrideID,
			Duration:   *setlistOverrideDuration,
		})))
	case setlistClearCmd.FullCommand():
		printSetlist(setlistOf(client.Clear(ctx)))
	case setlistExportCmd.FullCommand():
		res, err := client.Export(ctx, &apiconnect.ExportRequest{Mode: *setlistExportMode, ShowName: *setlistExportName})
		check(err)
		fmt.Println(res.Text)
	case presetsListCmd.FullCommand():
		listPresets(ctx, client)
	case presetsSaveCmd.FullCommand():
		res, err := client.SavePreset(ctx, &apiconnect.SavePresetRequest{Name: *presetsSaveName})
		check(err)
		fmt.Printf("Preset saved: %s (%s, %d items, %s)\n", res.Preset.Name, res.Preset.ID, res.Preset.Count, res.Preset.Total)
	case presetsLoadCmd.FullCommand():
		printSetlist(setlistOf(client.LoadPreset(ctx, &apiconnect.PresetIDRequest{ID: *presetsLoadID})))
	case presetsDeleteCmd.FullCommand():
		check(client.DeletePreset(ctx, *presetsDeleteID))
		fmt.Println("Preset deleted")
	case watchCmd.FullCommand():
		watch(ctx, client)
	}
}

func check(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func setlistOf(res *apiconnect.SetlistResponse, err error) repertoire.SetlistView {
	check(err)
	return res.Setlist
}

func listSongs(ctx context.Context, client *apiconnect.Client) {
	res, err := client.ListSongs(ctx, &apiconnect.ListSongsRequest{
		Search:   *songsListSearch,
		Type:     *songsListType,
		Sort:     *songsListSort,
		Language: *songsListLang,
	})
	check(err)

	fmt.Printf("Songs (%d):\n", len(res.Songs))
	for _, s := range res.Songs {
		printSong(s)
	}
}

func addSong(ctx context.Context, client *apiconnect.Client) {
	s := song.Song{
		Title:    *songsAddTitle,
		Authors:  *songsAddAuthors,
		Duration: *songsAddDuration,
		Type:     song.TypeSong,
	}
	if *songsAddSpeech {
		s.Type = song.TypeSpeech
	}
	res, err := client.AddSong(ctx, &apiconnect.SongRequest{Song: s})
	check(err)
	fmt.Print("Song added: ")
	printSong(res.Song)
}

func importSongs(ctx context.Context, client *apiconnect.Client, source string) {
	if isSpotify(source) {
		if strings.Contains(source, "track") {
			res, err := client.ImportTrack(ctx, &apiconnect.ImportSpotifyRequest{URL: source})
			check(err)
			fmt.Print("Imported: ")
			printSong(res.Song)
			return
		}
		res, err := client.ImportPlaylist(ctx, &apiconnect.ImportSpotifyRequest{URL: source})
		check(err)
		fmt.Printf("Imported %d songs\n", res.Count)
		return
	}

	data, err := os.ReadFile(source)
	check(err)

	var res *apiconnect.ImportResponse
	if strings.HasSuffix(strings.ToLower(source), ".json") {
		res, err = client.ImportLibrary(ctx, &apiconnect.ImportLibraryRequest{Library: data})
	} else {
		res, err = client.ImportText(ctx, &apiconnect.ImportTextRequest{Text: string(data)})
	}
	check(err)
	fmt.Printf("Imported %d songs\n", res.Count)
}

func isSpotify(source string) bool {
	return strings.HasPrefix(source, "spotify:") || strings.Contains(source, "open.spotify.com")
}

func listPresets(ctx context.Context, client *apiconnect.Client) {
	res, err := client.ListPresets(ctx)
	check(err)

	fmt.Printf("Presets (%d):\n", len(res.Presets))
	for _, p := range res.Presets {
		fmt.Printf("  %s: %s (%d items, %s, saved %s)\n",
			p.ID, p.Name, p.Count, p.Total, p.SavedAt.Local().Format("2006-01-02 15:04"))
	}
}

func printSong(s song.Song) {
	kind := ""
	if s.IsSpeech() {
		kind = " [speech]"
	}
	if s.Authors != "" {
		fmt.Printf("  %s: %s - %s (%s)%s\n", s.ID, s.Title, s.Authors, s.Duration, kind)
		return
	}
	fmt.Printf("  %s: %s (%s)%s\n", s.ID, s.Title, s.Duration, kind)
}

func printSetlist(v repertoire.SetlistView) {
	fmt.Printf("Setlist (%d items, gap %ds):\n", len(v.Rows), v.GapSeconds)
	for _, r := range v.Rows {
		marker := ""
		if r.Overridden {
			marker = "*"
		}
		fmt.Printf("  %2d. [%s] %s %s%s  (%s)\n", r.Position, r.StartsAt, r.Title, r.Duration, marker, r.InstanceID)
	}
	fmt.Printf("Total: %s\n", v.Total)
}

func watch(ctx context.Context, client *apiconnect.Client) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.Watch(ctx)
	check(err)
	defer stream.Close()

	fmt.Println("Watching repertoire changes. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nStopping...")
		cancel()
	}()

	// Receive notifications
	for stream.Receive() {
		printEvent(stream.Msg())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printEvent(e *notification.Event) {
	fmt.Printf("[Sequence: %d] %s ", e.Seq, e.At.Local().Format("15:04:05"))

	switch e.Kind {
	case notification.KindState:
		fmt.Println("=== INITIAL STATE ===")
		if state, ok := e.Payload.(map[string]any); ok {
			fmt.Printf("  Songs: %d\n", countOf(state["library"]))
			fmt.Printf("  Setlist total: %v\n", totalOf(state["setlist"]))
			fmt.Printf("  Presets: %d\n", countOf(state["presets"]))
		}
	case notification.KindLibrary:
		fmt.Printf("=== LIBRARY CHANGED === %d songs\n", countOf(e.Payload))
	case notification.KindSetlist:
		fmt.Printf("=== SETLIST CHANGED === total %v\n", totalOf(e.Payload))
	case notification.KindPresets:
		fmt.Printf("=== PRESETS CHANGED === %d presets\n", countOf(e.Payload))
	default:
		fmt.Printf("=== UNKNOWN EVENT (%s) ===\n", e.Kind)
	}
}

func countOf(v any) int {
	items, _ := v.([]any)
	return len(items)
}

func totalOf(v any) any {
	if m, ok := v.(map[string]any); ok {
		return m["total"]
	}
	return "-"
}
