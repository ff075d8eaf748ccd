package connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"golang.org/x/text/language"

	"github.com/osa030/showtime/internal/app/repertoire"
	"github.com/osa030/showtime/internal/domain/song"
	"github.com/osa030/showtime/internal/domain/validation"
)

const (
	LibraryServiceName = "showtime.v1.LibraryService"

	LibraryServiceListSongsProcedure      = "/showtime.v1.LibraryService/ListSongs"
	LibraryServiceGetSongProcedure        = "/showtime.v1.LibraryService/GetSong"
	LibraryServiceAddSongProcedure        = "/showtime.v1.LibraryService/AddSong"
	LibraryServiceUpdateSongProcedure     = "/showtime.v1.LibraryService/UpdateSong"
	LibraryServiceDeleteSongProcedure     = "/showtime.v1.LibraryService/DeleteSong"
	LibraryServiceImportLibraryProcedure  = "/showtime.v1.LibraryService/ImportLibrary"
	LibraryServiceImportTextProcedure     = "/showtime.v1.LibraryService/ImportText"
	LibraryServiceImportPlaylistProcedure = "/showtime.v1.LibraryService/ImportPlaylist"
	LibraryServiceImportTrackProcedure    = "/showtime.v1.LibraryService/ImportTrack"
)

// LibraryService implements the LibraryService RPC.
type LibraryService struct {
	repertoire *repertoire.Manager
}

// NewLibraryService creates a new LibraryService.
func NewLibraryService(m *repertoire.Manager) *LibraryService {
	return &LibraryService{repertoire: m}
}

// NewLibraryServiceHandler builds an HTTP handler for every LibraryService
// procedure and returns the path to mount it on.
func NewLibraryServiceHandler(svc *LibraryService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(LibraryServiceListSongsProcedure, connect.NewUnaryHandler(LibraryServiceListSongsProcedure, svc.ListSongs, opts...))
	mux.Handle(LibraryServiceGetSongProcedure, connect.NewUnaryHandler(LibraryServiceGetSongProcedure, svc.GetSong, opts...))
	mux.Handle(LibraryServiceAddSongProcedure, connect.NewUnaryHandler(LibraryServiceAddSongProcedure, svc.AddSong, opts...))
	mux.Handle(LibraryServiceUpdateSongProcedure, connect.NewUnaryHandler(LibraryServiceUpdateSongProcedure, svc.UpdateSong, opts...))
	mux.Handle(LibraryServiceDeleteSongProcedure, connect.NewUnaryHandler(LibraryServiceDeleteSongProcedure, svc.DeleteSong, opts...))
	mux.Handle(LibraryServiceImportLibraryProcedure, connect.NewUnaryHandler(LibraryServiceImportLibraryProcedure, svc.ImportLibrary, opts...))
	mux.Handle(LibraryServiceImportTextProcedure, connect.NewUnaryHandler(LibraryServiceImportTextProcedure, svc.ImportText, opts...))
	mux.Handle(LibraryServiceImportPlaylistProcedure, connect.NewUnaryHandler(LibraryServiceImportPlaylistProcedure, svc.ImportPlaylist, opts...))
	mux.Handle(LibraryServiceImportTrackProcedure, connect.NewUnaryHandler(LibraryServiceImportTrackProcedure, svc.ImportTrack, opts...))
	return "/" + LibraryServiceName + "/", mux
}

// ListSongs returns the filtered and sorted library.
func (s *LibraryService) ListSongs(
	ctx context.Context,
	req *connect.Request[ListSongsRequest],
) (*connect.Response[ListSongsResponse], error) {
	q := song.Query{
		Search: req.Msg.Search,
		Type:   song.ParseTypeFilter(req.Msg.Type),
		Sort:   song.ParseSortKey(req.Msg.Sort),
	}
	if tag := strings.TrimSpace(req.Msg.Language); tag != "" {
		parsed, err := language.Parse(tag)
		if err != nil {
			return nil, toConnectError(validation.Newf("invalid language %q", tag))
		}
		q.Language = parsed
	}
	return connect.NewResponse(&ListSongsResponse{Songs: s.repertoire.ListSongs(q)}), nil
}

// GetSong returns one library entry.
func (s *LibraryService) GetSong(
	ctx context.Context,
	req *connect.Request[SongIDRequest],
) (*connect.Response[SongResponse], error) {
	found, err := s.repertoire.GetSong(req.Msg.ID)
	return respond(&SongResponse{Song: found}, err)
}

// AddSong creates a library entry.
func (s *LibraryService) AddSong(
	ctx context.Context,
	req *connect.Request[SongRequest],
) (*connect.Response[SongResponse], error) {
	added, err := s.repertoire.AddSong(ctx, req.Msg.Song)
	return respond(&SongResponse{Song: added}, err)
}

// UpdateSong replaces a library entry.
func (s *LibraryService) UpdateSong(
	ctx context.Context,
	req *connect.Request[SongRequest],
) (*connect.Response[SongResponse], error) {
	updated, err := s.repertoire.UpdateSong(ctx, req.Msg.Song)
	return respond(&SongResponse{Song: updated}, err)
}

// DeleteSong removes a library entry.
func (s *LibraryService) DeleteSong(
	ctx context.Context,
	req *connect.Request[SongIDRequest],
) (*connect.Response[Empty], error) {
	return respond(&Empty{}, s.repertoire.DeleteSong(ctx, req.Msg.ID))
}

// ImportLibrary adds the songs of a JSON library export.
func (s *LibraryService) ImportLibrary(
	ctx context.Context,
	req *connect.Request[ImportLibraryRequest],
) (*connect.Response[ImportResponse], error) {
	return imported(s.repertoire.ImportSongs(ctx, req.Msg.Library))
}

// ImportText adds the songs of a plain-text listing.
func (s *LibraryService) ImportText(
	ctx context.Context,
	req *connect.Request[ImportTextRequest],
) (*connect.Response[ImportResponse], error) {
	return imported(s.repertoire.ImportText(ctx, strings.NewReader(req.Msg.Text)))
}

// ImportPlaylist adds every track of a Spotify playlist.
func (s *LibraryService) ImportPlaylist(
	ctx context.Context,
	req *connect.Request[ImportSpotifyRequest],
) (*connect.Response[ImportResponse], error) {
	return imported(s.repertoire.ImportPlaylist(ctx, req.Msg.URL))
}

// ImportTrack adds a single Spotify track.
func (s *LibraryService) ImportTrack(
	ctx context.Context,
	req *connect.Request[ImportSpotifyRequest],
) (*connect.Response[SongResponse], error) {
	added, err := s.repertoire.ImportTrack(ctx, req.Msg.URL)
	return respond(&SongResponse{Song: added}, err)
}

func imported(songs []song.Song, err error) (*connect.Response[ImportResponse], error) {
	return respond(&ImportResponse{Count: len(songs), Songs: songs}, err)
}
