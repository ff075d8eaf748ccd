package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/osa030/showtime/internal/app/notification"
)

// Client calls the repertoire services of a running server.
type Client struct {
	listSongs      *connect.Client[ListSongsRequest, ListSongsResponse]
	getSong        *connect.Client[SongIDRequest, SongResponse]
	addSong        *connect.Client[SongRequest, SongResponse]
	updateSong     *connect.Client[SongRequest, SongResponse]
	deleteSong     *connect.Client[SongIDRequest, Empty]
	importLibrary  *connect.Client[ImportLibraryRequest, ImportResponse]
	importText     *connect.Client[ImportTextRequest, ImportResponse]
	importPlaylist *connect.Client[ImportSpotifyRequest, ImportResponse]
	importTrack    *connect.Client[ImportSpotifyRequest, SongResponse]

	getSetlist    *connect.Client[Empty, SetlistResponse]
	appendSong    *connect.Client[AppendRequest, SetlistResponse]
	remove        *connect.Client[InstanceRequest, SetlistResponse]
	reorder       *connect.Client[ReorderRequest, SetlistResponse]
	move          *connect.Client[MoveRequest, SetlistResponse]
	moveUp        *connect.Client[InstanceRequest, SetlistResponse]
	moveDown      *connect.Client[InstanceRequest, SetlistResponse]
	dropOn        *connect.Client[DropOnRequest, SetlistResponse]
	setOverride   *connect.Client[SetOverrideRequest, SetlistResponse]
	clearOverride *connect.Client[InstanceRequest, SetlistResponse]
	clearSetlist  *connect.Client[Empty, SetlistResponse]
	export        *connect.Client[ExportRequest, ExportResponse]
	watch         *connect.Client[Empty, notification.Event]

	listPresets  *connect.Client[Empty, ListPresetsResponse]
	savePreset   *connect.Client[SavePresetRequest, PresetResponse]
	loadPreset   *connect.Client[PresetIDRequest, SetlistResponse]
	deletePreset *connect.Client[PresetIDRequest, Empty]
}

// NewClient creates a client for the server at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec())}, opts...)
	return &Client{
		listSongs:      connect.NewClient[ListSongsRequest, ListSongsResponse](httpClient, baseURL+LibraryServiceListSongsProcedure, opts...),
		getSong:        connect.NewClient[SongIDRequest, SongResponse](httpClient, baseURL+LibraryServiceGetSongProcedure, opts...),
		addSong:        connect.NewClient[SongRequest, SongResponse](httpClient, baseURL+LibraryServiceAddSongProcedure, opts...),
		updateSong:     connect.NewClient[SongRequest, SongResponse](httpClient, baseURL+LibraryServiceUpdateSongProcedure, opts...),
		deleteSong:     connect.NewClient[SongIDRequest, Empty](httpClient, baseURL+LibraryServiceDeleteSongProcedure, opts...),
		importLibrary:  connect.NewClient[ImportLibraryRequest, ImportResponse](httpClient, baseURL+LibraryServiceImportLibraryProcedure, opts...),
		importText:     connect.NewClient[ImportTextRequest, ImportResponse](httpClient, baseURL+LibraryServiceImportTextProcedure, opts...),
		importPlaylist: connect.NewClient[ImportSpotifyRequest, ImportResponse](httpClient, baseURL+LibraryServiceImportPlaylistProcedure, opts...),
		importTrack:    connect.NewClient[ImportSpotifyRequest, SongResponse](httpClient, baseURL+LibraryServiceImportTrackProcedure, opts...),

		getSetlist:    connect.NewClient[Empty, SetlistResponse](httpClient, baseURL+SetlistServiceGetSetlistProcedure, opts...),
		appendSong:    connect.NewClient[AppendRequest, SetlistResponse](httpClient, baseURL+SetlistServiceAppendProcedure, opts...),
		remove:        connect.NewClient[InstanceRequest, SetlistResponse](httpClient, baseURL+SetlistServiceRemoveProcedure, opts...),
		reorder:       connect.NewClient[ReorderRequest, SetlistResponse](httpClient, baseURL+SetlistServiceReorderProcedure, opts...),
		move:          connect.NewClient[MoveRequest, SetlistResponse](httpClient, baseURL+SetlistServiceMoveProcedure, opts...),
		moveUp:        connect.NewClient[InstanceRequest, SetlistResponse](httpClient, baseURL+SetlistServiceMoveUpProcedure, opts...),
		moveDown:      connect.NewClient[InstanceRequest, SetlistResponse](httpClient, baseURL+SetlistServiceMoveDownProcedure, opts...),
		dropOn:        connect.NewClient[DropOnRequest, SetlistResponse](httpClient, baseURL+SetlistServiceDropOnProcedure, opts...),
		setOverride:   connect.NewClient[SetOverrideRequest, SetlistResponse](httpClient, baseURL+SetlistServiceSetOverrideProcedure, opts...),
		clearOverride: connect.NewClient[InstanceRequest, SetlistResponse](httpClient, baseURL+SetlistServiceClearOverrideProcedure, opts...),
		clearSetlist:  connect.NewClient[Empty, SetlistResponse](httpClient, baseURL+SetlistServiceClearProcedure, opts...),
		export:        connect.NewClient[ExportRequest, ExportResponse](httpClient, baseURL+SetlistServiceExportProcedure, opts...),
		watch:         connect.NewClient[Empty, notification.Event](httpClient, baseURL+SetlistServiceWatchProcedure, opts...),

		listPresets:  connect.NewClient[Empty, ListPresetsResponse](httpClient, baseURL+PresetServiceListPresetsProcedure, opts...),
		savePreset:   connect.NewClient[SavePresetRequest, PresetResponse](httpClient, baseURL+PresetServiceSavePresetProcedure, opts...),
		loadPreset:   connect.NewClient[PresetIDRequest, SetlistResponse](httpClient, baseURL+PresetServiceLoadPresetProcedure, opts...),
		deletePreset: connect.NewClient[PresetIDRequest, Empty](httpClient, baseURL+PresetServiceDeletePresetProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	res, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) ListSongs(ctx context.Context, req *ListSongsRequest) (*ListSongsResponse, error) {
	return call(ctx, c.listSongs, req)
}

func (c *Client) GetSong(ctx context.Context, id string) (*SongResponse, error) {
	return call(ctx, c.getSong, &SongIDRequest{ID: id})
}

func (c *Client) AddSong(ctx context.Context, req *SongRequest) (*SongResponse, error) {
	return call(ctx, c.addSong, req)
}

func (c *Client) UpdateSong(ctx context.Context, req *SongRequest) (*SongResponse, error) {
	return call(ctx, c.updateSong, req)
}

func (c *Client) DeleteSong(ctx context.Context, id string) error {
	_, err := call(ctx, c.deleteSong, &SongIDRequest{ID: id})
	return err
}

func (c *Client) ImportLibrary(ctx context.Context, req *ImportLibraryRequest) (*ImportResponse, error) {
	return call(ctx, c.importLibrary, req)
}

func (c *Client) ImportText(ctx context.Context, req *ImportTextRequest) (*ImportResponse, error) {
	return call(ctx, c.importText, req)
}

func (c *Client) ImportPlaylist(ctx context.Context, req *ImportSpotifyRequest) (*ImportResponse, error) {
	return call(ctx, c.importPlaylist, req)
}

func (c *Client) ImportTrack(ctx context.Context, req *ImportSpotifyRequest) (*SongResponse, error) {
	return call(ctx, c.importTrack, req)
}

func (c *Client) GetSetlist(ctx context.Context) (*SetlistResponse, error) {
	return call(ctx, c.getSetlist, &Empty{})
}

func (c *Client) Append(ctx context.Context, req *AppendRequest) (*SetlistResponse, error) {
	return call(ctx, c.appendSong, req)
}

func (c *Client) Remove(ctx context.Context, req *InstanceRequest) (*SetlistResponse, error) {
	return call(ctx, c.remove, req)
}

func (c *Client) Reorder(ctx context.Context, req *ReorderRequest) (*SetlistResponse, error) {
	return call(ctx, c.reorder, req)
}

func (c *Client) Move(ctx context.Context, req *MoveRequest) (*SetlistResponse, error) {
	return call(ctx, c.move, req)
}

func (c *Client) MoveUp(ctx context.Context, req *InstanceRequest) (*SetlistResponse, error) {
	return call(ctx, c.moveUp, req)
}

func (c *Client) MoveDown(ctx context.Context, req *InstanceRequest) (*SetlistResponse, error) {
	return call(ctx, c.moveDown, req)
}

func (c *Client) DropOn(ctx context.Context, req *DropOnRequest) (*SetlistResponse, error) {
	return call(ctx, c.dropOn, req)
}

func (c *Client) SetOverride(ctx context.Context, req *SetOverrideRequest) (*SetlistResponse, error) {
	return call(ctx, c.setOverride, req)
}

func (c *Client) ClearOverride(ctx context.Context, req *InstanceRequest) (*SetlistResponse, error) {
	return call(ctx, c.clearOverride, req)
}

func (c *Client) Clear(ctx context.Context) (*SetlistResponse, error) {
	return call(ctx, c.clearSetlist, &Empty{})
}

func (c *Client) Export(ctx context.Context, req *ExportRequest) (*ExportResponse, error) {
	return call(ctx, c.export, req)
}

// Watch opens the change stream. The caller must close it.
func (c *Client) Watch(ctx context.Context) (*connect.ServerStreamForClient[notification.Event], error) {
	return c.watch.CallServerStream(ctx, connect.NewRequest(&Empty{}))
}

func (c *Client) ListPresets(ctx context.Context) (*ListPresetsResponse, error) {
	return call(ctx, c.listPresets, &Empty{})
}

func (c *Client) SavePreset(ctx context.Context, req *SavePresetRequest) (*PresetResponse, error) {
	return call(ctx, c.savePreset, req)
}

func (c *Client) LoadPreset(ctx context.Context, req *PresetIDRequest) (*SetlistResponse, error) {
	return call(ctx, c.loadPreset, req)
}

func (c *Client) DeletePreset(ctx context.Context, id string) error {
	_, err := call(ctx, c.deletePreset, &PresetIDRequest{ID: id})
	return err
}
