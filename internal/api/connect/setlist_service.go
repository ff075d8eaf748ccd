package connect

import (
	"context"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/showtime/internal/app/export"
	"github.com/osa030/showtime/internal/app/notification"
	"github.com/osa030/showtime/internal/app/repertoire"
)

const (
	SetlistServiceName = "showtime.v1.SetlistService"

	SetlistServiceGetSetlistProcedure    = "/showtime.v1.SetlistService/GetSetlist"
	SetlistServiceAppendProcedure        = "/showtime.v1.SetlistService/Append"
	SetlistServiceRemoveProcedure        = "/showtime.v1.SetlistService/Remove"
	SetlistServiceReorderProcedure       = "/showtime.v1.SetlistService/Reorder"
	SetlistServiceMoveProcedure          = "/showtime.v1.SetlistService/Move"
	SetlistServiceMoveUpProcedure        = "/showtime.v1.SetlistService/MoveUp"
	SetlistServiceMoveDownProcedure      = "/showtime.v1.SetlistService/MoveDown"
	SetlistServiceDropOnProcedure        = "/showtime.v1.SetlistService/DropOn"
	SetlistServiceSetOverrideProcedure   = "/showtime.v1.SetlistService/SetOverride"
	SetlistServiceClearOverrideProcedure = "/showtime.v1.SetlistService/ClearOverride"
	SetlistServiceClearProcedure         = "/showtime.v1.SetlistService/Clear"
	SetlistServiceExportProcedure        = "/showtime.v1.SetlistService/Export"
	SetlistServiceWatchProcedure         = "/showtime.v1.SetlistService/Watch"
)

// SetlistService implements the SetlistService RPC.
type SetlistService struct {
	repertoire *repertoire.Manager
}

// NewSetlistService creates a new SetlistService.
func NewSetlistService(m *repertoire.Manager) *SetlistService {
	return &SetlistService{repertoire: m}
}

// NewSetlistServiceHandler builds an HTTP handler for every SetlistService
// procedure and returns the path to mount it on.
func NewSetlistServiceHandler(svc *SetlistService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(SetlistServiceGetSetlistProcedure, connect.NewUnaryHandler(SetlistServiceGetSetlistProcedure, svc.GetSetlist, opts...))
	mux.Handle(SetlistServiceAppendProcedure, connect.NewUnaryHandler(SetlistServiceAppendProcedure, svc.Append, opts...))
	mux.Handle(SetlistServiceRemoveProcedure, connect.NewUnaryHandler(SetlistServiceRemoveProcedure, svc.Remove, opts...))
	mux.Handle(SetlistServiceReorderProcedure, connect.NewUnaryHandler(SetlistServiceReorderProcedure, svc.Reorder, opts...))
	mux.Handle(SetlistServiceMoveProcedure, connect.NewUnaryHandler(SetlistServiceMoveProcedure, svc.Move, opts...))
	mux.Handle(SetlistServiceMoveUpProcedure, connect.NewUnaryHandler(SetlistServiceMoveUpProcedure, svc.MoveUp, opts...))
	mux.Handle(SetlistServiceMoveDownProcedure, connect.NewUnaryHandler(SetlistServiceMoveDownProcedure, svc.MoveDown, opts...))
	mux.Handle(SetlistServiceDropOnProcedure, connect.NewUnaryHandler(SetlistServiceDropOnProcedure, svc.DropOn, opts...))
	mux.Handle(SetlistServiceSetOverrideProcedure, connect.NewUnaryHandler(SetlistServiceSetOverrideProcedure, svc.SetOverride, opts...))
	mux.Handle(SetlistServiceClearOverrideProcedure, connect.NewUnaryHandler(SetlistServiceClearOverrideProcedure, svc.ClearOverride, opts...))
	mux.Handle(SetlistServiceClearProcedure, connect.NewUnaryHandler(SetlistServiceClearProcedure, svc.Clear, opts...))
	mux.Handle(SetlistServiceExportProcedure, connect.NewUnaryHandler(SetlistServiceExportProcedure, svc.Export, opts...))
	mux.Handle(SetlistServiceWatchProcedure, connect.NewServerStreamHandler(SetlistServiceWatchProcedure, svc.Watch, opts...))
	return "/" + SetlistServiceName + "/", mux
}

// GetSetlist returns the current show.
func (s *SetlistService) GetSetlist(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[SetlistResponse], error) {
	return connect.NewResponse(&SetlistResponse{Setlist: s.repertoire.Setlist()}), nil
}

// Append adds a song at the end of the show.
func (s *SetlistService) Append(
	ctx context.Context,
	req *connect.Request[AppendRequest],
) (*connect.Response[SetlistResponse], error) {
	return setlistResponse(s.repertoire.Append(ctx, req.Msg.SongID))
}

// Remove deletes an entry.
func (s *SetlistService) Remove(
	ctx context.Context,
	req *connect.Request[InstanceRequest],
) (*connect.Response[SetlistResponse], error) {
	return setlistResponse(s.repertoire.Remove(ctx, req.Msg.InstanceID))
}

// Reorder moves the entry at one position to another.
func (s *SetlistService) Reorder(
	ctx context.Context,
	req *connect.Request[ReorderRequest],
) (*connect.Response[SetlistResponse], error) {
	return setlistResponse(s.repertoire.Reorder(ctx, req.Msg.From, req.Msg.To))
}

// Move places an entry at a position.
func (s *SetlistService) Move(
	ctx context.Context,
	req *connect.Request[MoveRequest],
) (*connect.Response[SetlistResponse], error) {
	return setlistResponse(s.repertoire.Move(ctx, req.Msg.InstanceID, req.Msg.Position))
}

// MoveUp moves an entry one position towards the start.
func (s *SetlistService) MoveUp(
	ctx context.Context,
	req *connect.Request[InstanceRequest],
) (*connect.Response[SetlistResponse], error) {
	return setlistResponse(s.repertoire.MoveUp(ctx, req.Msg.InstanceID))
}

// MoveDown moves an entry one position towards the end.
func (s *SetlistService) MoveDown(
	ctx context.Context,
	req *connect.Request[InstanceRequest],
) (*connect.Response[SetlistResponse], error) {
	return setlistResponse(s.repertoire.MoveDown(ctx, req.Msg.InstanceID))
}

// DropOn moves an entry onto the position of another.
func (s *SetlistService) DropOn(
	ctx context.Context,
	req *connect.Request[DropOnRequest],
) (*connect.Response[SetlistResponse], error) {
	return setlistResponse(s.repertoire.DropOn(ctx, req.Msg.InstanceID, req.Msg.OverInstanceID))
}

// SetOverride sets the per-show duration of an entry.
func (s *SetlistService) SetOverride(
	ctx context.Context,
	req *connect.Request[SetOverrideRequest],
) (*connect.Response[SetlistResponse], error) {
	return setlistResponse(s.repertoire.SetOverride(ctx, req.Msg.InstanceID, req.Msg.Duration))
}

// ClearOverride drops the per-show duration of an entry.
func (s *SetlistService) ClearOverride(
	ctx context.Context,
	req *connect.Request[InstanceRequest],
) (*connect.Response[SetlistResponse], error) {
	return setlistResponse(s.repertoire.ClearOverride(ctx, req.Msg.InstanceID))
}

// Clear empties the show.
func (s *SetlistService) Clear(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[SetlistResponse], error) {
	return setlistResponse(s.repertoire.Clear(ctx))
}

// Export renders the show as text.
func (s *SetlistService) Export(
	ctx context.Context,
	req *connect.Request[ExportRequest],
) (*connect.Response[ExportResponse], error) {
	mode, err := export.ParseMode(req.Msg.Mode)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ExportResponse{Text: s.repertoire.Export(mode, req.Msg.ShowName)}), nil
}

// Watch streams the full state followed by every change until the client
// goes away or the server shuts down.
func (s *SetlistService) Watch(
	ctx context.Context,
	req *connect.Request[Empty],
	stream *connect.ServerStream[notification.Event],
) error {
	notifications := s.repertoire.Notifications()

	// Subscribe first so nothing between the initial state and the
	// subscription is lost. Events stamped before the initial state are stale.
	adapter := &eventStreamAdapter{stream: stream}
	adapter.mu.Lock()
	subscriptionID := notifications.Subscribe(adapter)
	defer notifications.Unsubscribe(subscriptionID)

	initial := notifications.Stamp(notification.KindState, s.repertoire.State())
	adapter.minSeq = initial.Seq
	err := stream.Send(initial)
	adapter.mu.Unlock()
	if err != nil {
		adapter.close()
		return err
	}

	select {
	case <-ctx.Done():
	case <-notifications.Done():
	}
	adapter.close()
	return nil
}

var errStreamClosed = errors.New("stream closed")

// eventStreamAdapter adapts connect.ServerStream to notification.Stream.
// Sends are serialized since broadcasts of different kinds may overlap.
type eventStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[notification.Event]
	minSeq uint64
	closed bool
}

func (a *eventStreamAdapter) Send(event *notification.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errStreamClosed
	}
	if event.Seq < a.minSeq {
		return nil
	}
	return a.stream.Send(event)
}

func (a *eventStreamAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}

func setlistResponse(view repertoire.SetlistView, err error) (*connect.Response[SetlistResponse], error) {
	return respond(&SetlistResponse{Setlist: view}, err)
}
