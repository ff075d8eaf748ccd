package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/osa030/showtime/internal/app/repertoire"
)

const (
	PresetServiceName = "showtime.v1.PresetService"

	PresetServiceListPresetsProcedure  = "/showtime.v1.PresetService/ListPresets"
	PresetServiceSavePresetProcedure   = "/showtime.v1.PresetService/SavePreset"
	PresetServiceLoadPresetProcedure   = "/showtime.v1.PresetService/LoadPreset"
	PresetServiceDeletePresetProcedure = "/showtime.v1.PresetService/DeletePreset"
)

// PresetService implements the PresetService RPC.
type PresetService struct {
	repertoire *repertoire.Manager
}

// NewPresetService creates a new PresetService.
func NewPresetService(m *repertoire.Manager) *PresetService {
	return &PresetService{repertoire: m}
}

// NewPresetServiceHandler builds an HTTP handler for every PresetService
// procedure and returns the path to mount it on.
func NewPresetServiceHandler(svc *PresetService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(PresetServiceListPresetsProcedure, connect.NewUnaryHandler(PresetServiceListPresetsProcedure, svc.ListPresets, opts...))
	mux.Handle(PresetServiceSavePresetProcedure, connect.NewUnaryHandler(PresetServiceSavePresetProcedure, svc.SavePreset, opts...))
	mux.Handle(PresetServiceLoadPresetProcedure, connect.NewUnaryHandler(PresetServiceLoadPresetProcedure, svc.LoadPreset, opts...))
	mux.Handle(PresetServiceDeletePresetProcedure, connect.NewUnaryHandler(PresetServiceDeletePresetProcedure, svc.DeletePreset, opts...))
	return "/" + PresetServiceName + "/", mux
}

// ListPresets returns the saved presets, oldest first.
func (s *PresetService) ListPresets(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ListPresetsResponse], error) {
	return connect.NewResponse(&ListPresetsResponse{Presets: s.repertoire.ListPresets()}), nil
}

// SavePreset stores the current show under a name.
func (s *PresetService) SavePreset(
	ctx context.Context,
	req *connect.Request[SavePresetRequest],
) (*connect.Response[PresetResponse], error) {
	p, err := s.repertoire.SavePreset(ctx, req.Msg.Name)
	return respond(&PresetResponse{Preset: p}, err)
}

// LoadPreset replaces the current show with a preset.
func (s *PresetService) LoadPreset(
	ctx context.Context,
	req *connect.Request[PresetIDRequest],
) (*connect.Response[SetlistResponse], error) {
	return setlistResponse(s.repertoire.LoadPreset(ctx, req.Msg.ID))
}

// DeletePreset removes a preset.
func (s *PresetService) DeletePreset(
	ctx context.Context,
	req *connect.Request[PresetIDRequest],
) (*connect.Response[Empty], error) {
	return respond(&Empty{}, s.repertoire.DeletePreset(ctx, req.Msg.ID))
}
