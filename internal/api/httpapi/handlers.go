package httpapi

import (
	"bytes"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/showtime/internal/app/export"
	"github.com/osa030/showtime/internal/app/repertoire"
	"github.com/osa030/showtime/internal/domain/song"
)

func (s *Server) handleExportText(w http.ResponseWriter, r *http.Request) {
	mode, err := export.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, s.repertoire.Export(mode, r.URL.Query().Get("name")))
}

func (s *Server) handleExportHTML(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.repertoire.PrintSheet(&buf, r.URL.Query().Get("name")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExportLibrary(w http.ResponseWriter, r *http.Request) {
	data, err := s.repertoire.ExportSongs()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="library.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImportLibrary(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	songs, err := s.repertoire.ImportSongs(r.Context(), data)
	writeImport(w, songs, err)
}

func (s *Server) handleImportText(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	songs, err := s.repertoire.ImportText(r.Context(), bytes.NewReader(data))
	writeImport(w, songs, err)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read request body")
	}
	return data, nil
}

func writeImport(w http.ResponseWriter, songs []song.Song, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(songs),
		"songs": songs,
	})
}

// statusOf maps repertoire errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, repertoire.ErrValidation), errors.Is(err, repertoire.ErrInvalidImport):
		return http.StatusBadRequest
	case errors.Is(err, repertoire.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repertoire.ErrNotConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, repertoire.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		zlog.Error().Err(err).Msg("Request failed")
	}
	writeError(w, status, err.Error())
}
