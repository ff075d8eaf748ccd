// Package httpapi provides the HTTP router serving exports, imports, the
// websocket feed and the Connect services.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/osa030/showtime/internal/app/repertoire"
	"github.com/osa030/showtime/internal/infra/config"
)

const maxImportBytes = 10 << 20

// Mount is an extra handler served under a path prefix.
type Mount struct {
	Path    string
	Handler http.Handler
}

// Server serves the repertoire over plain HTTP.
type Server struct {
	repertoire *repertoire.Manager
	websocket  http.Handler
	services   []Mount
	limiter    *ipLimiter
}

// NewServer creates a new Server. services are rate limited like every
// other mutating route.
func NewServer(m *repertoire.Manager, cfg config.ServerConfig, websocket http.Handler, services ...Mount) *Server {
	s := &Server{
		repertoire: m,
		websocket:  websocket,
		services:   services,
	}
	if cfg.RateLimit.RequestsPerSecond >= 0 {
		s.limiter = newIPLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	return s
}

// Router builds the chi router.
func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)
	if s.websocket != nil {
		r.Method(http.MethodGet, "/ws", s.websocket)
	}

	r.Get("/export/setlist.txt", s.handleExportText)
	r.Get("/export/setlist.html", s.handleExportHTML)
	r.Get("/export/library.json", s.handleExportLibrary)

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Post("/import/library.json", s.handleImportLibrary)
		r.Post("/import/library.txt", s.handleImportText)
		for _, m := range s.services {
			r.Handle(m.Path+"*", m.Handler)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "showtime",
		"songs":   len(s.repertoire.Songs()),
		"entries": len(s.repertoire.Setlist().Items),
	})
}
