package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/showtime/internal/app/repertoire"
	"github.com/osa030/showtime/internal/domain/song"
	"github.com/osa030/showtime/internal/infra/config"
	"github.com/osa030/showtime/internal/infra/store"
)

func newTestManager(t *testing.T) *repertoire.Manager {
	t.Helper()
	gw := store.NewMemoryStore()
	m := repertoire.NewManager(gw)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() {
		m.Close()
		_ = gw.Close()
	})
	return m
}

func unlimited() config.ServerConfig {
	return config.ServerConfig{RateLimit: config.RateLimitConfig{RequestsPerSecond: -1, Burst: 1}}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	m := newTestManager(t)
	h := NewServer(m, unlimited(), nil).Router()

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"showtime","songs":0,"entries":0}`, rec.Body.String())
}

func TestServer_ImportAndExport(t *testing.T) {
	m := newTestManager(t)
	h := NewServer(m, unlimited(), nil).Router(DefaultMiddlewares()...)

	rec := do(t, h, http.MethodPost, "/import/library.json",
		`[{"id":"zamba","title":"Zamba","authors":"Diego","duration":"3:00"},{"id":"intro","title":"Intro","duration":"45","type":"speech"}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var imported struct {
		Count int         `json:"count"`
		Songs []song.Song `json:"songs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &imported))
	assert.Equal(t, 2, imported.Count)

	require.Eventually(t, func() bool {
		return len(m.Songs()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	_, err := m.Append(ctx, "zamba")
	require.NoError(t, err)
	_, err = m.Append(ctx, "intro")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(m.Setlist().Items) == 2
	}, 2*time.Second, 10*time.Millisecond)

	rec = do(t, h, http.MethodGet, "/export/setlist.txt?mode=basic", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1. Zamba\n2. Intro\n\nTotal: 03:55", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/export/setlist.txt?name=Gala", "")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Show: Gala\n"))

	rec = do(t, h, http.MethodGet, "/export/setlist.txt?mode=fancy", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/export/setlist.html?name=Gala", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Gala")
	assert.Contains(t, rec.Body.String(), "03:55")

	rec = do(t, h, http.MethodGet, "/export/library.json", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "library.json")
	var exported []song.Song
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exported))
	assert.Len(t, exported, 2)
}

func TestServer_ImportErrors(t *testing.T) {
	m := newTestManager(t)
	h := NewServer(m, unlimited(), nil).Router()

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{name: "not an array", target: "/import/library.json", body: `{"title":"x"}`, status: http.StatusBadRequest},
		{name: "missing duration", target: "/import/library.json", body: `[{"title":"x"}]`, status: http.StatusBadRequest},
		{name: "empty text", target: "/import/library.txt", body: "\n\n", status: http.StatusBadRequest},
		{name: "text", target: "/import/library.txt", body: "Chacarera\ntiempo: 2:30\n", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_RateLimit(t *testing.T) {
	m := newTestManager(t)
	cfg := config.ServerConfig{RateLimit: config.RateLimitConfig{RequestsPerSecond: 0, Burst: 2}}
	h := NewServer(m, cfg, nil).Router()

	body := `[{"title":"x","duration":"1:00"}]`
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/import/library.json", body).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/import/library.json", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodPost, "/import/library.json", body).Code)

	// reads are never limited
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
}

func TestServer_Mounts(t *testing.T) {
	m := newTestManager(t)
	called := ""
	svc := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := NewServer(m, unlimited(), ws, Mount{Path: "/showtime.v1.SetlistService/", Handler: svc}).Router()

	rec := do(t, h, http.MethodPost, "/showtime.v1.SetlistService/Append", "{}")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/showtime.v1.SetlistService/Append", called)

	assert.Equal(t, http.StatusTeapot, do(t, h, http.MethodGet, "/ws", "").Code)
}

func TestIPLimiter_Sweep(t *testing.T) {
	now := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	l := newIPLimiter(1, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))

	now = now.Add(limiterIdle + time.Second)
	assert.True(t, l.allow("10.0.0.3"))
	assert.Len(t, l.visitors, 1)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{errors.Mark(errors.New("x"), repertoire.ErrValidation), http.StatusBadRequest},
		{errors.Mark(errors.New("x"), repertoire.ErrInvalidImport), http.StatusBadRequest},
		{errors.Mark(errors.New("x"), repertoire.ErrNotFound), http.StatusNotFound},
		{errors.Mark(errors.New("x"), repertoire.ErrNotConfigured), http.StatusPreconditionFailed},
		{errors.Mark(errors.New("x"), repertoire.ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusOf(tt.err), tt.err.Error())
	}
}
