// Package repertoire provides the repertoire manager: the shared song
// library, the live setlist and its presets kept in sync with the store.
package repertoire

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"github.com/osa030/showtime/internal/app/filter"
	"github.com/osa030/showtime/internal/app/importer"
	"github.com/osa030/showtime/internal/app/notification"
	"github.com/osa030/showtime/internal/domain/setlist"
	"github.com/osa030/showtime/internal/domain/song"
	"github.com/osa030/showtime/internal/infra/store"
)

// SongCollection holds the library.
const SongCollection = "songs"

// Manager keeps the latest library, setlist and preset snapshots received
// from the store and applies edits as read-modify-write of whole documents.
// Concurrent writers elsewhere are not coordinated: the last write wins.
type Manager struct {
	gateway      store.Gateway
	notification *notification.Manager
	tracks       importer.TrackSource
	filters      *filter.Chain

	gapSeconds int
	language   language.Tag
	newID      setlist.IDFunc
	now        func() time.Time

	mu      sync.RWMutex
	songs   []song.Song
	index   map[string]song.Song
	current setlist.Setlist
	presets []setlist.Preset
	started bool

	// writeMu serializes read-modify-write cycles of this process.
	writeMu sync.Mutex

	cancel context.CancelFunc
	subs   []func()
	wg     sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithGapSeconds sets the pause counted between entries.
func WithGapSeconds(gap int) Option {
	return func(m *Manager) { m.gapSeconds = gap }
}

// WithLanguage sets the default collation for title sorting.
func WithLanguage(tag language.Tag) Option {
	return func(m *Manager) { m.language = tag }
}

// WithIDFunc overrides identity generation.
func WithIDFunc(fn setlist.IDFunc) Option {
	return func(m *Manager) { m.newID = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTrackSource enables Spotify imports.
func WithTrackSource(src importer.TrackSource) Option {
	return func(m *Manager) { m.tracks = src }
}

// WithImportFilters screens Spotify tracks before they are imported.
func WithImportFilters(chain *filter.Chain) Option {
	return func(m *Manager) { m.filters = chain }
}

// WithNotificationManager shares an existing notification manager.
func WithNotificationManager(n *notification.Manager) Option {
	return func(m *Manager) { m.notification = n }
}

// NewManager creates a repertoire manager over gateway.
func NewManager(gateway store.Gateway, opts ...Option) *Manager {
	m := &Manager{
		gateway:      gateway,
		notification: notification.NewManager(),
		gapSeconds:   setlist.DefaultGapSeconds,
		language:     language.Spanish,
		newID:        func() string { return uuid.New().String() },
		now:          time.Now,
		index:        map[string]song.Song{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Notifications returns the manager broadcasting snapshot changes.
func (m *Manager) Notifications() *notification.Manager {
	return m.notification
}

// GapSeconds returns the configured pause between entries.
func (m *Manager) GapSeconds() int {
	return m.gapSeconds
}

// Start subscribes to the library, the presets and the current setlist.
// It returns once the first snapshot of each has been applied.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	fail := func(err error) error {
		m.stop()
		m.mu.Lock()
		m.started = false
		m.mu.Unlock()
		return err
	}

	songsSub, err := m.gateway.SubscribeCollection(ctx, SongCollection)
	if err != nil {
		return fail(gatewayError(err, "failed to subscribe to %s", SongCollection))
	}
	m.subs = append(m.subs, songsSub.Unsubscribe)

	presetsSub, err := m.gateway.SubscribeCollection(ctx, setlist.PresetCollection)
	if err != nil {
		return fail(gatewayError(err, "failed to subscribe to %s", setlist.PresetCollection))
	}
	m.subs = append(m.subs, presetsSub.Unsubscribe)

	setlistSub, err := m.gateway.SubscribeDocument(ctx, setlist.StateCollection, setlist.CurrentSetlistID, emptySetlistFields())
	if err != nil {
		return fail(gatewayError(err, "failed to subscribe to %s/%s", setlist.StateCollection, setlist.CurrentSetlistID))
	}
	m.subs = append(m.subs, setlistSub.Unsubscribe)

	if err := first(ctx, songsSub, m.applySongs); err != nil {
		return fail(err)
	}
	if err := first(ctx, presetsSub, m.applyPresets); err != nil {
		return fail(err)
	}
	if err := first(ctx, setlistSub, m.applySetlist); err != nil {
		return fail(err)
	}

	m.wg.Add(3)
	go consume(&m.wg, songsSub, m.applySongs)
	go consume(&m.wg, presetsSub, m.applyPresets)
	go consume(&m.wg, setlistSub, m.applySetlist)

	zlog.Info().Msgf("Repertoire started: songs=%d presets=%d setlist=%d",
		len(m.Songs()), len(m.ListPresets()), len(m.Setlist().Items))
	return nil
}

// Close stops all subscriptions and drops notification subscribers.
func (m *Manager) Close() {
	m.stop()
	m.notification.Close()
}

func (m *Manager) stop() {
	if m.cancel != nil {
		m.cancel()
	}
	for _, unsubscribe := range m.subs {
		unsubscribe()
	}
	m.subs = nil
	m.wg.Wait()
}

func first[T any](ctx context.Context, sub *store.Subscription[T], apply func(T)) error {
	select {
	case v, ok := <-sub.C:
		if !ok {
			return errors.Mark(errors.New("subscription closed before the first snapshot"), ErrUnavailable)
		}
		apply(v)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func consume[T any](wg *sync.WaitGroup, sub *store.Subscription[T], apply func(T)) {
	defer wg.Done()
	for v := range sub.C {
		apply(v)
	}
}

func (m *Manager) applySongs(docs []store.Document) {
	songs := make([]song.Song, 0, len(docs))
	for _, doc := range docs {
		var s song.Song
		if err := store.DecodeDocument(doc, &s); err != nil {
			zlog.Warn().Err(err).Msgf("Skipping unreadable song: id=%s", doc.ID)
			continue
		}
		songs = append(songs, s)
	}

	m.mu.Lock()
	m.songs = songs
	m.index = song.Index(songs)
	m.mu.Unlock()

	zlog.Debug().Msgf("Library snapshot: songs=%d", len(songs))
	m.notification.Broadcast(notification.KindLibrary, songs)
	// titles and durations shown in the setlist and presets depend on the library
	m.notification.Broadcast(notification.KindSetlist, m.Setlist())
	m.notification.Broadcast(notification.KindPresets, m.ListPresets())
}

func (m *Manager) applyPresets(docs []store.Document) {
	presets := make([]setlist.Preset, 0, len(docs))
	for _, doc := range docs {
		var p setlist.Preset
		if err := store.DecodeDocument(doc, &p); err != nil {
			zlog.Warn().Err(err).Msgf("Skipping unreadable preset: id=%s", doc.ID)
			continue
		}
		presets = append(presets, p)
	}
	sort.SliceStable(presets, func(i, j int) bool {
		return presets[i].SavedAt.Before(presets[j].SavedAt)
	})

	m.mu.Lock()
	m.presets = presets
	m.mu.Unlock()

	zlog.Debug().Msgf("Presets snapshot: presets=%d", len(presets))
	m.notification.Broadcast(notification.KindPresets, m.ListPresets())
}

func (m *Manager) applySetlist(doc store.Document) {
	s, err := decodeSetlist(doc)
	if err != nil {
		zlog.Warn().Err(err).Msg("Ignoring unreadable setlist snapshot")
		return
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	zlog.Debug().Msgf("Setlist snapshot: entries=%d", s.Len())
	m.notification.Broadcast(notification.KindSetlist, m.Setlist())
}

// State returns the full current state.
func (m *Manager) State() State {
	return State{
		Library: m.Songs(),
		Setlist: m.Setlist(),
		Presets: m.ListPresets(),
	}
}

// lookup resolves songs against the current library snapshot.
func (m *Manager) lookup() setlist.Lookup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return setlist.LookupFrom(m.index)
}

// freshLookup falls back to the store for songs not yet in the snapshot.
func (m *Manager) freshLookup(ctx context.Context) setlist.Lookup {
	cached := m.lookup()
	return func(id string) (song.Song, bool) {
		if s, ok := cached(id); ok {
			return s, true
		}
		doc, err := m.gateway.GetDocument(ctx, SongCollection, id)
		if err != nil {
			return song.Song{}, false
		}
		var s song.Song
		if err := store.DecodeDocument(doc, &s); err != nil {
			return song.Song{}, false
		}
		return s, true
	}
}

func (m *Manager) editor(lookup setlist.Lookup) *setlist.Editor {
	return setlist.NewEditor(lookup, setlist.WithIDFunc(m.newID), setlist.WithClock(m.now))
}

func emptySetlistFields() map[string]any {
	return map[string]any{"items": []any{}}
}

func decodeSetlist(doc store.Document) (setlist.Setlist, error) {
	var s setlist.Setlist
	if err := store.DecodeDocument(doc, &s); err != nil {
		return setlist.Setlist{}, err
	}
	if s.Items == nil {
		s.Items = []setlist.Entry{}
	}
	return s, nil
}
