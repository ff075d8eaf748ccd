package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Gateway. Subscribers are notified
// synchronously while the write lock is held, so snapshots arrive in
// write order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	collSubs    map[string]map[string]*feed[[]Document]
	docSubs     map[string]map[string]*docFeed
	closed      bool
}

type docFeed struct {
	*feed[Document]
	collection string
	id         string
	defaults   map[string]any
}

var _ Gateway = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]any),
		collSubs:    make(map[string]map[string]*feed[[]Document]),
		docSubs:     make(map[string]map[string]*docFeed),
	}
}

func docKey(collection, id string) string {
	return collection + "/" + id
}

// SubscribeCollection implements Gateway.
func (m *MemoryStore) SubscribeCollection(ctx context.Context, collection string) (*Subscription[[]Document], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	subID := uuid.New().String()
	f := newFeed[[]Document]()
	if m.collSubs[collection] == nil {
		m.collSubs[collection] = make(map[string]*feed[[]Document])
	}
	m.collSubs[collection][subID] = f
	f.push(m.snapshotLocked(collection))

	stop := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if subs, ok := m.collSubs[collection]; ok {
			if _, ok := subs[subID]; ok {
				delete(subs, subID)
				f.close()
			}
		}
	}
	sub := &Subscription[[]Document]{C: f.ch, stop: stop}
	go func() {
		<-ctx.Done()
		sub.Unsubscribe()
	}()
	return sub, nil
}

// SubscribeDocument implements Gateway.
func (m *MemoryStore) SubscribeDocument(ctx context.Context, collection, id string, defaults map[string]any) (*Subscription[Document], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	key := docKey(collection, id)
	subID := uuid.New().String()
	f := &docFeed{
		feed:       newFeed[Document](),
		collection: collection,
		id:         id,
		defaults:   cloneFields(defaults),
	}
	if m.docSubs[key] == nil {
		m.docSubs[key] = make(map[string]*docFeed)
	}
	m.docSubs[key][subID] = f
	f.push(m.documentLocked(collection, id, f.defaults))

	stop := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if subs, ok := m.docSubs[key]; ok {
			if _, ok := subs[subID]; ok {
				delete(subs, subID)
				f.close()
			}
		}
	}
	sub := &Subscription[Document]{C: f.ch, stop: stop}
	go func() {
		<-ctx.Done()
		sub.Unsubscribe()
	}()
	return sub, nil
}

// WriteDocument implements Gateway.
func (m *MemoryStore) WriteDocument(_ context.Context, collection, id string, fields map[string]any, mergeFields bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	docs := m.collections[collection]
	if docs == nil {
		docs = make(map[string]map[string]any)
		m.collections[collection] = docs
	}
	next := cloneFields(fields)
	if next == nil {
		next = map[string]any{}
	}
	if cur, ok := docs[id]; ok && mergeFields {
		next = merge(cur, next)
	}
	docs[id] = next
	m.notifyLocked(collection, id)
	return nil
}

// DeleteDocument implements Gateway.
func (m *MemoryStore) DeleteDocument(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	docs := m.collections[collection]
	if _, ok := docs[id]; !ok {
		return nil
	}
	delete(docs, id)
	m.notifyLocked(collection, id)
	return nil
}

// GetCollection implements Gateway.
func (m *MemoryStore) GetCollection(_ context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.snapshotLocked(collection), nil
}

// GetDocument implements Gateway.
func (m *MemoryStore) GetDocument(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Document{}, ErrClosed
	}
	fields, ok := m.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: cloneFields(fields)}, nil
}

// Close ends every subscription.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, subs := range m.collSubs {
		for _, f := range subs {
			f.close()
		}
	}
	for _, subs := range m.docSubs {
		for _, f := range subs {
			f.close()
		}
	}
	m.collSubs = make(map[string]map[string]*feed[[]Document])
	m.docSubs = make(map[string]map[string]*docFeed)
	return nil
}

func (m *MemoryStore) notifyLocked(collection, id string) {
	if subs := m.collSubs[collection]; len(subs) > 0 {
		for _, f := range subs {
			f.push(m.snapshotLocked(collection))
		}
	}
	for _, f := range m.docSubs[docKey(collection, id)] {
		f.push(m.documentLocked(collection, id, f.defaults))
	}
}

func (m *MemoryStore) snapshotLocked(collection string) []Document {
	docs := m.collections[collection]
	out := make([]Document, 0, len(docs))
	for id, fields := range docs {
		out = append(out, Document{ID: id, Fields: cloneFields(fields)})
	}
	sortDocuments(out)
	return out
}

func (m *MemoryStore) documentLocked(collection, id string, defaults map[string]any) Document {
	if fields, ok := m.collections[collection][id]; ok {
		return Document{ID: id, Fields: cloneFields(fields)}
	}
	fields := cloneFields(defaults)
	if fields == nil {
		fields = map[string]any{}
	}
	return Document{ID: id, Fields: fields}
}
