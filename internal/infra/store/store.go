// Package store provides the shared document store behind the repertoire:
// named collections of documents with real-time subscriptions.
//
// Writes replace or shallow-merge whole documents and the last write wins.
// There is no versioning.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrClosed   = errors.New("store is closed")
)

// Document is one stored record. Fields hold JSON-compatible values.
type Document struct {
	ID     string
	Fields map[string]any
}

// Gateway is the persistence collaborator used by the application layer.
type Gateway interface {
	// SubscribeCollection delivers the full collection now and after every change.
	SubscribeCollection(ctx context.Context, collection string) (*Subscription[[]Document], error)
	// SubscribeDocument delivers one document now and after every change.
	// defaults stands in while the document does not exist.
	SubscribeDocument(ctx context.Context, collection, id string, defaults map[string]any) (*Subscription[Document], error)
	// WriteDocument upserts a document. With merge the given top-level fields
	// are merged into the stored ones; otherwise the document is replaced.
	WriteDocument(ctx context.Context, collection, id string, fields map[string]any, merge bool) error
	DeleteDocument(ctx context.Context, collection, id string) error
	GetCollection(ctx context.Context, collection string) ([]Document, error)
	GetDocument(ctx context.Context, collection, id string) (Document, error)
	Close() error
}

// Subscription is a live view of a collection or document.
// C always holds the most recent undelivered snapshot; older undelivered
// snapshots are dropped. C is closed after Unsubscribe or when the
// subscription context ends.
type Subscription[T any] struct {
	C <-chan T

	once sync.Once
	stop func()
}

// Unsubscribe terminates the subscription.
func (s *Subscription[T]) Unsubscribe() {
	s.once.Do(s.stop)
}

// feed is the producer side of a Subscription.
type feed[T any] struct {
	ch chan T
}

func newFeed[T any]() *feed[T] {
	return &feed[T]{ch: make(chan T, 1)}
}

// push replaces any pending value with v. Callers serialize pushes.
func (f *feed[T]) push(v T) {
	for {
		select {
		case f.ch <- v:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

func (f *feed[T]) close() {
	close(f.ch)
}

func sortDocuments(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

// merge shallow-merges patch into base, returning a new map.
func merge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
