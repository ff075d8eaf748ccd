package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []*Event
}

func (r *recorder) Send(e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) received() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Event(nil), r.events...)
}

func TestManager_Broadcast(t *testing.T) {
	m := NewManager()
	a, b := &recorder{}, &recorder{}
	m.Subscribe(a)
	m.Subscribe(b)
	require.Equal(t, 2, m.SubscriberCount())

	first := m.Broadcast(KindSetlist, "one")
	second := m.Broadcast(KindLibrary, "two")

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	for _, r := range []*recorder{a, b} {
		got := r.received()
		require.Len(t, got, 2)
		assert.Equal(t, KindSetlist, got[0].Kind)
		assert.Equal(t, "one", got[0].Payload)
		assert.Equal(t, KindLibrary, got[1].Kind)
	}
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager()
	r := &recorder{}
	id := m.Subscribe(r)
	m.Unsubscribe(id)

	m.Broadcast(KindPresets, nil)
	assert.Empty(t, r.received())
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_FailingSubscriberIsDropped(t *testing.T) {
	m := NewManager()
	m.Subscribe(StreamFunc(func(*Event) error { return errors.New("gone") }))
	ok := &recorder{}
	m.Subscribe(ok)

	m.Broadcast(KindSetlist, nil)
	assert.Equal(t, 1, m.SubscriberCount())
	assert.Len(t, ok.received(), 1)
}

func TestManager_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewManager()
	release := make(chan struct{})
	defer close(release)
	m.Subscribe(StreamFunc(func(*Event) error {
		<-release
		return nil
	}))
	fast := &recorder{}
	m.Subscribe(fast)

	start := time.Now()
	m.Broadcast(KindSetlist, nil)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, fast.received(), 1)
}

func TestManager_Send(t *testing.T) {
	m := NewManager()
	r := &recorder{}
	id := m.Subscribe(r)

	require.NoError(t, m.Send(id, &Event{Kind: KindSetlist}))
	require.NoError(t, m.Send("unknown", &Event{Kind: KindSetlist}))
	assert.Len(t, r.received(), 1)

	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_StampAndDone(t *testing.T) {
	m := NewManager()
	first := m.Stamp(KindState, "x")
	second := m.Broadcast(KindLibrary, nil)
	assert.Equal(t, KindState, first.Kind)
	assert.Equal(t, first.Seq+1, second.Seq)

	select {
	case <-m.Done():
		t.Fatal("done before close")
	default:
	}
	m.Close()
	m.Close()
	_, open := <-m.Done()
	assert.False(t, open)
}
