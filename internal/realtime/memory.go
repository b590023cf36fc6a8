package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/logger"
)

// MemoryStore keeps the tree in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]json.RawMessage
	subscribers map[string]map[*subscriber]struct{}
	closed      bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]json.RawMessage),
		subscribers: make(map[string]map[*subscriber]struct{}),
	}
}

func (m *MemoryStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	collection, key, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.collections[collection][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return cloneRaw(v), nil
}

func (m *MemoryStore) List(ctx context.Context, collection string) ([]Entry, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(collection), nil
}

func (m *MemoryStore) listLocked(collection string) []Entry {
	docs := m.collections[collection]
	entries := make([]Entry, 0, len(docs))
	for k, v := range docs {
		entries = append(entries, Entry{Key: k, Value: cloneRaw(v)})
	}
	sortEntries(entries)
	return entries
}

func (m *MemoryStore) Set(ctx context.Context, path string, value any) error {
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string]json.RawMessage)
		m.collections[collection] = docs
	}
	docs[key] = raw
	m.notifyLocked(collection)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, path string, fields map[string]any) error {
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string]json.RawMessage)
		m.collections[collection] = docs
	}
	merged, err := merge(docs[key], fields)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	docs[key] = merged
	m.notifyLocked(collection)
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, path string) error {
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if docs, ok := m.collections[collection]; ok {
		if _, exists := docs[key]; exists {
			delete(docs, key)
			m.notifyLocked(collection)
		}
	}
	return nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, collection string, fn Listener) (func(), error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	sub := newSubscriber(collection, fn, func(context.Context) ([]Entry, error) {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return m.listLocked(collection), nil
	})

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: store closed", collection)
	}
	set, ok := m.subscribers[collection]
	if !ok {
		set = make(map[*subscriber]struct{})
		m.subscribers[collection] = set
	}
	set[sub] = struct{}{}
	m.mu.Unlock()

	go func() {
		sub.run(ctx)
		m.forget(collection, sub)
	}()
	sub.notify()

	logger.WithFields(logrus.Fields{"collection": collection}).Debug("Subscription opened")

	return func() {
		m.forget(collection, sub)
		sub.close()
	}, nil
}

// forget drops sub from the notification set. It runs both on unsubscribe and
// when the subscriber's context ends first.
func (m *MemoryStore) forget(collection string, sub *subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.subscribers[collection]
	delete(set, sub)
	if len(set) == 0 {
		delete(m.subscribers, collection)
	}
}

func (m *MemoryStore) notifyLocked(collection string) {
	for sub := range m.subscribers[collection] {
		sub.notify()
	}
}

// Ping fails once the store is closed.
func (m *MemoryStore) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("memory store closed")
	}
	return nil
}

// Close stops every subscriber.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	subs := m.subscribers
	m.subscribers = make(map[string]map[*subscriber]struct{})
	m.mu.Unlock()

	for _, set := range subs {
		for sub := range set {
			sub.close()
		}
	}
	return nil
}

func cloneRaw(v json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(v))
	copy(out, v)
	return out
}
