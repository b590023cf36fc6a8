// Package realtime is the path-addressed document tree the library data lives
// in. Every document sits at <collection>/<key>; listeners registered on a
// collection receive the whole collection after each change.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid path")
	ErrNotObject   = errors.New("document is not an object")
)

// Entry is one child of a collection.
type Entry struct {
	Key   string
	Value json.RawMessage
}

// Listener receives the full, key-ordered collection on every change.
type Listener func(entries []Entry)

// Store is implemented by the in-process and Redis backends.
type Store interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	List(ctx context.Context, collection string) ([]Entry, error)
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Remove(ctx context.Context, path string) error
	// Subscribe delivers the current collection immediately and again after
	// every write to it. The returned func stops delivery and is safe to call
	// more than once.
	Subscribe(ctx context.Context, collection string, fn Listener) (func(), error)
	Ping(ctx context.Context) error
	Close() error
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// SplitPath validates a document path and splits it into its parent
// collection and final key.
func SplitPath(path string) (collection, key string, err error) {
	segments, err := segmentsOf(path)
	if err != nil {
		return "", "", err
	}
	if len(segments) < 2 {
		return "", "", fmt.Errorf("%w: %q has no parent collection", ErrInvalidPath, path)
	}
	return strings.Join(segments[:len(segments)-1], "/"), segments[len(segments)-1], nil
}

// ValidateCollection checks a collection path without splitting it.
func ValidateCollection(collection string) error {
	_, err := segmentsOf(collection)
	return err
}

func segmentsOf(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	segments := strings.Split(path, "/")
	for _, s := range segments {
		switch {
		case s == "":
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		case s == "." || s == "..":
			return nil, fmt.Errorf("%w: %q contains a relative segment", ErrInvalidPath, path)
		case strings.ContainsAny(s, "#$[]"):
			return nil, fmt.Errorf("%w: %q contains a reserved character", ErrInvalidPath, path)
		}
	}
	return segments, nil
}

// Decode unmarshals every entry of a collection into T, in key order.
func Decode[T any](entries []Entry) ([]T, error) {
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		var v T
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func encode(value any) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, fmt.Errorf("encode value: invalid JSON")
		}
		return raw, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return b, nil
}

// merge applies fields on top of the existing document. A nil field value
// deletes the field.
func merge(existing json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	doc := map[string]json.RawMessage{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &doc); err != nil {
			return nil, ErrNotObject
		}
		if doc == nil {
			doc = map[string]json.RawMessage{}
		}
	}
	for k, v := range fields {
		if v == nil {
			delete(doc, k)
			continue
		}
		b, err := encode(v)
		if err != nil {
			return nil, err
		}
		doc[k] = b
	}
	return json.Marshal(doc)
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
}
