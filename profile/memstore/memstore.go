package memstore

import (
	"context"
	"sync"

	"github.com/goliatone/go-authstate"
)

// Store keeps documents keyed by collection then id.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]authstate.Document
}

// New returns an empty store.
func New() *Store {
	return &Store{
		data: map[string]map[string]authstate.Document{},
	}
}

// GetDocument returns a copy of the stored document.
func (s *Store) GetDocument(ctx context.Context, collection, id string) (authstate.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, ok := s.data[collection]
	if !ok {
		return nil, notFound(collection, id)
	}
	doc, ok := docs[id]
	if !ok {
		return nil, notFound(collection, id)
	}

	return copyDocument(doc), nil
}

// SetDocument stores a copy of data. With merge set, top level and
// nested map keys are merged into the existing document; otherwise the
// document is replaced.
func (s *Store) SetDocument(ctx context.Context, collection, id string, data authstate.Document, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.data[collection]
	if !ok {
		docs = map[string]authstate.Document{}
		s.data[collection] = docs
	}

	existing, ok := docs[id]
	if !ok || !merge {
		docs[id] = copyDocument(data)
		return nil
	}

	mergeDocument(existing, data)
	return nil
}

// DeleteDocument removes a document. Missing documents are a no-op.
func (s *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if docs, ok := s.data[collection]; ok {
		delete(docs, id)
	}
	return nil
}

var _ authstate.ProfileStore = (*Store)(nil)

func notFound(collection, id string) error {
	clone := authstate.ErrDocumentNotFound.Clone()
	if clone == nil {
		return authstate.ErrDocumentNotFound
	}
	return clone.WithMetadata(map[string]any{
		"collection": collection,
		"id":         id,
	})
}

func copyDocument(doc authstate.Document) authstate.Document {
	if doc == nil {
		return nil
	}
	out := make(authstate.Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyDocument(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

func mergeDocument(dst, src authstate.Document) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				mergeDocument(existing, sub)
				continue
			}
		}
		dst[k] = copyValue(v)
	}
}
