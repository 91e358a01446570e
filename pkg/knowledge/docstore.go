package knowledge

import (
	"sync"

	"ktassist/pkg/domain"
)

// DocumentStore maps filename to document and remembers insertion order.
// It does not deduplicate; Pipeline.Ingest checks Contains first.
type DocumentStore struct {
	mu     sync.RWMutex
	docs   map[string]domain.Document
	orders []string
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]domain.Document)}
}

// Contains reports whether filename has been stored.
func (s *DocumentStore) Contains(filename string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[filename]
	return ok
}

// Put stores or replaces a document. A replaced document keeps its position.
func (s *DocumentStore) Put(doc domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.Filename]; !exists {
		s.orders = append(s.orders, doc.Filename)
	}
	s.docs[doc.Filename] = doc
}

func (s *DocumentStore) Get(filename string) (domain.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[filename]
	return doc, ok
}

// SetSummary attaches a summary; it reports false for an unknown filename.
func (s *DocumentStore) SetSummary(filename, summary string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[filename]
	if !ok {
		return false
	}
	doc.Summary = summary
	s.docs[filename] = doc
	return true
}

// List returns documents in insertion order.
func (s *DocumentStore) List() []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]domain.Document, 0, len(s.orders))
	for _, name := range s.orders {
		if doc, ok := s.docs[name]; ok {
			res = append(res, doc)
		}
	}
	return res
}

func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
