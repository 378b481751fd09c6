// Package registry keeps the set of ingested documents for the lifetime of the process.
package registry

import (
	"sync"
	"time"
)

// Document describes one ingested PDF. Values are never mutated after Put.
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	UploadTime  time.Time `json:"upload_time"`
	PageCount   int       `json:"page_count"`
	ChunkCount  int       `json:"chunk_count"`
	StoragePath string    `json:"-"`
}

// Registry is an in-memory, insertion-ordered map of documents.
// Contents are lost on restart.
type Registry struct {
	mu    sync.RWMutex
	docs  map[string]Document
	order []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{docs: make(map[string]Document)}
}

// Put stores doc, replacing any document with the same ID in place.
func (r *Registry) Put(doc Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[doc.ID]; !ok {
		r.order = append(r.order, doc.ID)
	}
	r.docs[doc.ID] = doc
}

// Get returns the document with the given id.
func (r *Registry) Get(id string) (Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	return doc, ok
}

// List returns all documents in insertion order.
func (r *Registry) List() []Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]Document, 0, len(r.order))
	for _, id := range r.order {
		docs = append(docs, r.docs[id])
	}
	return docs
}

// Remove deletes the document and reports whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return false
	}
	delete(r.docs, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
