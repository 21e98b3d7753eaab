// ABOUTME: Thread-safe per-session holder of accumulated proposal documents
// ABOUTME: Used by the editor API to keep DocumentState alongside a conversation

package document

import "sync"

// Drafts maps session IDs to their accumulated document.
type Drafts struct {
	mu   sync.RWMutex
	docs map[string]string
}

// NewDrafts creates an empty Drafts.
func NewDrafts() *Drafts {
	return &Drafts{
		docs: make(map[string]string),
	}
}

// Get returns the document for a session, or "" if none has been built.
func (d *Drafts) Get(sessionID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.docs[sessionID]
}

// Apply runs raw through Process against the session's current document and
// stores the result. Read and write happen under one lock.
func (d *Drafts) Apply(sessionID, raw string) (Extraction, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ext, doc := Process(d.docs[sessionID], raw)
	if doc != "" {
		d.docs[sessionID] = doc
	}
	return ext, doc
}

// Reset clears the session's document. Unknown sessions are ignored.
func (d *Drafts) Reset(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.docs, sessionID)
}
