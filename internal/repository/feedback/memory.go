// Package feedback stores the single most recent pose verdict per
// session, for the chat service to fold into the next turn.
package feedback

import (
	"context"
	"sync"
)

// MemoryStore keeps feedback slots in process memory. Writes to
// different session keys do not block each other; concurrent writes to
// the same key are last-write-wins, which is all the single-slot
// semantics needs.
type MemoryStore struct {
	slots sync.Map // sessionID -> text
}

// NewMemoryStore creates an in-process feedback store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Put overwrites the feedback slot for a session.
func (s *MemoryStore) Put(_ context.Context, sessionID, text string) error {
	s.slots.Store(sessionID, text)
	return nil
}

// Get returns the feedback slot for a session, reporting absence.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (string, bool, error) {
	v, ok := s.slots.Load(sessionID)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}
