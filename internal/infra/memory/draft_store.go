package memory

import (
	"context"
	"sync"
)

// DraftStore holds in-progress answer snapshots in process memory.
type DraftStore struct {
	mu     sync.RWMutex
	drafts map[string]map[string]string
}

func NewDraftStore() *DraftStore {
	return &DraftStore{drafts: make(map[string]map[string]string)}
}

func (s *DraftStore) SaveDraft(_ context.Context, attemptID string, answers map[string]string) error {
	snapshot := make(map[string]string, len(answers))
	for k, v := range answers {
		snapshot[k] = v
	}
	s.mu.Lock()
	s.drafts[attemptID] = snapshot
	s.mu.Unlock()
	return nil
}

func (s *DraftStore) LoadDraft(_ context.Context, attemptID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	draft, ok := s.drafts[attemptID]
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(draft))
	for k, v := range draft {
		out[k] = v
	}
	return out, nil
}

func (s *DraftStore) ClearDraft(_ context.Context, attemptID string) error {
	s.mu.Lock()
	delete(s.drafts, attemptID)
	s.mu.Unlock()
	return nil
}
