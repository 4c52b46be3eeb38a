package cultivation

import (
	"context"
	"sync"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
)

// Repository persists one State per session.
//
// Get returns an inactive State with Revision 0 when the session has no
// record. Put stores s only if the stored revision still equals s.Revision,
// returning the stored state with its new revision; otherwise it fails with
// domain.ErrStaleState.
type Repository interface {
	Get(ctx context.Context, sessionID string) (State, error)
	Put(ctx context.Context, s State) (State, error)
}

// MemoryRepository is an in-process Repository.
type MemoryRepository struct {
	mu     sync.Mutex
	states map[string]State
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{states: make(map[string]State)}
}

func (r *MemoryRepository) Get(_ context.Context, sessionID string) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[sessionID]
	if !ok {
		return State{SessionID: sessionID}, nil
	}
	return s.Clone(), nil
}

func (r *MemoryRepository) Put(_ context.Context, s State) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.states[s.SessionID].Revision != s.Revision {
		return State{}, domain.ErrStaleState
	}
	s = s.Clone()
	s.Revision++
	r.states[s.SessionID] = s
	return s.Clone(), nil
}
