package memory

import (
	"payments_ledger/internal/domain"
)

// ClientStateRepository keeps one slot per client id. It has no locking; a
// fold owns its repository exclusively.
type ClientStateRepository struct {
	states map[domain.ClientID]*domain.ClientState
}

func NewClientStateRepository() *ClientStateRepository {
	return &ClientStateRepository{
		states: make(map[domain.ClientID]*domain.ClientState),
	}
}

// Seed copies initial into the repository. The caller's states are never
// modified by later transitions.
func (r *ClientStateRepository) Seed(initial map[domain.ClientID]*domain.ClientState) {
	for id, state := range initial {
		if state == nil {
			continue
		}
		r.states[id] = state.Clone()
	}
}

func (r *ClientStateRepository) Get(id domain.ClientID) (*domain.ClientState, bool) {
	state, exists := r.states[id]
	return state, exists
}

// GetOrCreate returns the state for id, creating the default all-zero
// unlocked state on first reference.
func (r *ClientStateRepository) GetOrCreate(id domain.ClientID) *domain.ClientState {
	state, exists := r.states[id]
	if !exists {
		state = domain.NewClientState()
		r.states[id] = state
	}
	return state
}

func (r *ClientStateRepository) Range(fn func(id domain.ClientID, state *domain.ClientState) bool) {
	for id, state := range r.states {
		if !fn(id, state) {
			return
		}
	}
}

func (r *ClientStateRepository) Len() int {
	return len(r.states)
}
