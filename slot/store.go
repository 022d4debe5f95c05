package slot

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Store persists ledger snapshots keyed by ledger address.
type Store interface {
	// PutState stores or replaces the snapshot of state.Params.Address.
	PutState(state *State) error

	// GetState retrieves the snapshot of a ledger.
	GetState(addr common.Address) (*State, error)

	// DeleteState removes the snapshot of a ledger.
	DeleteState(addr common.Address) error

	// ListLedgers returns the addresses of every stored ledger.
	ListLedgers() ([]common.Address, error)
}

// Save snapshots l into store.
func Save(store Store, l *Ledger) error {
	return store.PutState(l.Snapshot())
}

// Load restores the ledger stored under addr, wiring it to asset a.
func Load(store Store, addr common.Address, a Asset) (*Ledger, error) {
	state, err := store.GetState(addr)
	if err != nil {
		return nil, err
	}
	return Restore(state, a)
}

// MemStore is an in-memory Store for testing. Snapshots are kept serialized so
// callers never share memory with the store.
type MemStore struct {
	mu     sync.RWMutex
	states map[common.Address][]byte
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{states: make(map[common.Address][]byte)}
}

// PutState stores or replaces a snapshot.
func (s *MemStore) PutState(state *State) error {
	data, err := SerializeState(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Params.Address] = data
	return nil
}

// GetState retrieves a snapshot.
func (s *MemStore) GetState(addr common.Address) (*State, error) {
	s.mu.RLock()
	data, ok := s.states[addr]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStateNotFound, addr.Hex())
	}
	return DeserializeState(data)
}

// DeleteState removes a snapshot.
func (s *MemStore) DeleteState(addr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[addr]; !ok {
		return fmt.Errorf("%w: %s", ErrStateNotFound, addr.Hex())
	}
	delete(s.states, addr)
	return nil
}

// ListLedgers returns every stored ledger address.
func (s *MemStore) ListLedgers() ([]common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.Address, 0, len(s.states))
	for addr := range s.states {
		out = append(out, addr)
	}
	return out, nil
}
