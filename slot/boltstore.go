package slot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"go.etcd.io/bbolt"
)

var bucketLedgers = []byte("ledgers")

// BoltStore persists ledger snapshots in bbolt.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("slot: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("slot: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketLedgers); err != nil {
			return fmt.Errorf("boltstore: create bucket %q: %w", bucketLedgers, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("slot: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// PutState stores or replaces the snapshot keyed by its ledger address.
func (s *BoltStore) PutState(state *State) error {
	data, err := SerializeState(state)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketLedgers).Put(state.Params.Address.Bytes(), data); err != nil {
			return fmt.Errorf("boltstore: put state: %w", err)
		}
		return nil
	})
}

// GetState retrieves the snapshot of a ledger.
func (s *BoltStore) GetState(addr common.Address) (*State, error) {
	var state *State
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketLedgers).Get(addr.Bytes())
		if data == nil {
			return fmt.Errorf("%w: %s", ErrStateNotFound, addr.Hex())
		}
		// data is only valid inside the transaction; DeserializeState copies.
		decoded, err := DeserializeState(data)
		if err != nil {
			return fmt.Errorf("boltstore: decode state: %w", err)
		}
		state = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// DeleteState removes the snapshot of a ledger.
func (s *BoltStore) DeleteState(addr common.Address) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketLedgers)
		if b.Get(addr.Bytes()) == nil {
			return fmt.Errorf("%w: %s", ErrStateNotFound, addr.Hex())
		}
		if err := b.Delete(addr.Bytes()); err != nil {
			return fmt.Errorf("boltstore: delete state: %w", err)
		}
		return nil
	})
}

// ListLedgers returns the addresses of every stored ledger in key order.
func (s *BoltStore) ListLedgers() ([]common.Address, error) {
	var out []common.Address
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLedgers).ForEach(func(k, _ []byte) error {
			out = append(out, common.BytesToAddress(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: list ledgers: %w", err)
	}
	return out, nil
}
