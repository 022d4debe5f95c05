package devnet

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"go.etcd.io/bbolt"

	"github.com/farhad-zada/mluck-contracts/asset"
)

var (
	bucketContracts = []byte("contracts")
	bucketNonces    = []byte("nonces")
	bucketTokens    = []byte("tokens")
)

// AddressBook maps contract names to deployed addresses, persisted in bbolt.
// It also keeps each deployer's CREATE nonce and token snapshots, so a later
// session neither reuses an address nor loses balances.
type AddressBook struct {
	db *bbolt.DB
}

// OpenAddressBook opens or creates the address book at dbPath.
func OpenAddressBook(dbPath string) (*AddressBook, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("devnet: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("devnet: open address book: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketContracts, bucketNonces, bucketTokens} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("devnet: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &AddressBook{db: db}, nil
}

// Close closes the underlying database.
func (b *AddressBook) Close() error { return b.db.Close() }

// Put records addr under name, replacing any earlier address of name. An
// address already recorded under another name is rejected.
func (b *AddressBook) Put(name string, addr common.Address) error {
	if name == "" {
		return ErrEmptyName
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketContracts)
		err := bkt.ForEach(func(k, v []byte) error {
			if string(k) != name && common.BytesToAddress(v) == addr {
				return fmt.Errorf("%w: %s is %q", ErrAddressInUse, addr.Hex(), k)
			}
			return nil
		})
		if err != nil {
			return err
		}
		return bkt.Put([]byte(name), addr.Bytes())
	})
}

// Get returns the address recorded under name.
func (b *AddressBook) Get(name string) (common.Address, error) {
	var addr common.Address
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketContracts).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("%w: %q", ErrUnknownContract, name)
		}
		addr = common.BytesToAddress(v)
		return nil
	})
	return addr, err
}

// Delete removes name from the book.
func (b *AddressBook) Delete(name string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketContracts)
		if bkt.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %q", ErrUnknownContract, name)
		}
		return bkt.Delete([]byte(name))
	})
}

// All returns every recorded name and address.
func (b *AddressBook) All() (map[string]common.Address, error) {
	out := make(map[string]common.Address)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketContracts).ForEach(func(k, v []byte) error {
			out[string(k)] = common.BytesToAddress(v)
			return nil
		})
	})
	return out, err
}

// Nonce returns the next CREATE nonce of deployer, zero if none was recorded.
func (b *AddressBook) Nonce(deployer common.Address) (uint64, error) {
	var nonce uint64
	err := b.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketNonces).Get(deployer.Bytes()); v != nil {
			if len(v) != 8 {
				return fmt.Errorf("devnet: corrupt nonce for %s", deployer.Hex())
			}
			nonce = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	return nonce, err
}

// SetNonce records the next CREATE nonce of deployer.
func (b *AddressBook) SetNonce(deployer common.Address, nonce uint64) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketNonces).Put(deployer.Bytes(), binary.BigEndian.AppendUint64(nil, nonce))
	})
}

// PutToken stores a token snapshot keyed by the token address.
func (b *AddressBook) PutToken(state *asset.TokenState) error {
	data, err := asset.SerializeTokenState(state)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTokens).Put(state.Params.Address.Bytes(), data)
	})
}

// GetToken returns the token snapshot stored for addr.
func (b *AddressBook) GetToken(addr common.Address) (*asset.TokenState, error) {
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketTokens).Get(addr.Bytes())
		if v == nil {
			return fmt.Errorf("%w: no token snapshot for %s", ErrUnknownContract, addr.Hex())
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return asset.DeserializeTokenState(data)
}
