package wallet

import (
	"fmt"
	"strconv"
	"strings"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// BIP44 path constants.
	PurposeBIP44     = 44
	CoinTypeEthereum = 60
	DefaultAccount   = 0
	ExternalChain    = 0

	// Hardened is the BIP32 hardened offset.
	Hardened = 0x80000000

	// MaxIndex is the largest non-hardened child index.
	MaxIndex = Hardened - 1
)

// Wallet is an HD wallet rooted at a BIP39 seed.
type Wallet struct {
	master *bip32.ExtendedKey
}

// NewWallet creates a Wallet from a BIP39 seed.
func NewWallet(seed []byte) (*Wallet, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	// Version bytes only affect serialization; derivation is network independent.
	master, err := bip32.NewMaster(seed, &chaincfg.MainNet)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}
	return &Wallet{master: master}, nil
}

// FromMnemonic is SeedFromMnemonic followed by NewWallet.
func FromMnemonic(mnemonic, passphrase string) (*Wallet, error) {
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	return NewWallet(seed)
}

// AccountPath returns m/44'/60'/0'/0/index.
func AccountPath(index uint32) string {
	return fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", PurposeBIP44, CoinTypeEthereum, DefaultAccount, ExternalChain, index)
}

// Account derives the account at m/44'/60'/0'/0/index.
func (w *Wallet) Account(index uint32) (*Account, error) {
	if index > MaxIndex {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	acct, err := w.Derive(AccountPath(index))
	if err != nil {
		return nil, err
	}
	acct.Index = index
	return acct, nil
}

// Accounts derives the first n accounts.
func (w *Wallet) Accounts(n int) ([]*Account, error) {
	out := make([]*Account, 0, n)
	for i := 0; i < n; i++ {
		acct, err := w.Account(uint32(i))
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, nil
}

// Derive derives the account at an arbitrary path such as "m/44'/60'/1'/0/7".
// Components ending in ' or h are hardened.
func (w *Wallet) Derive(path string) (*Account, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	key := w.master
	for depth, idx := range indices {
		key, err = key.Child(idx)
		if err != nil {
			return nil, fmt.Errorf("%w: depth %d: %w", ErrDerivationFailed, depth, err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: extract private key: %w", ErrDerivationFailed, err)
	}
	ecdsaKey, err := crypto.ToECDSA(priv.Serialize())
	if err != nil {
		return nil, fmt.Errorf("%w: convert private key: %w", ErrDerivationFailed, err)
	}
	return newAccount(path, ecdsaKey), nil
}

// ParsePath turns a BIP32 path into child indices.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] != "m" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	indices := make([]uint32, 0, len(parts)-1)
	for _, p := range parts[1:] {
		hardened := strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h")
		if hardened {
			p = p[:len(p)-1]
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil || n > MaxIndex {
			return nil, fmt.Errorf("%w: component %q of %q", ErrInvalidPath, p, path)
		}
		idx := uint32(n)
		if hardened {
			idx += Hardened
		}
		indices = append(indices, idx)
	}
	return indices, nil
}
