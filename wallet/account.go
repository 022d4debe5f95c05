package wallet

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is a derived EVM account.
type Account struct {
	Index   uint32         `json:"index"`
	Path    string         `json:"path"`
	Address common.Address `json:"address"`

	key *ecdsa.PrivateKey
}

func newAccount(path string, key *ecdsa.PrivateKey) *Account {
	return &Account{
		Path:    path,
		Address: crypto.PubkeyToAddress(key.PublicKey),
		key:     key,
	}
}

// PrivateKey returns the account's secp256k1 key.
func (a *Account) PrivateKey() *ecdsa.PrivateKey { return a.key }

// PrivateKeyHex returns the 0x-prefixed raw private key.
func (a *Account) PrivateKeyHex() string {
	return hexutil.Encode(crypto.FromECDSA(a.key))
}

// SignHash signs a 32-byte digest. The signature is r||s||v with v in {0, 1}.
func (a *Account) SignHash(hash []byte) ([]byte, error) {
	sig, err := crypto.Sign(hash, a.key)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign: %w", err)
	}
	return sig, nil
}

// SignMessage signs data with the EIP-191 personal message prefix, as
// eth_sign and wallet signMessage do. The signature is r||s||v with v in {27, 28}.
func (a *Account) SignMessage(data []byte) ([]byte, error) {
	sig, err := a.SignHash(accounts.TextHash(data))
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverMessageSigner returns the address that produced sig over data with
// the EIP-191 personal message prefix.
func RecoverMessageSigner(data, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("wallet: signature length %d", len(sig))
	}
	normalized := make([]byte, crypto.SignatureLength)
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(data), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("wallet: recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
