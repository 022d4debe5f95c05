package marketplace

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// BasisPoints is the denominator of promo discounts.
const BasisPoints = 10000

// PromoCode is a registered discount. A zero Limit means unlimited redemptions.
type PromoCode struct {
	DiscountBps uint64
	Fee         *uint256.Int
	Limit       uint64
	Expiry      time.Time
	Used        uint64
}

// PromoClaim is what a buyer presents: the code hash and a signer's
// endorsement of (hash, buyer).
type PromoClaim struct {
	Hash      common.Hash
	Signature []byte
}

// MessageSigner signs data with the EIP-191 personal message prefix.
type MessageSigner interface {
	SignMessage(data []byte) ([]byte, error)
}

// PromoHash is keccak256 of the UTF-8 promo code, not of its ABI string
// encoding.
func PromoHash(code string) common.Hash {
	return crypto.Keccak256Hash([]byte(code))
}

// PromoMessage is keccak256(abi.encode(bytes32 hash, address buyer)), the
// 32 bytes a signer endorses for one buyer.
func PromoMessage(hash common.Hash, buyer common.Address) common.Hash {
	return crypto.Keccak256Hash(hash.Bytes(), common.LeftPadBytes(buyer.Bytes(), 32))
}

// SignPromo endorses code for buyer.
func SignPromo(signer MessageSigner, code string, buyer common.Address) (*PromoClaim, error) {
	hash := PromoHash(code)
	msg := PromoMessage(hash, buyer)
	sig, err := signer.SignMessage(msg.Bytes())
	if err != nil {
		return nil, fmt.Errorf("marketplace: sign promo: %w", err)
	}
	return &PromoClaim{Hash: hash, Signature: sig}, nil
}

// RecoverPromoSigner returns the address that produced claim.Signature for buyer.
// The signature is 65 bytes r||s||v with v in {0, 1, 27, 28}.
func RecoverPromoSigner(claim *PromoClaim, buyer common.Address) (common.Address, error) {
	if claim == nil {
		return common.Address{}, fmt.Errorf("%w: promo claim", ErrNilParam)
	}
	if len(claim.Signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(claim.Signature))
	}
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, claim.Signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	msg := PromoMessage(claim.Hash, buyer)
	pub, err := crypto.SigToPub(accounts.TextHash(msg.Bytes()), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func (p *PromoCode) clone() PromoCode {
	out := *p
	out.Fee = orZero(p.Fee).Clone()
	return out
}

func (p *PromoCode) usable(now time.Time) error {
	if !p.Expiry.IsZero() && now.After(p.Expiry) {
		return fmt.Errorf("%w: at %s", ErrPromoExpired, p.Expiry.UTC().Format(time.RFC3339))
	}
	if p.Limit != 0 && p.Used >= p.Limit {
		return fmt.Errorf("%w: %d of %d used", ErrPromoExhausted, p.Used, p.Limit)
	}
	return nil
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
