// Package marketplace sells locked property slots for a payment token, with
// optional promo codes endorsed off-chain by an enabled signer.
package marketplace

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sasha-s/go-deadlock"

	"github.com/farhad-zada/mluck-contracts/slot"
)

// Status is the sale state of a listed property.
type Status uint8

const (
	StatusUndefined Status = iota
	StatusOpen
	StatusClose
)

func (s Status) String() string {
	switch s {
	case StatusUndefined:
		return "UNDEFINED"
	case StatusOpen:
		return "OPEN"
	case StatusClose:
		return "CLOSE"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Payment is the token buyers pay in.
type Payment interface {
	BalanceOf(owner common.Address) *uint256.Int
	Transfer(from, to common.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to common.Address, amount *uint256.Int) error
}

// Property is a listed property as seen by buyers.
type Property struct {
	Ledger    common.Address
	Price     *uint256.Int // per slot
	Fee       *uint256.Int // per purchase
	Status    Status
	Available []slot.UnitID
}

type listing struct {
	ledger Slots
	price  *uint256.Int
	fee    *uint256.Int
	status Status
}

// Option configures a Marketplace.
type Option func(*Marketplace)

// WithClock replaces time.Now for promo expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Marketplace) { m.now = now }
}

// Marketplace sells slots held by a Locker. It is safe for concurrent use.
type Marketplace struct {
	mu deadlock.Mutex

	address    common.Address
	owner      common.Address
	payment    Payment
	locker     *Locker
	properties map[common.Address]*listing
	signers    map[common.Address]bool
	promos     map[common.Hash]*PromoCode
	now        func() time.Time
}

// New creates a marketplace at address, owned by owner, taking payment in
// payment and releasing slots through locker. The locker owner must still
// enable the marketplace with Locker.SetMarketplaceStatus.
func New(address, owner common.Address, payment Payment, locker *Locker, opts ...Option) (*Marketplace, error) {
	if address == (common.Address{}) || owner == (common.Address{}) {
		return nil, fmt.Errorf("%w: marketplace", ErrZeroAddress)
	}
	if payment == nil || locker == nil {
		return nil, fmt.Errorf("%w: payment or locker", ErrNilParam)
	}
	m := &Marketplace{
		address:    address,
		owner:      owner,
		payment:    payment,
		locker:     locker,
		properties: make(map[common.Address]*listing),
		signers:    make(map[common.Address]bool),
		promos:     make(map[common.Hash]*PromoCode),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Address returns the marketplace account that receives payments.
func (m *Marketplace) Address() common.Address { return m.address }

// Locker returns the locker the marketplace releases from.
func (m *Marketplace) Locker() *Locker { return m.locker }

// AddProperty lists a slot ledger at price per slot plus fee per purchase.
// New listings start undefined and must be opened.
func (m *Marketplace) AddProperty(caller common.Address, ledger Slots, price, fee *uint256.Int) error {
	if ledger == nil || price == nil {
		return fmt.Errorf("%w: ledger or price", ErrNilParam)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if caller != m.owner {
		return ErrNotOwner
	}
	if _, ok := m.properties[ledger.Address()]; ok {
		return fmt.Errorf("%w: %s", ErrPropertyExists, ledger.Address().Hex())
	}
	m.properties[ledger.Address()] = &listing{
		ledger: ledger,
		price:  price.Clone(),
		fee:    orZero(fee).Clone(),
	}
	return nil
}

// SetPropertyStatus opens or closes a listing.
func (m *Marketplace) SetPropertyStatus(caller, ledger common.Address, status Status) error {
	if status > StatusClose {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if caller != m.owner {
		return ErrNotOwner
	}
	p, ok := m.properties[ledger]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProperty, ledger.Hex())
	}
	p.status = status
	return nil
}

// Property returns a listing and the slots currently available in the locker.
func (m *Marketplace) Property(ledger common.Address) (Property, error) {
	m.mu.Lock()
	p, ok := m.properties[ledger]
	var out Property
	if ok {
		out = Property{Ledger: ledger, Price: p.price.Clone(), Fee: p.fee.Clone(), Status: p.status}
	}
	m.mu.Unlock()

	if !ok {
		return Property{}, fmt.Errorf("%w: %s", ErrUnknownProperty, ledger.Hex())
	}
	out.Available = m.locker.Holdings(ledger)
	return out, nil
}

// SetSigner enables or disables a promo signer.
func (m *Marketplace) SetSigner(caller, signer common.Address, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if caller != m.owner {
		return ErrNotOwner
	}
	if enabled {
		m.signers[signer] = true
	} else {
		delete(m.signers, signer)
	}
	return nil
}

// IsSigner reports whether signer may endorse promo codes.
func (m *Marketplace) IsSigner(signer common.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signers[signer]
}

// SetPromoCode registers or replaces a promo code. Replacing resets its usage.
func (m *Marketplace) SetPromoCode(caller common.Address, hash common.Hash, code PromoCode) error {
	if code.DiscountBps > BasisPoints {
		return fmt.Errorf("%w: %d", ErrInvalidDiscount, code.DiscountBps)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if caller != m.owner {
		return ErrNotOwner
	}
	code.Used = 0
	code.Fee = orZero(code.Fee).Clone()
	m.promos[hash] = &code
	return nil
}

// PromoCode returns a registered promo code.
func (m *Marketplace) PromoCode(hash common.Hash) (PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.promos[hash]
	if !ok {
		return PromoCode{}, fmt.Errorf("%w: %s", ErrUnknownPromo, hash.Hex())
	}
	return p.clone(), nil
}

// Quote returns what buyer would pay for count slots of ledger.
func (m *Marketplace) Quote(buyer, ledger common.Address, count uint64, promo *PromoClaim) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.properties[ledger]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, ledger.Hex())
	}
	cost, _, err := m.costLocked(p, buyer, count, promo)
	return cost, err
}

// Buy sells ids of ledger to buyer. The buyer must have approved the
// marketplace for the cost. Payment is taken before the locker releases the
// slots and refunded if the release fails.
func (m *Marketplace) Buy(buyer, ledger common.Address, ids []slot.UnitID, promo *PromoClaim) (*uint256.Int, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyOrder
	}
	if err := checkUnique(ids); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.properties[ledger]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, ledger.Hex())
	}
	if p.status != StatusOpen {
		return nil, fmt.Errorf("%w: %s is %s", ErrPropertyNotOpen, ledger.Hex(), p.status)
	}
	if err := m.locker.holdsAll(ledger, ids); err != nil {
		return nil, err
	}
	cost, code, err := m.costLocked(p, buyer, uint64(len(ids)), promo)
	if err != nil {
		return nil, err
	}

	if !cost.IsZero() {
		if err := m.payment.TransferFrom(m.address, buyer, m.address, cost); err != nil {
			return nil, fmt.Errorf("marketplace: take payment: %w", err)
		}
	}
	if err := m.locker.Release(m.address, p.ledger, ids, buyer); err != nil {
		if !cost.IsZero() {
			if rerr := m.payment.Transfer(m.address, buyer, cost); rerr != nil {
				return nil, errors.Join(err, fmt.Errorf("marketplace: refund: %w", rerr))
			}
		}
		return nil, err
	}
	if code != nil {
		code.Used++
	}
	return cost, nil
}

// Withdraw sends collected payments to to.
func (m *Marketplace) Withdraw(caller, to common.Address, amount *uint256.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: amount", ErrNilParam)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if caller != m.owner {
		return ErrNotOwner
	}
	if err := m.payment.Transfer(m.address, to, amount); err != nil {
		return fmt.Errorf("marketplace: withdraw: %w", err)
	}
	return nil
}

// costLocked prices count slots: price*count*(10000-discount)/10000 + fee,
// where a promo's fee replaces the listing fee.
func (m *Marketplace) costLocked(p *listing, buyer common.Address, count uint64, promo *PromoClaim) (*uint256.Int, *PromoCode, error) {
	gross, overflow := new(uint256.Int).MulOverflow(p.price, uint256.NewInt(count))
	if overflow {
		return nil, nil, fmt.Errorf("%w: price", ErrAmountOverflow)
	}
	if promo == nil {
		cost, overflow := new(uint256.Int).AddOverflow(gross, p.fee)
		if overflow {
			return nil, nil, fmt.Errorf("%w: fee", ErrAmountOverflow)
		}
		return cost, nil, nil
	}

	code, ok := m.promos[promo.Hash]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPromo, promo.Hash.Hex())
	}
	if err := code.usable(m.now()); err != nil {
		return nil, nil, err
	}
	signer, err := RecoverPromoSigner(promo, buyer)
	if err != nil {
		return nil, nil, err
	}
	if !m.signers[signer] {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnauthorizedSigner, signer.Hex())
	}

	cost, overflow := new(uint256.Int).MulOverflow(gross, uint256.NewInt(BasisPoints-code.DiscountBps))
	if overflow {
		return nil, nil, fmt.Errorf("%w: discount", ErrAmountOverflow)
	}
	cost.Div(cost, uint256.NewInt(BasisPoints))
	if _, overflow := cost.AddOverflow(cost, code.Fee); overflow {
		return nil, nil, fmt.Errorf("%w: fee", ErrAmountOverflow)
	}
	return cost, code, nil
}
