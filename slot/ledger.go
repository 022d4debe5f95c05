// Package slot implements the revenue-share ledger of a fractionalized property
// token. A property is split into MaxSupply units; returns deposited into the
// ledger accrue to every unit equally at SharesTotal / MaxSupply (truncating),
// and each unit remembers how much has already been paid out against it, so a
// claim pays the current owner only what the unit has not yet received.
//
// All mutating operations are serialized by a single lock and are all-or-nothing:
// ledger state changes only after the asset transfer they depend on succeeded.
package slot

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sasha-s/go-deadlock"

	"github.com/farhad-zada/mluck-contracts/asset"
)

type unit struct {
	owner   common.Address
	claimed *uint256.Int
}

// Ledger is the revenue-share ledger of one property. It is safe for concurrent use.
type Ledger struct {
	mu deadlock.Mutex

	asset        Asset
	params       Params
	sharesTotal  *uint256.Int
	totalClaimed *uint256.Int
	units        map[UnitID]*unit
	balances     map[common.Address]uint64
}

// New creates an empty ledger with SharesTotal = 0.
func New(params Params, a Asset) (*Ledger, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: asset", ErrNilParam)
	}
	if params.MaxSupply == 0 {
		return nil, ErrInvalidSupply
	}
	if params.Price == nil {
		params.Price = new(uint256.Int)
	} else {
		params.Price = params.Price.Clone()
	}
	return &Ledger{
		asset:        a,
		params:       params,
		sharesTotal:  new(uint256.Int),
		totalClaimed: new(uint256.Int),
		units:        make(map[UnitID]*unit),
		balances:     make(map[common.Address]uint64),
	}, nil
}

// Restore rebuilds a ledger from a snapshot, checking the snapshot against the
// ledger invariants.
func Restore(state *State, a Asset) (*Ledger, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: state", ErrNilParam)
	}
	l, err := New(state.Params, a)
	if err != nil {
		return nil, err
	}
	if state.SharesTotal != nil {
		l.sharesTotal = state.SharesTotal.Clone()
	}
	share := l.sharePerUnitLocked()

	for _, rec := range state.Units {
		if rec.ID == 0 || uint64(rec.ID) > l.params.MaxSupply {
			return nil, fmt.Errorf("%w: unit %d out of range", ErrInvalidStateData, rec.ID)
		}
		if _, dup := l.units[rec.ID]; dup {
			return nil, fmt.Errorf("%w: unit %d listed twice", ErrInvalidStateData, rec.ID)
		}
		if rec.Owner == (common.Address{}) {
			return nil, fmt.Errorf("%w: unit %d has no owner", ErrInvalidStateData, rec.ID)
		}
		claimed := new(uint256.Int)
		if rec.Claimed != nil {
			claimed = rec.Claimed.Clone()
		}
		if claimed.Gt(share) {
			return nil, fmt.Errorf("%w: unit %d claimed %s above share %s",
				ErrInvalidStateData, rec.ID, claimed.Dec(), share.Dec())
		}
		l.units[rec.ID] = &unit{owner: rec.Owner, claimed: claimed}
		l.balances[rec.Owner]++
		l.totalClaimed.Add(l.totalClaimed, claimed)
	}
	return l, nil
}

// Snapshot returns a copy of the ledger state.
func (l *Ledger) Snapshot() *State {
	l.mu.Lock()
	defer l.mu.Unlock()

	params := l.params
	params.Price = l.params.Price.Clone()

	ids := l.sortedIDsLocked(func(*unit) bool { return true })
	records := make([]UnitRecord, 0, len(ids))
	for _, id := range ids {
		u := l.units[id]
		records = append(records, UnitRecord{ID: id, Owner: u.owner, Claimed: u.claimed.Clone()})
	}
	return &State{
		Params:      params,
		SharesTotal: l.sharesTotal.Clone(),
		Units:       records,
	}
}

// Name returns the property description.
func (l *Ledger) Name() string { return l.params.Name }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.params.Symbol }

// Address returns the ledger's own account.
func (l *Ledger) Address() common.Address { return l.params.Address }

// Owner returns the contract owner.
func (l *Ledger) Owner() common.Address { return l.params.Owner }

// MaxSupply returns the fixed number of units.
func (l *Ledger) MaxSupply() uint64 { return l.params.MaxSupply }

// Price returns the mint price of one unit.
func (l *Ledger) Price() *uint256.Int { return l.params.Price.Clone() }

func (l *Ledger) sharePerUnitLocked() *uint256.Int {
	return new(uint256.Int).Div(l.sharesTotal, uint256.NewInt(l.params.MaxSupply))
}

func (l *Ledger) inRange(id UnitID) bool {
	return id >= 1 && uint64(id) <= l.params.MaxSupply
}

func (l *Ledger) sortedIDsLocked(keep func(*unit) bool) []UnitID {
	ids := make([]UnitID, 0, len(l.units))
	for id, u := range l.units {
		if keep(u) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// pull moves amount from payer into ledger custody.
func (l *Ledger) pull(payer common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	err := l.asset.TransferFrom(l.params.Address, payer, l.params.Address, amount)
	if errors.Is(err, asset.ErrInsufficientAllowance) {
		return fmt.Errorf("%w: %w", ErrInsufficientAuthorization, err)
	}
	if err != nil {
		return fmt.Errorf("slot: pull %s from %s: %w", amount.Dec(), payer.Hex(), err)
	}
	return nil
}

// push pays amount out of ledger custody after checking the custody balance.
func (l *Ledger) push(to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	custody := l.asset.BalanceOf(l.params.Address)
	if custody.Lt(amount) {
		return fmt.Errorf("%w: custody %s, payout %s", ErrInsufficientLedgerFunds, custody.Dec(), amount.Dec())
	}
	err := l.asset.Transfer(l.params.Address, to, amount)
	if errors.Is(err, asset.ErrInsufficientBalance) {
		return fmt.Errorf("%w: %w", ErrInsufficientLedgerFunds, err)
	}
	if err != nil {
		return fmt.Errorf("slot: pay %s to %s: %w", amount.Dec(), to.Hex(), err)
	}
	return nil
}
