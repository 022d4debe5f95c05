package slot

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Mint creates unit id owned by owner. The caller pays Price.
func (l *Ledger) Mint(caller, owner common.Address, id UnitID) error {
	return l.MintBatch(caller, owner, []UnitID{id})
}

// MintBatch creates every unit in ids, owned by owner, with nothing claimed.
// The caller pays Price * len(ids) in one pull. Mint payments are custody only;
// they do not raise SharesTotal.
func (l *Ledger) MintBatch(caller, owner common.Address, ids []UnitID) error {
	if owner == (common.Address{}) {
		return fmt.Errorf("%w: mint to zero address", ErrInvalidRecipient)
	}
	if len(ids) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[UnitID]struct{}, len(ids))
	for _, id := range ids {
		if !l.inRange(id) {
			return fmt.Errorf("%w: %d (max %d)", ErrOutOfRange, id, l.params.MaxSupply)
		}
		if _, taken := l.units[id]; taken {
			return fmt.Errorf("%w: %d", ErrAlreadyMinted, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateUnit, id)
		}
		seen[id] = struct{}{}
	}

	cost, overflow := new(uint256.Int).MulOverflow(l.params.Price, uint256.NewInt(uint64(len(ids))))
	if overflow {
		return fmt.Errorf("%w: mint cost", ErrAmountOverflow)
	}
	if err := l.pull(caller, cost); err != nil {
		return err
	}

	for _, id := range ids {
		l.units[id] = &unit{owner: owner, claimed: new(uint256.Int)}
	}
	l.balances[owner] += uint64(len(ids))
	return nil
}

// Transfer hands unit id from caller to a new owner. The unit keeps its claim
// history, so the new owner can only claim what the unit has not yet received.
func (l *Ledger) Transfer(caller, to common.Address, id UnitID) error {
	return l.TransferBatch(caller, []common.Address{to}, []UnitID{id})
}

// TransferBatch hands ids[i] to newOwners[i] for every i. All units must be
// owned by caller; no unit changes hands unless all of them can.
func (l *Ledger) TransferBatch(caller common.Address, newOwners []common.Address, ids []UnitID) error {
	if len(newOwners) != len(ids) {
		return fmt.Errorf("%w: %d recipients, %d units", ErrLengthMismatch, len(newOwners), len(ids))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	units, err := l.lookupLocked(ids)
	if err != nil {
		return err
	}
	for i, u := range units {
		if u.owner != caller {
			return fmt.Errorf("%w: unit %d", ErrNotOwner, ids[i])
		}
		if newOwners[i] == (common.Address{}) {
			return fmt.Errorf("%w: unit %d to zero address", ErrInvalidRecipient, ids[i])
		}
	}

	for i, u := range units {
		l.balances[u.owner]--
		if l.balances[u.owner] == 0 {
			delete(l.balances, u.owner)
		}
		u.owner = newOwners[i]
		l.balances[u.owner]++
	}
	return nil
}

// OwnerOf returns the current owner of a minted unit.
func (l *Ledger) OwnerOf(id UnitID) (common.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.units[id]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %d", ErrUnknownUnit, id)
	}
	return u.owner, nil
}

// OwnedBy returns the ids owned by owner in ascending order.
func (l *Ledger) OwnedBy(owner common.Address) []UnitID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sortedIDsLocked(func(u *unit) bool { return u.owner == owner })
}

// BalanceOf returns the number of units owned by owner.
func (l *Ledger) BalanceOf(owner common.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[owner]
}

// TotalSupply returns the number of minted units.
func (l *Ledger) TotalSupply() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.units))
}
