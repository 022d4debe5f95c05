package slot

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SharesTotal returns the cumulative amount ever deposited as returns.
func (l *Ledger) SharesTotal() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sharesTotal.Clone()
}

// SharePerUnit returns SharesTotal / MaxSupply, truncated.
func (l *Ledger) SharePerUnit() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sharePerUnitLocked()
}

// Residual returns the part of SharesTotal lost to truncation, which no unit
// can ever claim: SharesTotal - SharePerUnit*MaxSupply.
func (l *Ledger) Residual() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(uint256.Int).Mod(l.sharesTotal, uint256.NewInt(l.params.MaxSupply))
}

// TotalClaimed returns the sum of all payouts made by claims.
func (l *Ledger) TotalClaimed() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalClaimed.Clone()
}

// Claimed returns the amount already paid out against a minted unit.
func (l *Ledger) Claimed(id UnitID) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.units[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownUnit, id)
	}
	return u.claimed.Clone(), nil
}

// Deposit pulls amount of the asset from caller and adds it to the returns
// shared by all units. The caller must have approved the ledger for amount.
func (l *Ledger) Deposit(caller common.Address, amount *uint256.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: amount", ErrNilParam)
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	total, overflow := new(uint256.Int).AddOverflow(l.sharesTotal, amount)
	if overflow {
		return fmt.Errorf("%w: shares total", ErrAmountOverflow)
	}
	if err := l.pull(caller, amount); err != nil {
		return err
	}
	l.sharesTotal = total
	return nil
}

// GrossClaimable returns the sum of SharePerUnit - claimed over units. Every id
// must be minted and appear once.
func (l *Ledger) GrossClaimable(ids []UnitID) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	units, err := l.lookupLocked(ids)
	if err != nil {
		return nil, err
	}
	return l.payableLocked(units), nil
}

// Claim pays the unclaimed share of one unit to its owner, who must be caller.
// A unit with nothing left to claim pays zero and changes nothing.
func (l *Ledger) Claim(caller common.Address, id UnitID) (*uint256.Int, error) {
	return l.ClaimAll(caller, []UnitID{id})
}

// ClaimAll settles several units owned by caller with one asset transfer. The
// payout equals GrossClaimable(ids) taken before the batch; either every unit is
// settled or none is.
func (l *Ledger) ClaimAll(caller common.Address, ids []UnitID) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	units, err := l.lookupLocked(ids)
	if err != nil {
		return nil, err
	}
	for i, u := range units {
		if u.owner != caller {
			return nil, fmt.Errorf("%w: unit %d", ErrNotOwner, ids[i])
		}
	}

	payout := l.payableLocked(units)
	if payout.IsZero() {
		return payout, nil
	}
	if err := l.push(caller, payout); err != nil {
		return nil, err
	}

	share := l.sharePerUnitLocked()
	for _, u := range units {
		u.claimed = share.Clone()
	}
	l.totalClaimed.Add(l.totalClaimed, payout)
	return payout, nil
}

// Withdraw sends amount of free custody to the contract owner. Free custody is
// what remains after every unit, minted or not, could still claim its share.
func (l *Ledger) Withdraw(caller common.Address, amount *uint256.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: amount", ErrNilParam)
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.params.Owner {
		return ErrNotContractOwner
	}
	free := l.freeFundsLocked()
	if amount.Gt(free) {
		return fmt.Errorf("%w: free %s, requested %s", ErrWithdrawExceedsFree, free.Dec(), amount.Dec())
	}
	return l.push(caller, amount)
}

// FreeFunds returns the custody balance not reserved for unclaimed returns.
func (l *Ledger) FreeFunds() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.freeFundsLocked()
}

func (l *Ledger) freeFundsLocked() *uint256.Int {
	custody := l.asset.BalanceOf(l.params.Address)
	reserved := new(uint256.Int).Mul(l.sharePerUnitLocked(), uint256.NewInt(l.params.MaxSupply))
	reserved.Sub(reserved, l.totalClaimed)
	if custody.Lt(reserved) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(custody, reserved)
}

// lookupLocked resolves ids to minted units, rejecting unknown and repeated ids.
func (l *Ledger) lookupLocked(ids []UnitID) ([]*unit, error) {
	units := make([]*unit, 0, len(ids))
	seen := make(map[UnitID]struct{}, len(ids))
	for _, id := range ids {
		u, ok := l.units[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownUnit, id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateUnit, id)
		}
		seen[id] = struct{}{}
		units = append(units, u)
	}
	return units, nil
}

func (l *Ledger) payableLocked(units []*unit) *uint256.Int {
	share := l.sharePerUnitLocked()
	total := new(uint256.Int)
	for _, u := range units {
		total.Add(total, new(uint256.Int).Sub(share, u.claimed))
	}
	return total
}
