package marketplace

import (
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sasha-s/go-deadlock"

	"github.com/farhad-zada/mluck-contracts/slot"
)

// Slots is the part of a slot ledger the locker and marketplace drive.
type Slots interface {
	Address() common.Address
	TransferBatch(caller common.Address, newOwners []common.Address, ids []slot.UnitID) error
}

// Locker holds slots in escrow on behalf of their depositors until an enabled
// marketplace releases them to a buyer or the depositor takes them back.
type Locker struct {
	mu deadlock.Mutex

	address      common.Address
	owner        common.Address
	marketplaces map[common.Address]bool
	deposits     map[common.Address]map[slot.UnitID]common.Address
}

// NewLocker creates a locker at address managed by owner.
func NewLocker(address, owner common.Address) (*Locker, error) {
	if address == (common.Address{}) || owner == (common.Address{}) {
		return nil, fmt.Errorf("%w: locker", ErrZeroAddress)
	}
	return &Locker{
		address:      address,
		owner:        owner,
		marketplaces: make(map[common.Address]bool),
		deposits:     make(map[common.Address]map[slot.UnitID]common.Address),
	}, nil
}

// Address returns the locker's account, which owns every locked slot.
func (l *Locker) Address() common.Address { return l.address }

// SetMarketplaceStatus enables or disables a marketplace's right to release slots.
func (l *Locker) SetMarketplaceStatus(caller, mp common.Address, enabled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.owner {
		return ErrNotOwner
	}
	if mp == (common.Address{}) {
		return fmt.Errorf("%w: marketplace", ErrZeroAddress)
	}
	if enabled {
		l.marketplaces[mp] = true
	} else {
		delete(l.marketplaces, mp)
	}
	return nil
}

// MarketplaceStatus reports whether mp may release slots.
func (l *Locker) MarketplaceStatus(mp common.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.marketplaces[mp]
}

// Lock moves caller's slots into the locker.
func (l *Locker) Lock(caller common.Address, ledger Slots, ids []slot.UnitID) error {
	if ledger == nil {
		return fmt.Errorf("%w: ledger", ErrNilParam)
	}
	if err := checkUnique(ids); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ledger.TransferBatch(caller, repeat(l.address, len(ids)), ids); err != nil {
		return fmt.Errorf("marketplace: lock: %w", err)
	}
	held := l.deposits[ledger.Address()]
	if held == nil {
		held = make(map[slot.UnitID]common.Address)
		l.deposits[ledger.Address()] = held
	}
	for _, id := range ids {
		held[id] = caller
	}
	return nil
}

// Release hands locked slots to a buyer. Only enabled marketplaces may release.
func (l *Locker) Release(caller common.Address, ledger Slots, ids []slot.UnitID, to common.Address) error {
	if ledger == nil {
		return fmt.Errorf("%w: ledger", ErrNilParam)
	}
	if err := checkUnique(ids); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.marketplaces[caller] {
		return fmt.Errorf("%w: %s", ErrMarketplaceDisabled, caller.Hex())
	}
	return l.moveOutLocked(ledger, ids, to, func(common.Address) bool { return true })
}

// Unlock returns slots to caller, who must have locked them.
func (l *Locker) Unlock(caller common.Address, ledger Slots, ids []slot.UnitID) error {
	if ledger == nil {
		return fmt.Errorf("%w: ledger", ErrNilParam)
	}
	if err := checkUnique(ids); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.moveOutLocked(ledger, ids, caller, func(depositor common.Address) bool { return depositor == caller })
}

func (l *Locker) moveOutLocked(ledger Slots, ids []slot.UnitID, to common.Address, allowed func(common.Address) bool) error {
	held := l.deposits[ledger.Address()]
	for _, id := range ids {
		depositor, ok := held[id]
		if !ok {
			return fmt.Errorf("%w: %d", ErrNotLocked, id)
		}
		if !allowed(depositor) {
			return fmt.Errorf("%w: %d", ErrNotDepositor, id)
		}
	}
	if err := ledger.TransferBatch(l.address, repeat(to, len(ids)), ids); err != nil {
		return fmt.Errorf("marketplace: release: %w", err)
	}
	for _, id := range ids {
		delete(held, id)
	}
	return nil
}

// Holdings returns the slots of a ledger held by the locker, ascending.
func (l *Locker) Holdings(ledger common.Address) []slot.UnitID {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]slot.UnitID, 0, len(l.deposits[ledger]))
	for id := range l.deposits[ledger] {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Depositor returns who locked a slot.
func (l *Locker) Depositor(ledger common.Address, id slot.UnitID) (common.Address, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.deposits[ledger][id]
	return d, ok
}

func (l *Locker) holdsAll(ledger common.Address, ids []slot.UnitID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range ids {
		if _, ok := l.deposits[ledger][id]; !ok {
			return fmt.Errorf("%w: %d", ErrNotLocked, id)
		}
	}
	return nil
}

func repeat(a common.Address, n int) []common.Address {
	out := make([]common.Address, n)
	for i := range out {
		out[i] = a
	}
	return out
}

func checkUnique(ids []slot.UnitID) error {
	seen := make(map[slot.UnitID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateSlot, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
