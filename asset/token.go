// Package asset implements an in-process ERC-20 token used as the value-bearing
// asset of the slot ledger, the governance token and the marketplace.
//
// There is no implicit message sender: every mutating call names the account it
// acts for. Authority checks beyond balances and allowances belong to callers.
package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/sasha-s/go-deadlock"
)

// DefaultDecimals matches the 18-decimal stable tokens the platform settles in.
const DefaultDecimals = 18

// EventKind distinguishes token log entries.
type EventKind uint8

const (
	EventTransfer EventKind = iota
	EventApproval
)

func (k EventKind) String() string {
	switch k {
	case EventTransfer:
		return "Transfer"
	case EventApproval:
		return "Approval"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is a token log entry. For approvals From is the owner and To the spender.
type Event struct {
	ID    uuid.UUID
	Seq   uint64
	Kind  EventKind
	From  common.Address
	To    common.Address
	Value *uint256.Int
}

// Params describes a token at creation.
type Params struct {
	Name     string
	Symbol   string
	Decimals uint8
	Address  common.Address
}

// Token is an ERC-20 style fungible token. It is safe for concurrent use.
type Token struct {
	mu deadlock.Mutex

	params      Params
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
	events      []Event
}

// NewToken creates a token and mints supply to holder.
func NewToken(params Params, holder common.Address, supply *uint256.Int) (*Token, error) {
	t := &Token{
		params:      params,
		totalSupply: new(uint256.Int),
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
	}
	if supply != nil && !supply.IsZero() {
		if err := t.Mint(holder, supply); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Name returns the token name.
func (t *Token) Name() string { return t.params.Name }

// Symbol returns the token symbol.
func (t *Token) Symbol() string { return t.params.Symbol }

// Decimals returns the number of display decimals.
func (t *Token) Decimals() uint8 { return t.params.Decimals }

// Address returns the token's contract address.
func (t *Token) Address() common.Address { return t.params.Address }

// TotalSupply returns the amount of tokens in existence.
func (t *Token) TotalSupply() *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalSupply.Clone()
}

// BalanceOf returns the balance of owner.
func (t *Token) BalanceOf(owner common.Address) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balanceLocked(owner).Clone()
}

// Allowance returns how much spender may still pull from owner.
func (t *Token) Allowance(owner, spender common.Address) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowanceLocked(owner, spender).Clone()
}

// Approve sets the allowance of spender over owner's tokens to amount.
func (t *Token) Approve(owner, spender common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return fmt.Errorf("%w: approve", ErrZeroAddress)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	spenders, ok := t.allowances[owner]
	if !ok {
		spenders = make(map[common.Address]*uint256.Int)
		t.allowances[owner] = spenders
	}
	spenders[spender] = amount.Clone()
	t.emitLocked(EventApproval, owner, spender, amount)
	return nil
}

// Transfer moves amount from one account to another.
func (t *Token) Transfer(from, to common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transferLocked(from, to, amount)
}

// TransferFrom moves amount from one account to another using the allowance
// owner granted to spender. An allowance of 2^256-1 is never decremented.
func (t *Token) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	allowed := t.allowanceLocked(from, spender)
	if allowed.Lt(amount) {
		return fmt.Errorf("%w: %s approved %s for %s, need %s",
			ErrInsufficientAllowance, from.Hex(), spender.Hex(), allowed.Dec(), amount.Dec())
	}
	if err := t.transferLocked(from, to, amount); err != nil {
		return err
	}
	if !isInfinite(allowed) {
		t.allowances[from][spender] = new(uint256.Int).Sub(allowed, amount)
	}
	return nil
}

// Mint creates amount new tokens owned by to.
func (t *Token) Mint(to common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	if to == (common.Address{}) {
		return fmt.Errorf("%w: mint", ErrZeroAddress)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	supply, overflow := new(uint256.Int).AddOverflow(t.totalSupply, amount)
	if overflow {
		return fmt.Errorf("%w: total supply", ErrOverflow)
	}
	t.totalSupply = supply
	t.balances[to] = new(uint256.Int).Add(t.balanceLocked(to), amount)
	t.emitLocked(EventTransfer, common.Address{}, to, amount)
	return nil
}

// Events returns a copy of the token log.
func (t *Token) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneEvents(t.events)
}

// EventsSince returns log entries with a sequence number >= seq.
func (t *Token) EventsSince(seq uint64) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	if seq >= uint64(len(t.events)) {
		return nil
	}
	return cloneEvents(t.events[seq:])
}

func cloneEvents(events []Event) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		e.Value = e.Value.Clone()
		out[i] = e
	}
	return out
}

func (t *Token) transferLocked(from, to common.Address, amount *uint256.Int) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return fmt.Errorf("%w: transfer", ErrZeroAddress)
	}
	bal := t.balanceLocked(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientBalance, from.Hex(), bal.Dec(), amount.Dec())
	}
	t.balances[from] = new(uint256.Int).Sub(bal, amount)
	// from may equal to; re-read after the debit.
	t.balances[to] = new(uint256.Int).Add(t.balanceLocked(to), amount)
	t.emitLocked(EventTransfer, from, to, amount)
	return nil
}

func (t *Token) balanceLocked(owner common.Address) *uint256.Int {
	if b, ok := t.balances[owner]; ok {
		return b
	}
	return new(uint256.Int)
}

func (t *Token) allowanceLocked(owner, spender common.Address) *uint256.Int {
	if a, ok := t.allowances[owner][spender]; ok {
		return a
	}
	return new(uint256.Int)
}

func (t *Token) emitLocked(kind EventKind, from, to common.Address, value *uint256.Int) {
	t.events = append(t.events, Event{
		ID:    uuid.New(),
		Seq:   uint64(len(t.events)),
		Kind:  kind,
		From:  from,
		To:    to,
		Value: value.Clone(),
	})
}

func isInfinite(v *uint256.Int) bool {
	return v.Eq(new(uint256.Int).SetAllOne())
}
