// Package governance implements the Mluck governance token: an ERC-20 whose
// privileged operations (minting, withdrawing held tokens, changing governors,
// threshold or remnant) run only through multi-signature requests.
//
// A governor proposes a request; governors approve it; the request executes on
// the approval that lifts approvals*100 strictly above threshold*governors.
package governance

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/sasha-s/go-deadlock"

	"github.com/farhad-zada/mluck-contracts/asset"
)

const (
	Name   = "Mluck"
	Symbol = "MLUCK"

	// DefaultThreshold is the approval threshold in percent at deployment.
	DefaultThreshold = 50
)

// InitialSupply is the amount minted to the deployer: 100,000,000 MLUCK.
var InitialSupply = asset.Ether("100000000")

// Token is a fungible token the contract can hold and withdraw.
type Token interface {
	Address() common.Address
	BalanceOf(owner common.Address) *uint256.Int
	Transfer(from, to common.Address, amount *uint256.Int) error
}

// Request is a proposed governance action and its approvals.
type Request struct {
	ID        common.Hash
	Kind      Kind
	Action    Action
	Data      []byte
	Proposer  common.Address
	Approvals []common.Address
	Executed  bool
}

func (r *Request) clone() Request {
	out := *r
	out.Data = slices.Clone(r.Data)
	out.Approvals = slices.Clone(r.Approvals)
	return out
}

// Mluck is the governance token contract. It is safe for concurrent use.
type Mluck struct {
	token *asset.Token

	mu        deadlock.Mutex
	governors []common.Address
	threshold uint64
	remnant   *uint256.Int
	requests  []*Request
	byID      map[common.Hash]*Request
	nonce     uint64
	tokens    map[common.Address]Token
}

// New deploys the contract at address, minting InitialSupply to deployer and
// making deployer the only governor.
func New(address, deployer common.Address) (*Mluck, error) {
	if address == (common.Address{}) || deployer == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	token, err := asset.NewToken(asset.Params{
		Name:     Name,
		Symbol:   Symbol,
		Decimals: asset.DefaultDecimals,
		Address:  address,
	}, deployer, InitialSupply)
	if err != nil {
		return nil, fmt.Errorf("governance: create token: %w", err)
	}
	m := &Mluck{
		token:     token,
		governors: []common.Address{deployer},
		threshold: DefaultThreshold,
		remnant:   new(uint256.Int),
		byID:      make(map[common.Hash]*Request),
		tokens:    make(map[common.Address]Token),
	}
	m.tokens[address] = token
	return m, nil
}

// Track lets withdrawal requests move t out of the contract.
func (m *Mluck) Track(t Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.Address()] = t
}

// MakeRequest records a new request proposed by caller and returns its id.
func (m *Mluck) MakeRequest(caller common.Address, action Action) (common.Hash, error) {
	data, err := EncodeAction(action)
	if err != nil {
		return common.Hash{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addRequestLocked(caller, action, data)
}

// MakeRawRequest is MakeRequest for ABI-encoded request data.
func (m *Mluck) MakeRawRequest(caller common.Address, kind Kind, data []byte) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isGovernorLocked(caller) {
		return common.Hash{}, ErrNotGovernor
	}
	action, err := DecodeAction(kind, data)
	if err != nil {
		return common.Hash{}, err
	}
	return m.addRequestLocked(caller, action, slices.Clone(data))
}

func (m *Mluck) addRequestLocked(caller common.Address, action Action, data []byte) (common.Hash, error) {
	if !m.isGovernorLocked(caller) {
		return common.Hash{}, ErrNotGovernor
	}

	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], m.nonce)
	id := crypto.Keccak256Hash(caller.Bytes(), nonce[:], []byte{byte(action.Kind())}, data)
	m.nonce++

	req := &Request{
		ID:       id,
		Kind:     action.Kind(),
		Action:   action,
		Data:     data,
		Proposer: caller,
	}
	m.requests = append(m.requests, req)
	m.byID[id] = req
	return id, nil
}

// ApproveRequest adds caller's approval and executes the request once enough
// current governors approved it. If execution fails the approval is dropped
// and the error returned.
func (m *Mluck) ApproveRequest(caller common.Address, id common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isGovernorLocked(caller) {
		return ErrNotGovernor
	}
	req, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidRequestID, id.Hex())
	}
	if req.Executed {
		return fmt.Errorf("%w: %s", ErrRequestExecuted, id.Hex())
	}
	if slices.Contains(req.Approvals, caller) {
		return ErrAlreadyVoted
	}

	req.Approvals = append(req.Approvals, caller)
	if !m.approvedLocked(req) {
		return nil
	}
	if err := m.executeLocked(req.Action); err != nil {
		req.Approvals = req.Approvals[:len(req.Approvals)-1]
		return fmt.Errorf("governance: execute %s request %s: %w", req.Kind, id.Hex(), err)
	}
	req.Executed = true
	return nil
}

func (m *Mluck) approvedLocked(req *Request) bool {
	var votes uint64
	for _, a := range req.Approvals {
		if m.isGovernorLocked(a) {
			votes++
		}
	}
	return votes*100 > m.threshold*uint64(len(m.governors))
}

func (m *Mluck) executeLocked(action Action) error {
	switch a := action.(type) {
	case MintAction:
		if a.To == (common.Address{}) {
			return ErrZeroAddress
		}
		return m.token.Mint(a.To, orZero(a.Amount))

	case WithdrawAction:
		t, ok := m.tokens[a.Token]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownToken, a.Token.Hex())
		}
		amount := orZero(a.Amount)
		held := t.BalanceOf(m.token.Address())
		if held.Lt(amount) || new(uint256.Int).Sub(held, amount).Lt(m.remnant) {
			return fmt.Errorf("%w: holding %s, withdrawing %s, remnant %s",
				ErrRemnantViolation, held.Dec(), amount.Dec(), m.remnant.Dec())
		}
		return t.Transfer(m.token.Address(), a.To, amount)

	case GovernorAction:
		if a.Governor == (common.Address{}) {
			return ErrZeroAddress
		}
		idx := slices.Index(m.governors, a.Governor)
		if a.Add {
			if idx >= 0 {
				return fmt.Errorf("%w: %s", ErrGovernorExists, a.Governor.Hex())
			}
			m.governors = append(m.governors, a.Governor)
			return nil
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownGovernor, a.Governor.Hex())
		}
		if len(m.governors) == 1 {
			return ErrLastGovernor
		}
		m.governors = slices.Delete(m.governors, idx, idx+1)
		return nil

	case ThresholdAction:
		if a.Percent < 1 || a.Percent > 100 {
			return fmt.Errorf("%w: %d", ErrInvalidThreshold, a.Percent)
		}
		m.threshold = a.Percent
		return nil

	case RemnantAction:
		m.remnant = orZero(a.Amount).Clone()
		return nil

	default:
		return fmt.Errorf("%w: %T", ErrUnknownKind, action)
	}
}

func (m *Mluck) isGovernorLocked(addr common.Address) bool {
	return slices.Contains(m.governors, addr)
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

// Requests returns every request in proposal order.
func (m *Mluck) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.requests))
	for i, r := range m.requests {
		out[i] = r.clone()
	}
	return out
}

// Request returns one request by id.
func (m *Mluck) Request(id common.Hash) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return Request{}, fmt.Errorf("%w: %s", ErrInvalidRequestID, id.Hex())
	}
	return r.clone(), nil
}

// Governors returns the current governors in the order they were added.
func (m *Mluck) Governors() []common.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.governors)
}

// IsGovernor reports whether addr is a current governor.
func (m *Mluck) IsGovernor(addr common.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isGovernorLocked(addr)
}

// ApproveThreshold returns the approval threshold in percent.
func (m *Mluck) ApproveThreshold() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// Remnant returns the minimum balance a withdrawal leaves behind.
func (m *Mluck) Remnant() *uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remnant.Clone()
}
