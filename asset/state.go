package asset

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Holding is one non-zero balance in a token snapshot.
type Holding struct {
	Owner  common.Address
	Amount *uint256.Int
}

// Grant is one non-zero allowance in a token snapshot.
type Grant struct {
	Owner   common.Address
	Spender common.Address
	Amount  *uint256.Int
}

// TokenState is a point-in-time copy of a token's balances and allowances.
// The event log is not part of it. Entries are sorted by address.
type TokenState struct {
	Params      Params
	TotalSupply *uint256.Int
	Balances    []Holding
	Allowances  []Grant
}

// Snapshot returns a copy of the token state.
func (t *Token) Snapshot() *TokenState {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := &TokenState{
		Params:      t.params,
		TotalSupply: t.totalSupply.Clone(),
	}
	for owner, bal := range t.balances {
		if !bal.IsZero() {
			state.Balances = append(state.Balances, Holding{Owner: owner, Amount: bal.Clone()})
		}
	}
	for owner, spenders := range t.allowances {
		for spender, amount := range spenders {
			if !amount.IsZero() {
				state.Allowances = append(state.Allowances, Grant{Owner: owner, Spender: spender, Amount: amount.Clone()})
			}
		}
	}
	sort.Slice(state.Balances, func(i, j int) bool {
		return bytes.Compare(state.Balances[i].Owner[:], state.Balances[j].Owner[:]) < 0
	})
	sort.Slice(state.Allowances, func(i, j int) bool {
		a, b := state.Allowances[i], state.Allowances[j]
		if c := bytes.Compare(a.Owner[:], b.Owner[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.Spender[:], b.Spender[:]) < 0
	})
	return state
}

// RestoreToken rebuilds a token from a snapshot. Balances must add up to the
// total supply.
func RestoreToken(state *TokenState) (*Token, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: nil state", ErrInvalidTokenState)
	}
	t, err := NewToken(state.Params, common.Address{}, nil)
	if err != nil {
		return nil, err
	}

	sum := new(uint256.Int)
	for _, h := range state.Balances {
		if h.Owner == (common.Address{}) || h.Amount == nil {
			return nil, fmt.Errorf("%w: empty balance entry", ErrInvalidTokenState)
		}
		if _, dup := t.balances[h.Owner]; dup {
			return nil, fmt.Errorf("%w: %s listed twice", ErrInvalidTokenState, h.Owner.Hex())
		}
		var overflow bool
		if sum, overflow = new(uint256.Int).AddOverflow(sum, h.Amount); overflow {
			return nil, fmt.Errorf("%w: balances", ErrOverflow)
		}
		t.balances[h.Owner] = h.Amount.Clone()
	}
	supply := new(uint256.Int)
	if state.TotalSupply != nil {
		supply = state.TotalSupply.Clone()
	}
	if !sum.Eq(supply) {
		return nil, fmt.Errorf("%w: balances sum to %s, supply is %s", ErrInvalidTokenState, sum.Dec(), supply.Dec())
	}
	t.totalSupply = supply

	for _, g := range state.Allowances {
		if g.Owner == (common.Address{}) || g.Spender == (common.Address{}) || g.Amount == nil {
			return nil, fmt.Errorf("%w: empty allowance entry", ErrInvalidTokenState)
		}
		spenders, ok := t.allowances[g.Owner]
		if !ok {
			spenders = make(map[common.Address]*uint256.Int)
			t.allowances[g.Owner] = spenders
		}
		spenders[g.Spender] = g.Amount.Clone()
	}
	return t, nil
}

const (
	tokenStateVersion = 1

	// version(1) + address(20) + decimals(1) + total_supply(32)
	tokenHeaderSize  = 54
	tokenStringSize  = 2
	tokenCountSize   = 4
	holdingEntrySize = 52 // owner(20) + amount(32)
	grantEntrySize   = 72 // owner(20) + spender(20) + amount(32)
)

// SerializeTokenState encodes a token snapshot to binary format.
func SerializeTokenState(state *TokenState) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: nil state", ErrInvalidTokenState)
	}
	p := state.Params
	if len(p.Name) > math.MaxUint16 || len(p.Symbol) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: name or symbol too long", ErrInvalidTokenState)
	}

	size := tokenHeaderSize + 2*tokenStringSize + len(p.Name) + len(p.Symbol) +
		2*tokenCountSize + holdingEntrySize*len(state.Balances) + grantEntrySize*len(state.Allowances)
	buf := make([]byte, 0, size)

	buf = append(buf, tokenStateVersion)
	buf = append(buf, p.Address[:]...)
	buf = append(buf, p.Decimals)
	buf = appendAmount(buf, state.TotalSupply)
	buf = appendString(buf, p.Name)
	buf = appendString(buf, p.Symbol)

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(state.Balances)))
	for _, h := range state.Balances {
		buf = append(buf, h.Owner[:]...)
		buf = appendAmount(buf, h.Amount)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(state.Allowances)))
	for _, g := range state.Allowances {
		buf = append(buf, g.Owner[:]...)
		buf = append(buf, g.Spender[:]...)
		buf = appendAmount(buf, g.Amount)
	}
	return buf, nil
}

// DeserializeTokenState decodes binary data into a token snapshot.
func DeserializeTokenState(data []byte) (*TokenState, error) {
	if len(data) < tokenHeaderSize+2*tokenStringSize+2*tokenCountSize {
		return nil, fmt.Errorf("%w: too short (%d bytes)", ErrInvalidTokenState, len(data))
	}
	if data[0] != tokenStateVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidTokenState, data[0])
	}
	r := &reader{data: data, offset: 1}

	state := &TokenState{}
	state.Params.Address = common.BytesToAddress(r.next(20))
	state.Params.Decimals = r.next(1)[0]
	state.TotalSupply = new(uint256.Int).SetBytes(r.next(32))
	state.Params.Name = r.string()
	state.Params.Symbol = r.string()

	n := r.count(holdingEntrySize)
	for i := 0; i < n && r.err == nil; i++ {
		state.Balances = append(state.Balances, Holding{
			Owner:  common.BytesToAddress(r.next(20)),
			Amount: new(uint256.Int).SetBytes(r.next(32)),
		})
	}
	n = r.count(grantEntrySize)
	for i := 0; i < n && r.err == nil; i++ {
		state.Allowances = append(state.Allowances, Grant{
			Owner:   common.BytesToAddress(r.next(20)),
			Spender: common.BytesToAddress(r.next(20)),
			Amount:  new(uint256.Int).SetBytes(r.next(32)),
		})
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.offset != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidTokenState, len(data)-r.offset)
	}
	return state, nil
}

func appendAmount(buf []byte, v *uint256.Int) []byte {
	var b [32]byte
	if v != nil {
		b = v.Bytes32()
	}
	return append(buf, b[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

// reader walks a snapshot, remembering the first truncation.
type reader struct {
	data   []byte
	offset int
	err    error
}

func (r *reader) next(n int) []byte {
	if r.err != nil || len(r.data) < r.offset+n {
		if r.err == nil {
			r.err = fmt.Errorf("%w: truncated at byte %d", ErrInvalidTokenState, r.offset)
		}
		return make([]byte, n)
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

func (r *reader) string() string {
	n := int(binary.BigEndian.Uint16(r.next(tokenStringSize)))
	return string(r.next(n))
}

// count reads an entry count and checks the entries fit in the remaining data.
func (r *reader) count(entrySize int) int {
	n := int(binary.BigEndian.Uint32(r.next(tokenCountSize)))
	if r.err == nil && n > (len(r.data)-r.offset)/entrySize {
		r.err = fmt.Errorf("%w: %d entries do not fit in %d bytes", ErrInvalidTokenState, n, len(r.data)-r.offset)
	}
	return n
}
