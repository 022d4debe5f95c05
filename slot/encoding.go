package slot

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	stateVersion = 1

	// version(1) + address(20) + owner(20) + max_supply(8) + price(32) + shares_total(32)
	stateHeaderSize = 113
	stateStringSize = 2  // length prefix of name and symbol
	stateCountSize  = 4  // num_units
	unitRecordSize  = 60 // id(8) + owner(20) + claimed(32)
)

// SerializeState encodes a ledger snapshot to binary format.
func SerializeState(state *State) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: state", ErrNilParam)
	}
	p := state.Params
	if len(p.Name) > math.MaxUint16 || len(p.Symbol) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: name or symbol too long", ErrInvalidStateData)
	}
	if len(state.Units) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d units", ErrInvalidStateData, len(state.Units))
	}

	size := stateHeaderSize + 2*stateStringSize + len(p.Name) + len(p.Symbol) +
		stateCountSize + unitRecordSize*len(state.Units)
	buf := make([]byte, size)
	offset := 0

	buf[offset] = stateVersion
	offset++

	copy(buf[offset:offset+20], p.Address[:])
	offset += 20
	copy(buf[offset:offset+20], p.Owner[:])
	offset += 20

	binary.BigEndian.PutUint64(buf[offset:offset+8], p.MaxSupply)
	offset += 8

	offset = putAmount(buf, offset, p.Price)
	offset = putAmount(buf, offset, state.SharesTotal)

	offset = putString(buf, offset, p.Name)
	offset = putString(buf, offset, p.Symbol)

	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(state.Units)))
	offset += 4

	for _, rec := range state.Units {
		binary.BigEndian.PutUint64(buf[offset:offset+8], uint64(rec.ID))
		offset += 8
		copy(buf[offset:offset+20], rec.Owner[:])
		offset += 20
		offset = putAmount(buf, offset, rec.Claimed)
	}
	return buf, nil
}

// DeserializeState decodes binary data into a ledger snapshot.
func DeserializeState(data []byte) (*State, error) {
	if len(data) < stateHeaderSize+2*stateStringSize+stateCountSize {
		return nil, fmt.Errorf("%w: too short (%d bytes)", ErrInvalidStateData, len(data))
	}
	if data[0] != stateVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidStateData, data[0])
	}
	offset := 1

	state := &State{}
	p := &state.Params
	p.Address = common.BytesToAddress(data[offset : offset+20])
	offset += 20
	p.Owner = common.BytesToAddress(data[offset : offset+20])
	offset += 20

	p.MaxSupply = binary.BigEndian.Uint64(data[offset : offset+8])
	offset += 8

	p.Price = new(uint256.Int).SetBytes(data[offset : offset+32])
	offset += 32
	state.SharesTotal = new(uint256.Int).SetBytes(data[offset : offset+32])
	offset += 32

	var err error
	if p.Name, offset, err = getString(data, offset); err != nil {
		return nil, err
	}
	if p.Symbol, offset, err = getString(data, offset); err != nil {
		return nil, err
	}

	if len(data) < offset+stateCountSize {
		return nil, fmt.Errorf("%w: missing unit count", ErrInvalidStateData)
	}
	numUnits := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4

	if expected := offset + unitRecordSize*numUnits; len(data) != expected {
		return nil, fmt.Errorf("%w: expected %d bytes for %d units, got %d",
			ErrInvalidStateData, expected, numUnits, len(data))
	}

	state.Units = make([]UnitRecord, numUnits)
	for i := 0; i < numUnits; i++ {
		state.Units[i].ID = UnitID(binary.BigEndian.Uint64(data[offset : offset+8]))
		offset += 8
		state.Units[i].Owner = common.BytesToAddress(data[offset : offset+20])
		offset += 20
		state.Units[i].Claimed = new(uint256.Int).SetBytes(data[offset : offset+32])
		offset += 32
	}
	return state, nil
}

func putAmount(buf []byte, offset int, v *uint256.Int) int {
	if v != nil {
		b := v.Bytes32()
		copy(buf[offset:offset+32], b[:])
	}
	return offset + 32
}

func putString(buf []byte, offset int, s string) int {
	binary.BigEndian.PutUint16(buf[offset:offset+2], uint16(len(s)))
	offset += 2
	copy(buf[offset:offset+len(s)], s)
	return offset + len(s)
}

func getString(data []byte, offset int) (string, int, error) {
	if len(data) < offset+2 {
		return "", 0, fmt.Errorf("%w: truncated string length", ErrInvalidStateData)
	}
	n := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if len(data) < offset+n {
		return "", 0, fmt.Errorf("%w: truncated string", ErrInvalidStateData)
	}
	return string(data[offset : offset+n]), offset + n, nil
}
