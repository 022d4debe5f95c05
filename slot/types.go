package slot

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// UnitID identifies one fractional-ownership slot of a property, in [1, MaxSupply].
type UnitID uint64

// Asset is the value-bearing token the ledger takes custody of. The ledger pulls
// with TransferFrom (deposits, mint payments) and pushes with Transfer (claims,
// withdrawals), always acting as its own Params.Address.
type Asset interface {
	BalanceOf(owner common.Address) *uint256.Int
	Allowance(owner, spender common.Address) *uint256.Int
	Approve(owner, spender common.Address, amount *uint256.Int) error
	Transfer(from, to common.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to common.Address, amount *uint256.Int) error
}

// Params are fixed when a ledger is created.
type Params struct {
	Name      string         // Property description, e.g. "1234 Palm Jumeirah, Dubai, UAE"
	Symbol    string         // Token symbol
	Address   common.Address // Ledger's own account in the asset
	Owner     common.Address // Contract owner, allowed to withdraw free funds
	MaxSupply uint64         // Number of units; immutable
	Price     *uint256.Int   // Asset amount paid per minted unit
}

// UnitRecord is the persisted form of one minted unit.
type UnitRecord struct {
	ID      UnitID
	Owner   common.Address
	Claimed *uint256.Int
}

// State is a point-in-time copy of a ledger, used for persistence.
// Units are ordered by ascending id.
type State struct {
	Params      Params
	SharesTotal *uint256.Int
	Units       []UnitRecord
}
