package governance

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/farhad-zada/mluck-contracts/asset"
)

// Token returns the underlying ERC-20 ledger. Minting through it bypasses
// governance and is meant for inspection only.
func (m *Mluck) Token() *asset.Token { return m.token }

// Name returns "Mluck".
func (m *Mluck) Name() string { return m.token.Name() }
func (m *Mluck) Symbol() string { return m.token.Symbol() }
func (m *Mluck) Decimals() uint8 { return m.token.Decimals() }
func (m *Mluck) Address() common.Address { return m.token.Address() }
func (m *Mluck) TotalSupply() *uint256.Int { return m.token.TotalSupply() }
func (m *Mluck) BalanceOf(owner common.Address) *uint256.Int {
	return m.token.BalanceOf(owner)
}

func (m *Mluck) Allowance(owner, spender common.Address) *uint256.Int {
	return m.token.Allowance(owner, spender)
}

func (m *Mluck) Approve(owner, spender common.Address, amount *uint256.Int) error {
	return m.token.Approve(owner, spender, amount)
}

func (m *Mluck) Transfer(from, to common.Address, amount *uint256.Int) error {
	return m.token.Transfer(from, to, amount)
}

func (m *Mluck) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	return m.token.TransferFrom(spender, from, to, amount)
}
