package governance

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhad-zada/mluck-contracts/asset"
)

func makeAddr(seed byte) common.Address {
	var addr common.Address
	for i := range addr {
		addr[i] = seed
	}
	return addr
}

var (
	contract = makeAddr(0x4D)
	deployer = makeAddr(0x01)
	addr1    = makeAddr(0xA1)
	addr2    = makeAddr(0xA2)
)

func newMluck(t *testing.T) *Mluck {
	t.Helper()
	m, err := New(contract, deployer)
	require.NoError(t, err)
	return m
}

// propose makes a request as proposer and approves it as each approver in turn.
func propose(t *testing.T, m *Mluck, proposer common.Address, action Action, approvers ...common.Address) common.Hash {
	t.Helper()
	id, err := m.MakeRequest(proposer, action)
	require.NoError(t, err)
	for _, a := range approvers {
		require.NoError(t, m.ApproveRequest(a, id))
	}
	return id
}

func addGovernor(t *testing.T, m *Mluck, g common.Address) {
	t.Helper()
	propose(t, m, deployer, GovernorAction{Governor: g, Add: true}, deployer)
	require.True(t, m.IsGovernor(g))
}

// --- Token tests ---

func TestNew(t *testing.T) {
	m := newMluck(t)

	assert.Equal(t, "Mluck", m.Name())
	assert.Equal(t, "MLUCK", m.Symbol())
	assert.Equal(t, uint8(18), m.Decimals())
	assert.Equal(t, asset.Ether("100000000"), m.TotalSupply())
	assert.Equal(t, asset.Ether("100000000"), m.BalanceOf(deployer))
	assert.Equal(t, []common.Address{deployer}, m.Governors())
	assert.Equal(t, uint64(50), m.ApproveThreshold())
	assert.True(t, m.Remnant().IsZero())

	_, err := New(common.Address{}, deployer)
	assert.ErrorIs(t, err, ErrZeroAddress)
}

func TestERC20(t *testing.T) {
	m := newMluck(t)

	require.NoError(t, m.Transfer(deployer, addr1, asset.Ether("1000")))
	assert.Equal(t, asset.Ether("1000"), m.BalanceOf(addr1))

	require.NoError(t, m.Approve(deployer, addr1, asset.Ether("1000")))
	assert.Equal(t, asset.Ether("1000"), m.Allowance(deployer, addr1))

	require.NoError(t, m.TransferFrom(addr1, deployer, addr2, asset.Ether("1000")))
	assert.Equal(t, asset.Ether("1000"), m.BalanceOf(addr2))
	assert.True(t, m.Allowance(deployer, addr1).IsZero())
}

// --- Request tests ---

func TestAddGovernor(t *testing.T) {
	m := newMluck(t)
	addGovernor(t, m, addr1)

	assert.Equal(t, []common.Address{deployer, addr1}, m.Governors())
	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].Executed)
	assert.Equal(t, KindGovernor, reqs[0].Kind)
	assert.Equal(t, deployer, reqs[0].Proposer)
}

func TestRemoveGovernor_NeedsBothVotes(t *testing.T) {
	m := newMluck(t)
	addGovernor(t, m, addr1)

	id, err := m.MakeRequest(deployer, GovernorAction{Governor: addr1, Add: false})
	require.NoError(t, err)

	// one of two governors at 50% is not strictly above the threshold
	require.NoError(t, m.ApproveRequest(addr1, id))
	assert.Len(t, m.Governors(), 2)

	require.NoError(t, m.ApproveRequest(deployer, id))
	assert.Equal(t, []common.Address{deployer}, m.Governors())

	err = m.ApproveRequest(deployer, id)
	assert.ErrorIs(t, err, ErrRequestExecuted)
}

func TestMintRequest(t *testing.T) {
	m := newMluck(t)
	addGovernor(t, m, addr1)

	id, err := m.MakeRequest(addr1, MintAction{To: addr2, Amount: asset.Ether("1000")})
	require.NoError(t, err)
	assert.True(t, m.BalanceOf(addr2).IsZero())

	require.NoError(t, m.ApproveRequest(deployer, id))
	assert.True(t, m.BalanceOf(addr2).IsZero())

	require.NoError(t, m.ApproveRequest(addr1, id))
	assert.Equal(t, asset.Ether("1000"), m.BalanceOf(addr2))
	assert.Equal(t, asset.Ether("100001000"), m.TotalSupply())
}

func TestMakeRequest_GovernorsOnly(t *testing.T) {
	m := newMluck(t)
	action := MintAction{To: addr2, Amount: asset.Ether("1000")}

	_, err := m.MakeRequest(addr1, action)
	assert.ErrorIs(t, err, ErrNotGovernor)
	_, err = m.MakeRawRequest(addr1, KindMint, nil)
	assert.ErrorIs(t, err, ErrNotGovernor)

	addGovernor(t, m, addr1)
	_, err = m.MakeRequest(addr1, action)
	assert.NoError(t, err)
}

func TestMakeRawRequest(t *testing.T) {
	m := newMluck(t)

	_, err := m.MakeRawRequest(deployer, KindMint, nil)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	_, err = m.MakeRawRequest(deployer, Kind(9), []byte{1})
	assert.ErrorIs(t, err, ErrUnknownKind)

	data, err := EncodeAction(ThresholdAction{Percent: 60})
	require.NoError(t, err)
	id, err := m.MakeRawRequest(deployer, KindThreshold, data)
	require.NoError(t, err)

	req, err := m.Request(id)
	require.NoError(t, err)
	assert.Equal(t, ThresholdAction{Percent: 60}, req.Action)
	assert.Equal(t, data, req.Data)
}

func TestRequestIDs_Unique(t *testing.T) {
	m := newMluck(t)
	action := RemnantAction{Amount: uint256.NewInt(1)}

	a, err := m.MakeRequest(deployer, action)
	require.NoError(t, err)
	b, err := m.MakeRequest(deployer, action)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, m.Requests(), 2)
}

func TestApproveRequest_Errors(t *testing.T) {
	m := newMluck(t)
	addGovernor(t, m, addr1)

	id, err := m.MakeRequest(addr1, MintAction{To: addr2, Amount: asset.Ether("1000")})
	require.NoError(t, err)

	assert.ErrorIs(t, m.ApproveRequest(addr2, id), ErrNotGovernor)

	bogus := common.HexToHash("0xb10e2d527612073b26eecdfd717e6a320cf44b4afac2b0732d9fcbe2b7fa0123")
	assert.ErrorIs(t, m.ApproveRequest(deployer, bogus), ErrInvalidRequestID)
	_, err = m.Request(bogus)
	assert.ErrorIs(t, err, ErrInvalidRequestID)

	require.NoError(t, m.ApproveRequest(deployer, id))
	assert.ErrorIs(t, m.ApproveRequest(deployer, id), ErrAlreadyVoted)
}

func TestSetRemnantAndThreshold(t *testing.T) {
	m := newMluck(t)

	propose(t, m, deployer, RemnantAction{Amount: asset.Ether("1")}, deployer)
	assert.Equal(t, asset.Ether("1"), m.Remnant())

	propose(t, m, deployer, ThresholdAction{Percent: 60}, deployer)
	assert.Equal(t, uint64(60), m.ApproveThreshold())
}

func TestWithdraw(t *testing.T) {
	m := newMluck(t)
	require.NoError(t, m.Transfer(deployer, contract, asset.Ether("1000")))

	propose(t, m, deployer, WithdrawAction{
		Token: contract, To: deployer, Amount: asset.Ether("999.999999"),
	}, deployer)

	expected := new(uint256.Int).Sub(InitialSupply, asset.Ether("0.000001"))
	assert.Equal(t, expected, m.BalanceOf(deployer))
}

func TestWithdraw_TrackedToken(t *testing.T) {
	m := newMluck(t)
	busd, err := asset.NewToken(asset.Params{Symbol: "BUSD", Address: makeAddr(0xB0)}, deployer, asset.Ether("500"))
	require.NoError(t, err)
	require.NoError(t, busd.Transfer(deployer, contract, asset.Ether("500")))

	id, err := m.MakeRequest(deployer, WithdrawAction{Token: busd.Address(), To: addr2, Amount: asset.Ether("500")})
	require.NoError(t, err)
	assert.ErrorIs(t, m.ApproveRequest(deployer, id), ErrUnknownToken)

	m.Track(busd)
	require.NoError(t, m.ApproveRequest(deployer, id))
	assert.Equal(t, asset.Ether("500"), busd.BalanceOf(addr2))
}

func TestWithdraw_KeepsRemnant(t *testing.T) {
	m := newMluck(t)
	require.NoError(t, m.Transfer(deployer, contract, asset.Ether("10")))
	propose(t, m, deployer, RemnantAction{Amount: asset.Ether("1")}, deployer)

	id, err := m.MakeRequest(deployer, WithdrawAction{Token: contract, To: addr1, Amount: asset.Ether("9.5")})
	require.NoError(t, err)

	err = m.ApproveRequest(deployer, id)
	assert.ErrorIs(t, err, ErrRemnantViolation)

	// failed execution drops the approval so the request stays open
	req, err := m.Request(id)
	require.NoError(t, err)
	assert.Empty(t, req.Approvals)
	assert.False(t, req.Executed)
	assert.True(t, m.BalanceOf(addr1).IsZero())

	propose(t, m, deployer, WithdrawAction{Token: contract, To: addr1, Amount: asset.Ether("9")}, deployer)
	assert.Equal(t, asset.Ether("9"), m.BalanceOf(addr1))
	assert.Equal(t, asset.Ether("1"), m.BalanceOf(contract))
}

func TestGovernorAction_Errors(t *testing.T) {
	m := newMluck(t)

	tests := []struct {
		name   string
		action Action
		err    error
	}{
		{"add existing", GovernorAction{Governor: deployer, Add: true}, ErrGovernorExists},
		{"remove unknown", GovernorAction{Governor: addr2, Add: false}, ErrUnknownGovernor},
		{"remove last", GovernorAction{Governor: deployer, Add: false}, ErrLastGovernor},
		{"zero governor", GovernorAction{Add: true}, ErrZeroAddress},
		{"threshold zero", ThresholdAction{Percent: 0}, ErrInvalidThreshold},
		{"threshold above 100", ThresholdAction{Percent: 101}, ErrInvalidThreshold},
		{"mint to zero", MintAction{Amount: uint256.NewInt(1)}, ErrZeroAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := m.MakeRequest(deployer, tt.action)
			require.NoError(t, err)
			assert.ErrorIs(t, m.ApproveRequest(deployer, id), tt.err)
		})
	}
	assert.Equal(t, []common.Address{deployer}, m.Governors())
	assert.Equal(t, uint64(50), m.ApproveThreshold())
}

func TestRemovedGovernorApprovalsDoNotCount(t *testing.T) {
	m := newMluck(t)
	addGovernor(t, m, addr1)
	addGovernor2 := GovernorAction{Governor: addr2, Add: true}
	propose(t, m, deployer, addGovernor2, deployer, addr1)
	require.Len(t, m.Governors(), 3)

	mint, err := m.MakeRequest(addr1, MintAction{To: addr2, Amount: uint256.NewInt(7)})
	require.NoError(t, err)
	require.NoError(t, m.ApproveRequest(addr1, mint))

	propose(t, m, deployer, GovernorAction{Governor: addr1, Add: false}, deployer, addr2)
	require.Equal(t, []common.Address{deployer, addr2}, m.Governors())

	// addr1's earlier vote no longer counts; deployer alone is 50% of two
	require.NoError(t, m.ApproveRequest(deployer, mint))
	assert.True(t, m.BalanceOf(addr2).IsZero())

	require.NoError(t, m.ApproveRequest(addr2, mint))
	assert.Equal(t, uint256.NewInt(7), m.BalanceOf(addr2))
}

// --- Encoding tests ---

func TestEncodeAction_GovernorLayout(t *testing.T) {
	data, err := EncodeAction(GovernorAction{Governor: addr1, Add: true})
	require.NoError(t, err)
	require.Len(t, data, 64)

	assert.Equal(t, addr1.Bytes(), data[12:32])
	assert.Equal(t, byte(1), data[63])

	decoded, err := DecodeAction(KindGovernor, data)
	require.NoError(t, err)
	assert.Equal(t, GovernorAction{Governor: addr1, Add: true}, decoded)
}

func TestDecodeAction_Withdraw(t *testing.T) {
	in := WithdrawAction{Token: contract, To: addr2, Amount: asset.Ether("999.999999")}
	data, err := EncodeAction(in)
	require.NoError(t, err)

	out, err := DecodeAction(KindWithdraw, data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeAction(KindWithdraw, data[:64])
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "mint", KindMint.String())
	assert.Equal(t, "remnant", KindRemnant.String())
	assert.Equal(t, "Kind(7)", Kind(7).String())
}
