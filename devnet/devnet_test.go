package devnet

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhad-zada/mluck-contracts/asset"
	"github.com/farhad-zada/mluck-contracts/config"
	"github.com/farhad-zada/mluck-contracts/governance"
	"github.com/farhad-zada/mluck-contracts/marketplace"
	"github.com/farhad-zada/mluck-contracts/slot"
	"github.com/farhad-zada/mluck-contracts/wallet"
)

var (
	hardhat0 = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	hardhat1 = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.LogFile = filepath.Join(dir, "devnet.log")
	cfg.LogLevel = "debug"
	cfg.Accounts = 3
	cfg.MaxSupply = 100
	cfg.SlotPrice = "50"
	return cfg
}

func newChain(t *testing.T, cfg config.Config) *Chain {
	t.Helper()
	c, err := New(cfg, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// --- Chain tests ---

func TestNew_DevAccountsAndFunding(t *testing.T) {
	c := newChain(t, testConfig(t))

	accts := c.Accounts()
	require.Len(t, accts, 3)
	assert.Equal(t, hardhat0, c.Deployer().Address)
	assert.Equal(t, hardhat1, accts[1].Address)
	assert.Equal(t, "hardhat", c.Network().Name)

	busd := c.BUSD()
	assert.Equal(t, "BUSD", busd.Symbol())
	assert.Equal(t, BUSDSupply, busd.TotalSupply())
	assert.Equal(t, AccountFunding, busd.BalanceOf(accts[1].Address))
	assert.Equal(t, AccountFunding, busd.BalanceOf(accts[2].Address))

	rest := asset.Ether("9998000000")
	assert.Equal(t, rest, busd.BalanceOf(hardhat0))
}

func TestNew_ContractAddressesFollowCreate(t *testing.T) {
	c := newChain(t, testConfig(t))

	// First three contracts from the hardhat deployer.
	assert.Equal(t, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), c.BUSD().Address())

	locker, err := c.DeployLocker()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"), locker.Address())

	m, err := c.DeployMluck()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"), m.Address())

	all, err := c.AddressBook().All()
	require.NoError(t, err)
	assert.Equal(t, map[string]common.Address{
		NameBUSD:   c.BUSD().Address(),
		NameLocker: locker.Address(),
		NameMluck:  m.Address(),
	}, all)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Network = "mainnet"
	_, err := New(cfg, "")
	assert.ErrorIs(t, err, config.ErrInvalidNetwork)

	cfg = testConfig(t)
	_, err = New(cfg, "not a mnemonic")
	assert.ErrorIs(t, err, wallet.ErrInvalidMnemonic)
}

func TestAccount_OutOfRange(t *testing.T) {
	c := newChain(t, testConfig(t))

	a, err := c.Account(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), a.Index)

	_, err = c.Account(3)
	assert.ErrorIs(t, err, wallet.ErrIndexOutOfRange)
	_, err = c.Account(-1)
	assert.ErrorIs(t, err, wallet.ErrIndexOutOfRange)
}

func TestDeploy_DuplicateNames(t *testing.T) {
	c := newChain(t, testConfig(t))

	_, err := c.DeployLocker()
	require.NoError(t, err)
	_, err = c.DeployLocker()
	assert.ErrorIs(t, err, ErrContractExists)

	_, err = c.DeploySlot(NameBUSD, "clash")
	assert.ErrorIs(t, err, ErrContractExists)
	_, err = c.DeploySlot("", "nameless")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestSend_LogsRevert(t *testing.T) {
	cfg := testConfig(t)
	c := newChain(t, cfg)
	stranger := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	err := c.Send(stranger, "BUSD.transfer", func() error {
		return c.BUSD().Transfer(stranger, hardhat1, asset.Ether("1"))
	})
	assert.ErrorIs(t, err, asset.ErrInsufficientBalance)

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[mluck] transaction reverted")
	assert.Contains(t, string(data), "[mluck] contract deployed")
	assert.Contains(t, string(data), "[mluck] devnet started")
}

// --- Contract flow tests ---

func TestSlotLifecycle_SnapshotRestore(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(cfg, "")
	require.NoError(t, err)

	l, err := c.DeploySlot("PALM", "1234 Palm Jumeirah, Dubai, UAE")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), l.MaxSupply())
	assert.Equal(t, asset.Ether("50"), l.Price())

	alice := c.Accounts()[1].Address
	busd := c.BUSD()
	require.NoError(t, busd.Approve(alice, l.Address(), asset.Ether("1000")))
	require.NoError(t, l.MintBatch(alice, alice, []slot.UnitID{1, 2}))

	require.NoError(t, busd.Approve(hardhat0, l.Address(), asset.Ether("1000")))
	require.NoError(t, l.Deposit(hardhat0, asset.Ether("1000")))

	paid, err := l.Claim(alice, 1)
	require.NoError(t, err)
	assert.Equal(t, asset.Ether("10"), paid)

	require.NoError(t, c.SnapshotSlot("PALM"))
	custody := busd.BalanceOf(l.Address())
	aliceBalance := busd.BalanceOf(alice)
	require.NoError(t, c.Close())

	// A later session finds the ledger through the address book, backed by
	// the same BUSD balances.
	c2 := newChain(t, cfg)
	restored, err := c2.RestoreSlot("PALM")
	require.NoError(t, err)
	assert.Equal(t, l.Address(), restored.Address())
	assert.Equal(t, asset.Ether("1000"), restored.SharesTotal())

	busd2 := c2.BUSD()
	assert.Equal(t, busd.Address(), busd2.Address())
	assert.Equal(t, custody, busd2.BalanceOf(restored.Address()))
	assert.Equal(t, aliceBalance, busd2.BalanceOf(alice))

	owner, err := restored.OwnerOf(2)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)
	claimed, err := restored.Claimed(1)
	require.NoError(t, err)
	assert.Equal(t, asset.Ether("10"), claimed)

	same, err := c2.Slot("PALM")
	require.NoError(t, err)
	assert.Same(t, restored, same)

	// Claims and deposits keep working on the restored ledger.
	paid, err = restored.Claim(alice, 2)
	require.NoError(t, err)
	assert.Equal(t, asset.Ether("10"), paid)

	require.NoError(t, busd2.Approve(hardhat0, restored.Address(), asset.Ether("1000")))
	require.NoError(t, restored.Deposit(hardhat0, asset.Ether("1000")))
	paid, err = restored.Claim(alice, 1)
	require.NoError(t, err)
	assert.Equal(t, asset.Ether("10"), paid)

	want := new(uint256.Int).Add(aliceBalance, asset.Ether("20"))
	assert.Equal(t, want, busd2.BalanceOf(alice))
	want = new(uint256.Int).Add(custody, asset.Ether("980"))
	assert.Equal(t, want, busd2.BalanceOf(restored.Address()))
}

func TestNew_SecondSessionKeepsAddressesApart(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(cfg, "")
	require.NoError(t, err)
	a, err := c.DeploySlot("A", "First tower")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"), a.Address())
	require.NoError(t, c.SnapshotSlot("A"))
	require.NoError(t, c.Close())

	c2 := newChain(t, cfg)
	assert.Equal(t, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), c2.BUSD().Address())

	// The deployer nonce carries over, so B gets the next CREATE address.
	b, err := c2.DeploySlot("B", "Second tower")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"), b.Address())
	require.NoError(t, c2.SnapshotSlot("B"))

	restored, err := c2.RestoreSlot("A")
	require.NoError(t, err)
	assert.Equal(t, "A", restored.Symbol())
	assert.Equal(t, a.Address(), restored.Address())

	nonce, err := c2.AddressBook().Nonce(hardhat0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), nonce)
}

func TestNew_ResumesBUSD(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(cfg, "")
	require.NoError(t, err)
	stranger := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	require.NoError(t, c.Fund(stranger, asset.Ether("7")))
	require.NoError(t, c.BUSD().Approve(hardhat1, stranger, asset.Ether("3")))
	require.NoError(t, c.Close())

	c2 := newChain(t, cfg)
	busd := c2.BUSD()
	assert.Equal(t, BUSDSupply, busd.TotalSupply())
	assert.Equal(t, asset.Ether("7"), busd.BalanceOf(stranger))
	assert.Equal(t, asset.Ether("3"), busd.Allowance(hardhat1, stranger))
	// Accounts are funded once, not again on every session.
	assert.Equal(t, AccountFunding, busd.BalanceOf(hardhat1))
	assert.Equal(t, asset.Ether("9997999993"), busd.BalanceOf(hardhat0))

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "resumed=true")
}

func TestRestoreSlot_RejectsForeignLedger(t *testing.T) {
	c := newChain(t, testConfig(t))
	_, err := c.DeploySlot("A", "First tower")
	require.NoError(t, err)
	b, err := c.DeploySlot("B", "Second tower")
	require.NoError(t, err)
	require.NoError(t, c.SnapshotSlot("A"))
	require.NoError(t, c.SnapshotSlot("B"))

	book := c.AddressBook()
	assert.ErrorIs(t, book.Put("A", b.Address()), ErrAddressInUse)

	require.NoError(t, book.Delete("B"))
	require.NoError(t, book.Put("A", b.Address()))
	_, err = c.RestoreSlot("A")
	assert.ErrorIs(t, err, ErrSnapshotMismatch)
}

func TestNew_Keystore(t *testing.T) {
	cfg := testConfig(t)
	mnemonic, err := wallet.GenerateMnemonic(128)
	require.NoError(t, err)

	c, err := New(cfg, mnemonic, WithKeystore("hunter2"))
	require.NoError(t, err)
	deployer := c.Deployer().Address
	assert.NotEqual(t, hardhat0, deployer)
	require.NoError(t, c.Close())

	info, err := os.Stat(wallet.KeystorePath(cfg.DataDir))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// Without a mnemonic the seed comes from the keystore.
	c2, err := New(cfg, "", WithKeystore("hunter2"))
	require.NoError(t, err)
	assert.Equal(t, deployer, c2.Deployer().Address)
	assert.False(t, c2.BUSD().BalanceOf(deployer).IsZero())
	require.NoError(t, c2.Close())

	_, err = New(cfg, "", WithKeystore("wrong"))
	assert.ErrorIs(t, err, wallet.ErrDecryptionFailed)
}

func TestNew_CustomNetworkFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Network = ""
	cfg.NetworkFile = filepath.Join(t.TempDir(), "anvil.json")
	require.NoError(t, os.WriteFile(cfg.NetworkFile,
		[]byte(`{"name": "anvil", "chain_id": 31337, "rpc_url": "http://127.0.0.1:8545", "rpc_env": "ANVIL_RPC"}`), 0600))
	t.Setenv("ANVIL_RPC", "http://10.0.0.2:8545")

	c := newChain(t, cfg)
	assert.Equal(t, "anvil", c.Network().Name)
	assert.Equal(t, uint64(31337), c.Network().ChainID)
	assert.Equal(t, "http://10.0.0.2:8545", c.Endpoint())

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "10.0.0.2:8545")

	cfg = testConfig(t)
	cfg.Network = "hardhat"
	cfg.NetworkFile = filepath.Join(t.TempDir(), "anvil.json")
	require.NoError(t, os.WriteFile(cfg.NetworkFile, []byte(`{"name": "anvil", "chain_id": 31337, "rpc_url": "x"}`), 0600))
	_, err = New(cfg, "")
	assert.ErrorIs(t, err, config.ErrInvalidNetwork)
}

func TestSlot_Unknown(t *testing.T) {
	c := newChain(t, testConfig(t))

	_, err := c.Slot("NOPE")
	assert.ErrorIs(t, err, ErrUnknownContract)
	assert.ErrorIs(t, c.SnapshotSlot("NOPE"), ErrUnknownContract)
	_, err = c.RestoreSlot("NOPE")
	assert.ErrorIs(t, err, ErrUnknownContract)
}

func TestMarketplaceFlow(t *testing.T) {
	c := newChain(t, testConfig(t))
	busd := c.BUSD()
	buyer := c.Accounts()[2].Address

	l, err := c.DeploySlot("MARINA", "Dubai Marina")
	require.NoError(t, err)
	require.NoError(t, busd.Approve(hardhat0, l.Address(), asset.Ether("250")))
	require.NoError(t, l.MintBatch(hardhat0, hardhat0, []slot.UnitID{1, 2, 3, 4, 5}))

	locker, err := c.DeployLocker()
	require.NoError(t, err)
	mp, err := c.DeployMarketplace(locker)
	require.NoError(t, err)
	assert.True(t, locker.MarketplaceStatus(mp.Address()))

	require.NoError(t, locker.Lock(hardhat0, l, []slot.UnitID{1, 2, 3, 4, 5}))
	require.NoError(t, mp.AddProperty(hardhat0, l, asset.Ether("60"), asset.Ether("1")))
	require.NoError(t, mp.SetPropertyStatus(hardhat0, l.Address(), marketplace.StatusOpen))

	require.NoError(t, busd.Approve(buyer, mp.Address(), asset.Ether("1000")))
	err = c.Send(buyer, "Marketplace.buy", func() error {
		_, err := mp.Buy(buyer, l.Address(), []slot.UnitID{2, 4}, nil)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(2), l.BalanceOf(buyer))
	assert.Equal(t, asset.Ether("121"), busd.BalanceOf(mp.Address()))
	assert.Equal(t, []slot.UnitID{1, 3, 5}, locker.Holdings(l.Address()))
}

func TestDeployMluck_TracksBUSD(t *testing.T) {
	c := newChain(t, testConfig(t))
	m, err := c.DeployMluck()
	require.NoError(t, err)
	assert.Equal(t, governance.InitialSupply, m.BalanceOf(hardhat0))

	require.NoError(t, c.Fund(m.Address(), asset.Ether("5")))
	id, err := m.MakeRequest(hardhat0, governance.WithdrawAction{
		Token:  c.BUSD().Address(),
		To:     hardhat1,
		Amount: asset.Ether("5"),
	})
	require.NoError(t, err)
	require.NoError(t, m.ApproveRequest(hardhat0, id))

	assert.True(t, c.BUSD().BalanceOf(m.Address()).IsZero())
	assert.Equal(t, asset.Ether("1000005"), c.BUSD().BalanceOf(hardhat1))
}

// --- AddressBook tests ---

func TestAddressBook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", AddressBookFile)
	book, err := OpenAddressBook(path)
	require.NoError(t, err)

	addr := common.HexToAddress("0x1234")
	require.NoError(t, book.Put("slot", addr))

	got, err := book.Get("slot")
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	_, err = book.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownContract)
	assert.ErrorIs(t, book.Put("", addr), ErrEmptyName)
	require.NoError(t, book.Close())

	reopened, err := OpenAddressBook(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err = reopened.Get("slot")
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	other := common.HexToAddress("0x5678")
	assert.ErrorIs(t, reopened.Put("other", addr), ErrAddressInUse)
	require.NoError(t, reopened.Put("slot", other))
	require.NoError(t, reopened.Put("other", addr))
	require.NoError(t, reopened.Delete("other"))

	require.NoError(t, reopened.Delete("slot"))
	assert.ErrorIs(t, reopened.Delete("slot"), ErrUnknownContract)
	all, err := reopened.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

// --- Logger tests ---

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("test-app", "WARN", &buf)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger.Info("hidden")
	logger.WithField("k", "v").Warn("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[test-app] shown")
	assert.Contains(t, out, "k=v")
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("test-app", "verbose", &buf)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "Invalid log level 'verbose'")
}

func TestAddressBook_Nonces(t *testing.T) {
	path := filepath.Join(t.TempDir(), AddressBookFile)
	book, err := OpenAddressBook(path)
	require.NoError(t, err)

	n, err := book.Nonce(hardhat0)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, book.SetNonce(hardhat0, 42))
	require.NoError(t, book.Close())

	book, err = OpenAddressBook(path)
	require.NoError(t, err)
	defer book.Close()
	n, err = book.Nonce(hardhat0)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)
	n, err = book.Nonce(hardhat1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddressBook_Tokens(t *testing.T) {
	book, err := OpenAddressBook(filepath.Join(t.TempDir(), AddressBookFile))
	require.NoError(t, err)
	defer book.Close()

	tokenAddr := common.HexToAddress("0xb05d")
	token, err := asset.NewToken(asset.Params{
		Name:     "Binance USD",
		Symbol:   "BUSD",
		Decimals: asset.DefaultDecimals,
		Address:  tokenAddr,
	}, hardhat0, asset.Ether("100"))
	require.NoError(t, err)
	require.NoError(t, token.Transfer(hardhat0, hardhat1, asset.Ether("40")))
	require.NoError(t, token.Approve(hardhat1, hardhat0, asset.Ether("5")))

	_, err = book.GetToken(tokenAddr)
	assert.ErrorIs(t, err, ErrUnknownContract)

	require.NoError(t, book.PutToken(token.Snapshot()))
	state, err := book.GetToken(tokenAddr)
	require.NoError(t, err)
	restored, err := asset.RestoreToken(state)
	require.NoError(t, err)
	assert.Equal(t, "BUSD", restored.Symbol())
	assert.Equal(t, asset.Ether("60"), restored.BalanceOf(hardhat0))
	assert.Equal(t, asset.Ether("40"), restored.BalanceOf(hardhat1))
	assert.Equal(t, asset.Ether("5"), restored.Allowance(hardhat1, hardhat0))
}
