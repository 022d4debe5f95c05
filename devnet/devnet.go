// Package devnet runs the contracts in process against a simulated chain.
// Accounts come from an HD mnemonic, contract addresses follow the EVM
// CREATE rule, and deployments are recorded in a bbolt address book under
// the configured data directory so a later session can find them again.
package devnet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"

	"github.com/farhad-zada/mluck-contracts/asset"
	"github.com/farhad-zada/mluck-contracts/config"
	"github.com/farhad-zada/mluck-contracts/governance"
	"github.com/farhad-zada/mluck-contracts/marketplace"
	"github.com/farhad-zada/mluck-contracts/slot"
	"github.com/farhad-zada/mluck-contracts/wallet"
)

const (
	// AddressBookFile and SlotStoreFile live in the data directory.
	AddressBookFile = "addressbook.db"
	SlotStoreFile   = "slots.db"

	// Names the singleton contracts are recorded under.
	NameBUSD        = "busd"
	NameMluck       = "mluck"
	NameLocker      = "locker"
	NameMarketplace = "marketplace"
)

var (
	// BUSDSupply is minted to the deployer when the chain starts.
	BUSDSupply = asset.Ether("10000000000")

	// AccountFunding is sent from the deployer to every other account.
	AccountFunding = asset.Ether("1000000")
)

// Chain is an in-process deployment of the contracts. It is safe for concurrent use.
//
// BUSD balances and slot ledgers survive Close and are picked up by the next
// chain opened on the same data directory. Governance, locker and marketplace
// state lives only as long as the session.
type Chain struct {
	mu deadlock.Mutex

	cfg      config.Config
	log      *logrus.Logger
	logFile  *os.File
	network  *wallet.NetworkConfig
	accounts []*wallet.Account
	nonces   map[common.Address]uint64
	busd     *asset.Token
	book     *AddressBook
	store    *slot.BoltStore
	slots    map[string]*slot.Ledger
	deployed map[string]common.Address
}

// Option configures New.
type Option func(*options)

type options struct {
	keystorePassword string
}

// WithKeystore keeps the HD seed in wallet.KeystorePath(cfg.DataDir),
// encrypted under password. When the mnemonic passed to New is empty and the
// keystore exists, the seed is read from it. Otherwise the seed derived from
// the mnemonic is written there if no keystore exists yet.
func WithKeystore(password string) Option {
	return func(o *options) { o.keystorePassword = password }
}

// New opens a chain for cfg. Accounts are derived from mnemonic, from the
// keystore (see WithKeystore), or from wallet.DevMnemonic. On a fresh data
// directory account 0 deploys BUSD, holds its supply and sends AccountFunding
// to every other account; on a used one the saved BUSD state is restored.
func New(cfg config.Config, mnemonic string, opts ...Option) (_ *Chain, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	network, err := config.ResolveNetwork(cfg)
	if err != nil {
		return nil, err
	}
	seed, err := loadSeed(cfg, mnemonic, o)
	if err != nil {
		return nil, err
	}
	w, err := wallet.NewWallet(seed)
	if err != nil {
		return nil, err
	}
	accounts, err := w.Accounts(cfg.Accounts)
	if err != nil {
		return nil, err
	}

	c := &Chain{
		cfg:      cfg,
		network:  network,
		accounts: accounts,
		nonces:   make(map[common.Address]uint64),
		slots:    make(map[string]*slot.Ledger),
		deployed: make(map[string]common.Address),
	}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		c.logFile, err = os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("devnet: open log file: %w", err)
		}
		out = c.logFile
	}
	c.log = NewLogger(AppName, cfg.LogLevel, out)

	if c.book, err = OpenAddressBook(filepath.Join(cfg.DataDir, AddressBookFile)); err != nil {
		return nil, err
	}
	if c.store, err = slot.OpenBoltStore(filepath.Join(cfg.DataDir, SlotStoreFile)); err != nil {
		return nil, err
	}

	deployer := c.Deployer().Address
	if c.nonces[deployer], err = c.book.Nonce(deployer); err != nil {
		return nil, err
	}

	resumed, err := c.resumeBUSD()
	if err != nil {
		return nil, err
	}
	if !resumed {
		if err := c.deployBUSD(); err != nil {
			return nil, err
		}
	}

	c.log.WithFields(logrus.Fields{
		"network":  network.Name,
		"chain_id": network.ChainID,
		"rpc":      network.RPC(),
		"accounts": len(accounts),
		"deployer": deployer.Hex(),
		"busd":     c.busd.Address().Hex(),
		"resumed":  resumed,
	}).Info("devnet started")
	return c, nil
}

func loadSeed(cfg config.Config, mnemonic string, o options) ([]byte, error) {
	path := wallet.KeystorePath(cfg.DataDir)
	if o.keystorePassword != "" && mnemonic == "" {
		seed, err := wallet.LoadKeystore(path, o.keystorePassword)
		if err == nil || !errors.Is(err, wallet.ErrKeystoreNotFound) {
			return seed, err
		}
	}
	if mnemonic == "" {
		mnemonic = wallet.DevMnemonic
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, err
	}
	if o.keystorePassword != "" {
		err := wallet.SaveKeystore(path, seed, o.keystorePassword)
		if err != nil && !errors.Is(err, wallet.ErrKeystoreExists) {
			return nil, err
		}
	}
	return seed, nil
}

// resumeBUSD restores the BUSD token saved by an earlier session.
func (c *Chain) resumeBUSD() (bool, error) {
	addr, err := c.book.Get(NameBUSD)
	if errors.Is(err, ErrUnknownContract) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	state, err := c.book.GetToken(addr)
	if errors.Is(err, ErrUnknownContract) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if c.busd, err = asset.RestoreToken(state); err != nil {
		return false, err
	}
	c.deployed[NameBUSD] = addr
	return true, nil
}

func (c *Chain) deployBUSD() error {
	deployer := c.Deployer().Address
	c.mu.Lock()
	addr, err := c.nextAddressLocked(deployer)
	if err == nil {
		c.busd, err = asset.NewToken(asset.Params{
			Name:     "Binance USD",
			Symbol:   "BUSD",
			Decimals: asset.DefaultDecimals,
			Address:  addr,
		}, deployer, BUSDSupply)
	}
	if err == nil {
		err = c.recordLocked(NameBUSD, addr)
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	for _, a := range c.accounts[1:] {
		if err := c.Fund(a.Address, AccountFunding); err != nil {
			return err
		}
	}
	return c.book.PutToken(c.busd.Snapshot())
}

// Network returns the network the chain was configured for.
func (c *Chain) Network() *wallet.NetworkConfig { return c.network }

// Endpoint returns the configured network's RPC endpoint.
func (c *Chain) Endpoint() string { return c.network.RPC() }

// Logger returns the chain's logger.
func (c *Chain) Logger() *logrus.Logger { return c.log }

// AddressBook returns the persistent name to address book.
func (c *Chain) AddressBook() *AddressBook { return c.book }

// BUSD returns the stable token every contract settles in.
func (c *Chain) BUSD() *asset.Token { return c.busd }

// Deployer returns account 0.
func (c *Chain) Deployer() *wallet.Account { return c.accounts[0] }

// Accounts returns the derived accounts in index order.
func (c *Chain) Accounts() []*wallet.Account {
	out := make([]*wallet.Account, len(c.accounts))
	copy(out, c.accounts)
	return out
}

// Account returns the account at index i.
func (c *Chain) Account(i int) (*wallet.Account, error) {
	if i < 0 || i >= len(c.accounts) {
		return nil, fmt.Errorf("%w: %d of %d accounts", wallet.ErrIndexOutOfRange, i, len(c.accounts))
	}
	return c.accounts[i], nil
}

// Send runs fn as a transaction from from, logging it and any revert.
func (c *Chain) Send(from common.Address, method string, fn func() error) error {
	entry := c.log.WithFields(logrus.Fields{"from": from.Hex(), "method": method})
	if err := fn(); err != nil {
		entry.WithError(err).Warn("transaction reverted")
		return err
	}
	entry.Debug("transaction mined")
	return nil
}

// Fund transfers amount BUSD from the deployer to to.
func (c *Chain) Fund(to common.Address, amount *uint256.Int) error {
	deployer := c.Deployer().Address
	return c.Send(deployer, "BUSD.transfer", func() error {
		if err := c.busd.Transfer(deployer, to, amount); err != nil {
			return err
		}
		c.log.WithFields(logrus.Fields{
			"to":     to.Hex(),
			"amount": asset.FormatUnits(amount, asset.DefaultDecimals),
		}).Debug("funded")
		return nil
	})
}

// DeploySlot deploys a slot ledger for one property with the configured
// supply and price. It is recorded under symbol.
func (c *Chain) DeploySlot(symbol, property string) (*slot.Ledger, error) {
	price, err := config.SlotPriceUnits(c.cfg)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkNameLocked(symbol); err != nil {
		return nil, err
	}
	deployer := c.Deployer().Address
	addr, err := c.nextAddressLocked(deployer)
	if err != nil {
		return nil, err
	}
	l, err := slot.New(slot.Params{
		Name:      property,
		Symbol:    symbol,
		Address:   addr,
		Owner:     deployer,
		MaxSupply: c.cfg.MaxSupply,
		Price:     price,
	}, c.busd)
	if err != nil {
		return nil, err
	}
	if err := c.recordLocked(symbol, addr); err != nil {
		return nil, err
	}
	c.slots[symbol] = l
	return l, nil
}

// Slot returns the ledger deployed or restored under symbol in this session.
func (c *Chain) Slot(symbol string) (*slot.Ledger, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.slots[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: slot %q", ErrUnknownContract, symbol)
	}
	return l, nil
}

// SnapshotSlot persists the current state of the ledger named symbol together
// with the BUSD balances backing it.
func (c *Chain) SnapshotSlot(symbol string) error {
	l, err := c.Slot(symbol)
	if err != nil {
		return err
	}
	if err := slot.Save(c.store, l); err != nil {
		return err
	}
	if err := c.book.PutToken(c.busd.Snapshot()); err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{
		"slot":    symbol,
		"address": l.Address().Hex(),
		"supply":  l.TotalSupply(),
	}).Info("slot snapshot saved")
	return nil
}

// RestoreSlot loads the last snapshot of symbol, found through the address
// book, and makes it the session's ledger for symbol.
func (c *Chain) RestoreSlot(symbol string) (*slot.Ledger, error) {
	addr, err := c.book.Get(symbol)
	if err != nil {
		return nil, err
	}
	l, err := slot.Load(c.store, addr, c.busd)
	if err != nil {
		return nil, err
	}
	if l.Symbol() != symbol {
		return nil, fmt.Errorf("%w: %s holds %q, not %q", ErrSnapshotMismatch, addr.Hex(), l.Symbol(), symbol)
	}

	c.mu.Lock()
	c.slots[symbol] = l
	c.deployed[symbol] = addr
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"slot":    symbol,
		"address": addr.Hex(),
		"custody": asset.FormatUnits(c.busd.BalanceOf(addr), asset.DefaultDecimals),
	}).Info("slot restored")
	return l, nil
}

// DeployMluck deploys the governance token and lets it withdraw BUSD.
func (c *Chain) DeployMluck() (*governance.Mluck, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkNameLocked(NameMluck); err != nil {
		return nil, err
	}
	deployer := c.Deployer().Address
	addr, err := c.nextAddressLocked(deployer)
	if err != nil {
		return nil, err
	}
	m, err := governance.New(addr, deployer)
	if err != nil {
		return nil, err
	}
	m.Track(c.busd)
	if err := c.recordLocked(NameMluck, addr); err != nil {
		return nil, err
	}
	return m, nil
}

// DeployLocker deploys the slot locker, owned by the deployer.
func (c *Chain) DeployLocker() (*marketplace.Locker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkNameLocked(NameLocker); err != nil {
		return nil, err
	}
	deployer := c.Deployer().Address
	addr, err := c.nextAddressLocked(deployer)
	if err != nil {
		return nil, err
	}
	l, err := marketplace.NewLocker(addr, deployer)
	if err != nil {
		return nil, err
	}
	if err := c.recordLocked(NameLocker, addr); err != nil {
		return nil, err
	}
	return l, nil
}

// DeployMarketplace deploys a BUSD marketplace selling from locker and
// enables it there. locker must be owned by the deployer.
func (c *Chain) DeployMarketplace(locker *marketplace.Locker, opts ...marketplace.Option) (*marketplace.Marketplace, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkNameLocked(NameMarketplace); err != nil {
		return nil, err
	}
	deployer := c.Deployer().Address
	addr, err := c.nextAddressLocked(deployer)
	if err != nil {
		return nil, err
	}
	m, err := marketplace.New(addr, deployer, c.busd, locker, opts...)
	if err != nil {
		return nil, err
	}
	if err := locker.SetMarketplaceStatus(deployer, addr, true); err != nil {
		return nil, err
	}
	if err := c.recordLocked(NameMarketplace, addr); err != nil {
		return nil, err
	}
	return m, nil
}

// Close saves BUSD and every slot ledger of the session, then releases the
// address book, the slot store and the log file.
func (c *Chain) Close() error {
	var errs []error
	if c.busd != nil && c.book != nil && c.store != nil {
		c.mu.Lock()
		for _, l := range c.slots {
			errs = append(errs, slot.Save(c.store, l))
		}
		c.mu.Unlock()
		errs = append(errs, c.book.PutToken(c.busd.Snapshot()))
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	if c.book != nil {
		errs = append(errs, c.book.Close())
	}
	if c.logFile != nil {
		errs = append(errs, c.logFile.Close())
	}
	return errors.Join(errs...)
}

// nextAddressLocked returns the address of the next contract created by from
// and records the advanced nonce.
func (c *Chain) nextAddressLocked(from common.Address) (common.Address, error) {
	nonce := c.nonces[from]
	if err := c.book.SetNonce(from, nonce+1); err != nil {
		return common.Address{}, err
	}
	c.nonces[from] = nonce + 1
	return crypto.CreateAddress(from, nonce), nil
}

func (c *Chain) checkNameLocked(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, ok := c.deployed[name]; ok {
		return fmt.Errorf("%w: %q", ErrContractExists, name)
	}
	return nil
}

func (c *Chain) recordLocked(name string, addr common.Address) error {
	if err := c.book.Put(name, addr); err != nil {
		return err
	}
	c.deployed[name] = addr
	c.log.WithFields(logrus.Fields{
		"contract": name,
		"address":  addr.Hex(),
		"nonce":    c.nonces[c.Deployer().Address] - 1,
	}).Info("contract deployed")
	return nil
}
