package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"
)

// PassphraseFunc asks the user for the passphrase of an account. Returning
// ErrUserRejected declines the request.
type PassphraseFunc func(account common.Address) (string, error)

// DialFunc opens chain RPC access
type DialFunc func(ctx context.Context, rawurl string) (Backend, error)

// DialEthClient dials an ethclient.Client.
func DialEthClient(ctx context.Context, rawurl string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// KeystoreConfig configures a KeystoreProvider
type KeystoreConfig struct {
	Dir string
	// Chains are the networks the wallet knows from the start.
	Chains []ChainParams
	// ChainID is the network the wallet starts on. Defaults to the first entry of Chains.
	ChainID *big.Int
	Prompt  PassphraseFunc
	Dial    DialFunc
	// ScryptN and ScryptP default to keystore.StandardScryptN/P.
	ScryptN int
	ScryptP int
}

// KeystoreProvider is a Provider backed by an encrypted key directory. Granting account
// access means entering the passphrase of the account.
type KeystoreProvider struct {
	ks     *keystore.KeyStore
	prompt PassphraseFunc
	dial   DialFunc
	logger *logging.ColoredLogger

	mu       sync.Mutex
	chains   map[string]ChainParams
	current  *big.Int
	backend  Backend
	active   common.Address
	unlocked map[common.Address]bool

	feed      event.Feed
	walletCh  chan accounts.WalletEvent
	walletSub event.Subscription
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewKeystoreProvider opens the key directory and dials the starting network.
func NewKeystoreProvider(ctx context.Context, cfg KeystoreConfig, logger *logging.ColoredLogger) (*KeystoreProvider, error) {
	if cfg.Dir == "" {
		return nil, errors.New("keystore directory is required")
	}
	if cfg.Prompt == nil {
		return nil, errors.New("passphrase prompt is required")
	}
	if cfg.Dial == nil {
		cfg.Dial = DialEthClient
	}
	if cfg.ScryptN == 0 {
		cfg.ScryptN, cfg.ScryptP = keystore.StandardScryptN, keystore.StandardScryptP
	}

	p := &KeystoreProvider{
		ks:       keystore.NewKeyStore(cfg.Dir, cfg.ScryptN, cfg.ScryptP),
		prompt:   cfg.Prompt,
		dial:     cfg.Dial,
		logger:   logger,
		chains:   make(map[string]ChainParams),
		unlocked: make(map[common.Address]bool),
		walletCh: make(chan accounts.WalletEvent, 8),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, c := range cfg.Chains {
		p.chains[c.ChainID.String()] = c
	}

	start := cfg.ChainID
	if start == nil && len(cfg.Chains) > 0 {
		start = cfg.Chains[0].ChainID
	}
	if start != nil {
		if err := p.connectChain(ctx, start); err != nil {
			return nil, err
		}
	}

	p.walletSub = p.ks.Subscribe(p.walletCh)
	go p.forward()
	return p, nil
}

// connectChain dials the first RPC URL of a known chain. Caller must not hold p.mu.
func (p *KeystoreProvider) connectChain(ctx context.Context, chainID *big.Int) error {
	p.mu.Lock()
	params, ok := p.chains[chainID.String()]
	p.mu.Unlock()
	if !ok {
		return ErrUnrecognizedChain
	}
	if len(params.RPCURLs) == 0 {
		return fmt.Errorf("chain %s has no RPC URL", chainID)
	}

	backend, err := p.dial(ctx, params.RPCURLs[0])
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", params.Name, err)
	}

	p.mu.Lock()
	old := p.backend
	p.backend = backend
	p.current = new(big.Int).Set(chainID)
	p.mu.Unlock()

	closeBackend(old)
	return nil
}

func closeBackend(b Backend) {
	if c, ok := b.(interface{ Close() }); ok {
		c.Close()
	}
}

// forward turns keystore wallet arrivals and drops into AccountsChanged events.
func (p *KeystoreProvider) forward() {
	defer close(p.done)
	for {
		select {
		case ev := <-p.walletCh:
			if ev.Kind != accounts.WalletArrived && ev.Kind != accounts.WalletDropped {
				continue
			}
			p.feed.Send(Event{Kind: AccountsChanged, Accounts: p.addresses()})
		case <-p.walletSub.Err():
			return
		case <-p.quit:
			return
		}
	}
}

// addresses lists the keystore accounts with the active one first.
func (p *KeystoreProvider) addresses() []common.Address {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	var out []common.Address
	for _, a := range p.ks.Accounts() {
		if a.Address == active {
			out = append([]common.Address{a.Address}, out...)
			continue
		}
		out = append(out, a.Address)
	}
	return out
}

// RequestAccounts unlocks the first account with the user's passphrase.
func (p *KeystoreProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	addrs := p.addresses()
	if len(addrs) == 0 {
		return nil, nil
	}
	if err := p.unlock(addrs[0]); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.active = addrs[0]
	p.mu.Unlock()
	return addrs, nil
}

func (p *KeystoreProvider) unlock(addr common.Address) error {
	p.mu.Lock()
	done := p.unlocked[addr]
	p.mu.Unlock()
	if done {
		return nil
	}

	passphrase, err := p.prompt(addr)
	if err != nil {
		return err
	}
	if err := p.ks.Unlock(accounts.Account{Address: addr}, passphrase); err != nil {
		if errors.Is(err, keystore.ErrDecrypt) {
			return fmt.Errorf("%w: wrong passphrase", ErrUserRejected)
		}
		return fmt.Errorf("failed to unlock %s: %w", addr.Hex(), err)
	}

	p.mu.Lock()
	p.unlocked[addr] = true
	p.mu.Unlock()

	p.logger.ComponentDebug(logging.ComponentWallet, "Account unlocked", zap.String("account", addr.Hex()))
	return nil
}

func (p *KeystoreProvider) ChainID(ctx context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, errors.New("wallet is not on any network")
	}
	return new(big.Int).Set(p.current), nil
}

// SwitchChain moves the wallet to a known chain and emits ChainChanged.
func (p *KeystoreProvider) SwitchChain(ctx context.Context, chainID *big.Int) error {
	p.mu.Lock()
	same := p.current != nil && p.current.Cmp(chainID) == 0
	p.mu.Unlock()
	if same {
		return nil
	}

	if err := p.connectChain(ctx, chainID); err != nil {
		return err
	}
	p.logger.ComponentInfo(logging.ComponentWallet, "Wallet switched network", zap.String("chain_id", chainID.String()))
	p.feed.Send(Event{Kind: ChainChanged, ChainID: new(big.Int).Set(chainID)})
	return nil
}

// AddChain makes a chain known to the wallet.
func (p *KeystoreProvider) AddChain(ctx context.Context, params ChainParams) error {
	if params.ChainID == nil {
		return errors.New("chain id is required")
	}
	if len(params.RPCURLs) == 0 {
		return fmt.Errorf("chain %s has no RPC URL", params.ChainID)
	}
	p.mu.Lock()
	p.chains[params.ChainID.String()] = params
	p.mu.Unlock()

	p.logger.ComponentInfo(logging.ComponentWallet, "Network added", zap.String("name", params.Name), zap.String("chain_id", params.ChainID.String()))
	return nil
}

func (p *KeystoreProvider) Subscribe(ch chan<- Event) event.Subscription {
	return p.feed.Subscribe(ch)
}

// Transactor returns keystore-backed signing options, asking for the passphrase
// when the account is still locked.
func (p *KeystoreProvider) Transactor(ctx context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	if err := p.unlock(account); err != nil {
		return nil, err
	}
	if chainID == nil {
		var err error
		if chainID, err = p.ChainID(ctx); err != nil {
			return nil, err
		}
	}
	return bind.NewKeyStoreTransactorWithChainID(p.ks, accounts.Account{Address: account}, chainID)
}

func (p *KeystoreProvider) Backend() Backend {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backend
}

// Accounts lists every address in the key directory.
func (p *KeystoreProvider) Accounts() []common.Address {
	return p.addresses()
}

// NewAccount creates an encrypted key in the key directory.
func (p *KeystoreProvider) NewAccount(passphrase string) (common.Address, error) {
	acct, err := p.ks.NewAccount(passphrase)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to create account: %w", err)
	}
	return acct.Address, nil
}

// ImportKey stores a hex-encoded private key in the key directory.
func (p *KeystoreProvider) ImportKey(hexKey, passphrase string) (common.Address, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid private key: %w", err)
	}
	acct, err := p.ks.ImportECDSA(key, passphrase)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to import key: %w", err)
	}
	return acct.Address, nil
}

// Close stops event forwarding, locks unlocked accounts and closes chain access.
func (p *KeystoreProvider) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.walletSub.Unsubscribe()
		<-p.done

		p.mu.Lock()
		for addr := range p.unlocked {
			_ = p.ks.Lock(addr)
		}
		p.unlocked = make(map[common.Address]bool)
		backend := p.backend
		p.backend = nil
		p.mu.Unlock()

		closeBackend(backend)
	})
}
