// Package wallet holds the wallet session: connection state, the active account and
// network, and the signing capability handed to the ledger client.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	apperrors "github.com/DeBrosOfficial/chainfiles/pkg/errors"
	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"github.com/DeBrosOfficial/chainfiles/pkg/notify"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Hooks are called from Run when provider notifications change the session.
type Hooks struct {
	// OnAccountChanged runs after a different account was adopted.
	OnAccountChanged func(account common.Address)
	// OnReload runs after a network change tore the session down. The caller is
	// expected to rebuild everything derived from the old session.
	OnReload func()
}

// Session is the single process-wide wallet state. All mutation goes through its methods.
type Session struct {
	provider Provider
	target   ChainParams
	logger   *logging.ColoredLogger
	notifier notify.Notifier

	mu        sync.Mutex
	connected bool
	account   common.Address
	network   *big.Int
	hooks     Hooks
}

// NewSession creates a disconnected session. provider may be nil when no wallet is installed.
func NewSession(provider Provider, target ChainParams, logger *logging.ColoredLogger, notifier notify.Notifier) *Session {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Session{
		provider: provider,
		target:   target,
		logger:   logger,
		notifier: notifier,
	}
}

// SetHooks installs the callbacks used by Run.
func (s *Session) SetHooks(h Hooks) {
	s.mu.Lock()
	s.hooks = h
	s.mu.Unlock()
}

// Connect requests account access and makes sure the wallet is on the target network.
func (s *Session) Connect(ctx context.Context) (common.Address, error) {
	if s.provider == nil {
		return common.Address{}, apperrors.NewWalletUnavailableError("no wallet found, create a keystore account first")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		if errors.Is(err, ErrUserRejected) {
			return common.Address{}, apperrors.NewWalletRejectedError("connection request", err)
		}
		return common.Address{}, fmt.Errorf("failed to request accounts: %w", err)
	}
	if len(accounts) == 0 {
		return common.Address{}, apperrors.NewWalletUnavailableError("wallet returned no accounts")
	}

	s.account = accounts[0]
	s.connected = true

	if err := s.ensureNetwork(ctx); err != nil {
		return s.account, err
	}

	s.logger.ComponentInfo(logging.ComponentWallet, "Wallet connected",
		zap.String("account", s.account.Hex()),
		zap.String("chain_id", s.network.String()),
	)
	return s.account, nil
}

// ensureNetwork switches the wallet to the target chain, adding the chain first if the
// wallet does not know it. Caller holds s.mu.
func (s *Session) ensureNetwork(ctx context.Context) error {
	current, err := s.provider.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read wallet network: %w", err)
	}
	s.network = current
	if current.Cmp(s.target.ChainID) == 0 {
		return nil
	}

	s.logger.ComponentInfo(logging.ComponentWallet, "Switching network",
		zap.String("from", current.String()),
		zap.String("to", s.target.ChainID.String()),
	)

	err = s.provider.SwitchChain(ctx, s.target.ChainID)
	if errors.Is(err, ErrUnrecognizedChain) {
		s.logger.ComponentInfo(logging.ComponentWallet, "Adding network to wallet", zap.String("name", s.target.Name))
		if err = s.provider.AddChain(ctx, s.target); err == nil {
			err = s.provider.SwitchChain(ctx, s.target.ChainID)
		}
	}
	if err != nil {
		return apperrors.NewNetworkMismatchError(s.target.ChainID.String(), current.String(), err)
	}

	s.network = new(big.Int).Set(s.target.ChainID)
	return nil
}

// Disconnect forgets the session locally. Wallet-side permissions are untouched.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectLocked()
}

func (s *Session) disconnectLocked() {
	s.connected = false
	s.account = common.Address{}
	s.network = nil
}

// IsConnected reports whether an account is active
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Account returns the active account and whether there is one
func (s *Session) Account() (common.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account, s.connected
}

// Network returns the chain id the wallet is on, nil when disconnected
func (s *Session) Network() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.network == nil {
		return nil
	}
	return new(big.Int).Set(s.network)
}

// Target returns the network the session switches to on connect.
func (s *Session) Target() ChainParams {
	return s.target
}

// Backend returns chain access for the active network.
func (s *Session) Backend() (Backend, error) {
	if s.provider == nil {
		return nil, apperrors.NewWalletUnavailableError("no wallet found")
	}
	b := s.provider.Backend()
	if b == nil {
		return nil, apperrors.NewWalletUnavailableError("wallet has no network connection")
	}
	return b, nil
}

// TransactOpts returns a signer for the active account.
func (s *Session) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	s.mu.Lock()
	account, connected, network := s.account, s.connected, s.network
	s.mu.Unlock()

	if !connected {
		return nil, apperrors.NewWalletUnavailableError("wallet not connected")
	}
	opts, err := s.provider.Transactor(ctx, account, network)
	if err != nil {
		if errors.Is(err, ErrUserRejected) {
			return nil, apperrors.NewWalletRejectedError("signing", err)
		}
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// Balance returns the active account balance in ether, four decimals.
func (s *Session) Balance(ctx context.Context) (string, error) {
	account, ok := s.Account()
	if !ok {
		return "0", nil
	}
	backend, err := s.Backend()
	if err != nil {
		return "", err
	}
	wei, err := backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch balance: %w", err)
	}
	return FormatEther(wei, 4), nil
}

// Run consumes provider notifications until ctx is done or the subscription fails.
func (s *Session) Run(ctx context.Context) error {
	if s.provider == nil {
		return apperrors.NewWalletUnavailableError("no wallet found")
	}

	events := make(chan Event, 16)
	sub := s.provider.Subscribe(events)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err != nil {
				return fmt.Errorf("wallet subscription failed: %w", err)
			}
			return nil
		case ev := <-events:
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev Event) {
	switch ev.Kind {
	case AccountsChanged:
		s.handleAccountsChanged(ev.Accounts)
	case ChainChanged:
		s.handleChainChanged(ev.ChainID)
	}
}

func (s *Session) handleAccountsChanged(accounts []common.Address) {
	s.mu.Lock()
	if len(accounts) == 0 {
		s.disconnectLocked()
		s.mu.Unlock()
		s.logger.ComponentWarn(logging.ComponentWallet, "Wallet returned no accounts, disconnected")
		s.notifier.Notify(notify.Warning, "Please connect your wallet")
		return
	}
	// a disconnected session only follows the wallet again through Connect
	if !s.connected || accounts[0] == s.account {
		s.mu.Unlock()
		return
	}
	s.account = accounts[0]
	hook := s.hooks.OnAccountChanged
	s.mu.Unlock()

	s.logger.ComponentInfo(logging.ComponentWallet, "Account switched", zap.String("account", accounts[0].Hex()))
	s.notifier.Notify(notify.Info, "Account switched")
	if hook != nil {
		hook(accounts[0])
	}
}

func (s *Session) handleChainChanged(chainID *big.Int) {
	s.mu.Lock()
	s.disconnectLocked()
	hook := s.hooks.OnReload
	s.mu.Unlock()

	id := "unknown"
	if chainID != nil {
		id = chainID.String()
	}
	s.logger.ComponentWarn(logging.ComponentWallet, "Network changed, reloading", zap.String("chain_id", id))
	if hook != nil {
		hook()
	}
}
