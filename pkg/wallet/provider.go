package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

var (
	// ErrUnrecognizedChain is returned by SwitchChain when the wallet does not know the chain.
	ErrUnrecognizedChain = errors.New("unrecognized chain")
	// ErrUserRejected is returned when the user declines a wallet request.
	ErrUserRejected = errors.New("user rejected the request")
)

// Backend is chain RPC access for the active network. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Provider is the wallet capability the session drives: account access, network
// management, change notifications and transaction signing.
type Provider interface {
	// RequestAccounts asks the user for account access. The first address is the active one.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (*big.Int, error)
	// SwitchChain returns ErrUnrecognizedChain when the chain was never added.
	SwitchChain(ctx context.Context, chainID *big.Int) error
	AddChain(ctx context.Context, params ChainParams) error
	Subscribe(ch chan<- Event) event.Subscription
	Transactor(ctx context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error)
	Backend() Backend
	Close()
}

// EventKind distinguishes provider notifications
type EventKind int

const (
	AccountsChanged EventKind = iota
	ChainChanged
)

func (k EventKind) String() string {
	switch k {
	case AccountsChanged:
		return "accountsChanged"
	case ChainChanged:
		return "chainChanged"
	default:
		return "unknown"
	}
}

// Event is a notification pushed by the provider
type Event struct {
	Kind     EventKind
	Accounts []common.Address
	ChainID  *big.Int
}

// Currency is the native currency of a chain
type Currency struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// ChainParams describes a network well enough for a wallet to add it.
type ChainParams struct {
	ChainID      *big.Int
	Name         string
	RPCURLs      []string
	ExplorerURLs []string
	Currency     Currency
}
