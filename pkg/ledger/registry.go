package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/DeBrosOfficial/chainfiles/pkg/wallet"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Registry is the contract access the ledger client needs.
type Registry interface {
	EstimateGas(ctx context.Context, from common.Address, method string, args ...interface{}) (uint64, error)
	Transact(opts *bind.TransactOpts, method string, args ...interface{}) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	Call(ctx context.Context, from common.Address, method string, args ...interface{}) ([]interface{}, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// BoundRegistry is a Registry on a deployed contract through chain RPC.
type BoundRegistry struct {
	address  common.Address
	backend  wallet.Backend
	contract *bind.BoundContract
}

// NewBoundRegistry binds the registry at address.
func NewBoundRegistry(address common.Address, backend wallet.Backend) *BoundRegistry {
	return &BoundRegistry{
		address:  address,
		backend:  backend,
		contract: bind.NewBoundContract(address, registryABI, backend, backend, backend),
	}
}

// Address returns the contract address
func (r *BoundRegistry) Address() common.Address {
	return r.address
}

func (r *BoundRegistry) EstimateGas(ctx context.Context, from common.Address, method string, args ...interface{}) (uint64, error) {
	input, err := registryABI.Pack(method, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	return r.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &r.address, Data: input})
}

func (r *BoundRegistry) Transact(opts *bind.TransactOpts, method string, args ...interface{}) (*types.Transaction, error) {
	return r.contract.Transact(opts, method, args...)
}

func (r *BoundRegistry) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, r.backend, tx)
}

func (r *BoundRegistry) Call(ctx context.Context, from common.Address, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	err := r.contract.Call(&bind.CallOpts{Context: ctx, From: from}, &out, method, args...)
	return out, err
}

func (r *BoundRegistry) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return r.backend.SuggestGasPrice(ctx)
}

var errNotRegistryEvent = errors.New("log is not a registry event")

// ParseFileUploaded decodes a FileUploaded log.
func ParseFileUploaded(log types.Log) (*FileUploaded, error) {
	out := new(FileUploaded)
	if err := unpackEvent(out, EventFileUploaded, log); err != nil {
		return nil, err
	}
	out.Raw = log
	return out, nil
}

// ParseFileRetrieved decodes a FileRetrieved log.
func ParseFileRetrieved(log types.Log) (*FileRetrieved, error) {
	out := new(FileRetrieved)
	if err := unpackEvent(out, EventFileRetrieved, log); err != nil {
		return nil, err
	}
	out.Raw = log
	return out, nil
}

func unpackEvent(out interface{}, name string, log types.Log) error {
	ev := registryABI.Events[name]
	if len(log.Topics) == 0 || log.Topics[0] != ev.ID {
		return errNotRegistryEvent
	}
	if len(log.Data) > 0 {
		if err := registryABI.UnpackIntoInterface(out, name, log.Data); err != nil {
			return fmt.Errorf("failed to unpack %s data: %w", name, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
		return fmt.Errorf("failed to parse %s topics: %w", name, err)
	}
	return nil
}

// FindFileUploaded returns the first FileUploaded event among receipt logs.
func FindFileUploaded(logs []*types.Log) (*FileUploaded, error) {
	var lastErr error = errNotRegistryEvent
	for _, l := range logs {
		if l == nil {
			continue
		}
		ev, err := ParseFileUploaded(*l)
		if err == nil {
			return ev, nil
		}
		if !errors.Is(err, errNotRegistryEvent) {
			lastErr = err
		}
	}
	return nil, fmt.Errorf("no FileUploaded event in receipt: %w", lastErr)
}
