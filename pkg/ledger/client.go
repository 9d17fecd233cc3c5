// Package ledger talks to the on-chain file registry: it registers files and reads them back.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	apperrors "github.com/DeBrosOfficial/chainfiles/pkg/errors"
	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"github.com/DeBrosOfficial/chainfiles/pkg/notify"
	"github.com/DeBrosOfficial/chainfiles/pkg/wallet"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Signer is the part of the wallet session the ledger needs. *wallet.Session satisfies it.
type Signer interface {
	Account() (common.Address, bool)
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// Client wraps the registry contract.
type Client struct {
	signer   Signer
	registry Registry
	logger   *logging.ColoredLogger
	notifier notify.Notifier
}

// NewClient creates a ledger client. signer may be nil for read-only use.
func NewClient(signer Signer, registry Registry, logger *logging.ColoredLogger, notifier notify.Notifier) *Client {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Client{
		signer:   signer,
		registry: registry,
		logger:   logger,
		notifier: notifier,
	}
}

// BufferGas adds the 20% safety margin to a gas estimate: floor(estimate*120/100),
// computed without overflowing and capped at MaxUint64.
func BufferGas(estimate uint64) uint64 {
	q, r := estimate/100, estimate%100
	if q > (math.MaxUint64-r*120/100)/120 {
		return math.MaxUint64
	}
	return q*120 + r*120/100
}

func (c *Client) account() (common.Address, error) {
	if c.signer == nil {
		return common.Address{}, apperrors.NewWalletUnavailableError("wallet not connected")
	}
	addr, ok := c.signer.Account()
	if !ok {
		return common.Address{}, apperrors.NewWalletUnavailableError("wallet not connected")
	}
	return addr, nil
}

// caller is the from address for read calls: the active account, or zero when there is none.
func (c *Client) caller() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	addr, _ := c.signer.Account()
	return addr
}

// RegisterFile records a file in the registry and returns the assigned id.
func (c *Client) RegisterFile(ctx context.Context, name, content, mediaType string, size int64) (*Registration, error) {
	from, err := c.account()
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, apperrors.NewValidationError("size", "must not be negative", size)
	}
	args := []interface{}{name, content, mediaType, big.NewInt(size)}

	c.notifier.Notify(notify.Info, "Uploading file to blockchain...")

	estimate, err := c.registry.EstimateGas(ctx, from, MethodUploadFile, args...)
	if err != nil {
		return nil, c.classify("gas estimation failed", err)
	}
	gasLimit := BufferGas(estimate)

	opts, err := c.signer.TransactOpts(ctx)
	if err != nil {
		return nil, c.classify("signing failed", err)
	}
	opts.GasLimit = gasLimit

	c.logger.ComponentInfo(logging.ComponentLedger, "Submitting registration",
		zap.String("name", name),
		zap.Int64("size", size),
		zap.Uint64("gas_estimate", estimate),
		zap.Uint64("gas_limit", gasLimit),
	)

	tx, err := c.registry.Transact(opts, MethodUploadFile, args...)
	if err != nil {
		return nil, c.classify("transaction failed", err)
	}
	c.notifier.Notify(notify.Info, "Transaction submitted. Waiting for confirmation...")

	receipt, err := c.registry.WaitMined(ctx, tx)
	if err != nil {
		return nil, apperrors.NewRegistrationFailedError(fmt.Sprintf("confirmation failed: %v", err), err).WithTxHash(tx.Hash().Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, apperrors.NewRegistrationFailedError("transaction reverted", nil).WithTxHash(tx.Hash().Hex())
	}

	reg := &Registration{TxHash: receipt.TxHash, GasUsed: receipt.GasUsed}
	if (reg.TxHash == common.Hash{}) {
		reg.TxHash = tx.Hash()
	}

	ev, err := FindFileUploaded(receipt.Logs)
	if err == nil && ev.FileId.IsUint64() {
		reg.ID = ev.FileId.Uint64()
	} else {
		// Best effort: only correct if nobody else registered a file since our transaction.
		c.logger.ComponentWarn(logging.ComponentLedger, "FileUploaded event missing, falling back to file count",
			zap.String("tx", reg.TxHash.Hex()),
			zap.Error(err),
		)
		count, cerr := c.GetFileCount(ctx)
		if cerr != nil {
			return nil, apperrors.NewRegistrationFailedError("registered, but the file id could not be determined", cerr).WithTxHash(reg.TxHash.Hex())
		}
		reg.ID = count
		reg.IDFromCount = true
	}

	c.logger.ComponentInfo(logging.ComponentLedger, "File registered",
		zap.Uint64("id", reg.ID),
		zap.String("tx", reg.TxHash.Hex()),
		zap.Uint64("gas_used", reg.GasUsed),
	)
	c.notifier.Notify(notify.Success, fmt.Sprintf("File uploaded successfully! File ID: %d", reg.ID))
	return reg, nil
}

// classify maps wallet and chain errors onto the registration error taxonomy.
func (c *Client) classify(stage string, err error) error {
	var classified error
	switch {
	case apperrors.IsWalletRejected(err), apperrors.IsWalletUnavailable(err):
		classified = err
	case errors.Is(err, wallet.ErrUserRejected), errors.Is(err, keystore.ErrLocked):
		classified = apperrors.NewWalletRejectedError("transaction", err)
	case strings.Contains(err.Error(), "insufficient funds"):
		classified = apperrors.NewInsufficientFundsError(err)
	default:
		classified = apperrors.NewRegistrationFailedError(err.Error(), err)
	}

	c.logger.ComponentError(logging.ComponentLedger, "Registration failed",
		zap.String("stage", stage),
		zap.String("code", apperrors.GetErrorCode(classified)),
		zap.Error(err),
	)
	return classified
}

// GetFile reads a registry entry through the files(id) getter.
func (c *Client) GetFile(ctx context.Context, id uint64) (*FileRecord, error) {
	out, err := c.registry.Call(ctx, c.caller(), MethodFiles, new(big.Int).SetUint64(id))
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read file %d", id)
	}
	if len(out) != 7 {
		return nil, fmt.Errorf("files(%d): unexpected %d return values", id, len(out))
	}

	rec := &FileRecord{
		Name:      *abi.ConvertType(out[1], new(string)).(*string),
		Content:   *abi.ConvertType(out[2], new(string)).(*string),
		MediaType: *abi.ConvertType(out[3], new(string)).(*string),
		Uploader:  *abi.ConvertType(out[5], new(common.Address)).(*common.Address),
	}
	storedID := abi.ConvertType(out[0], new(big.Int)).(*big.Int)
	if storedID.Sign() == 0 && (rec.Uploader == common.Address{}) {
		return nil, apperrors.NewNotFoundError("file", fmt.Sprintf("%d", id))
	}
	if rec.ID, err = toUint64("id", storedID); err != nil {
		return nil, err
	}
	if rec.Size, err = toUint64("fileSize", abi.ConvertType(out[4], new(big.Int)).(*big.Int)); err != nil {
		return nil, err
	}
	rec.Timestamp = toTime(abi.ConvertType(out[6], new(big.Int)).(*big.Int))
	return rec, nil
}

// RetrieveFile sends the getFile transaction, which logs a FileRetrieved event for
// the caller, then reads the entry.
func (c *Client) RetrieveFile(ctx context.Context, id uint64) (*FileRecord, error) {
	if _, err := c.account(); err != nil {
		return nil, err
	}
	opts, err := c.signer.TransactOpts(ctx)
	if err != nil {
		return nil, c.classify("signing failed", err)
	}

	tx, err := c.registry.Transact(opts, MethodGetFile, new(big.Int).SetUint64(id))
	if err != nil {
		return nil, c.classify("retrieval transaction failed", err)
	}
	receipt, err := c.registry.WaitMined(ctx, tx)
	if err != nil {
		return nil, apperrors.NewRegistrationFailedError(fmt.Sprintf("confirmation failed: %v", err), err).WithTxHash(tx.Hash().Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, apperrors.NewRegistrationFailedError("retrieval reverted", nil).WithTxHash(tx.Hash().Hex())
	}

	c.logger.ComponentInfo(logging.ComponentLedger, "File retrieval recorded",
		zap.Uint64("id", id),
		zap.String("tx", tx.Hash().Hex()),
	)
	return c.GetFile(ctx, id)
}

// GetFileMetadata reads an entry without its content.
func (c *Client) GetFileMetadata(ctx context.Context, id uint64) (*FileMetadata, error) {
	out, err := c.registry.Call(ctx, c.caller(), MethodGetFileMetadata, new(big.Int).SetUint64(id))
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read metadata of file %d", id)
	}
	if len(out) != 5 {
		return nil, fmt.Errorf("getFileMetadata(%d): unexpected %d return values", id, len(out))
	}

	meta := &FileMetadata{
		ID:        id,
		Name:      *abi.ConvertType(out[0], new(string)).(*string),
		MediaType: *abi.ConvertType(out[1], new(string)).(*string),
		Uploader:  *abi.ConvertType(out[3], new(common.Address)).(*common.Address),
		Timestamp: toTime(abi.ConvertType(out[4], new(big.Int)).(*big.Int)),
	}
	if meta.Size, err = toUint64("fileSize", abi.ConvertType(out[2], new(big.Int)).(*big.Int)); err != nil {
		return nil, err
	}
	return meta, nil
}

// GetFilesByOwner lists the ids registered by owner.
func (c *Client) GetFilesByOwner(ctx context.Context, owner common.Address) ([]uint64, error) {
	out, err := c.registry.Call(ctx, c.caller(), MethodGetUserFiles, owner)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to list files of %s", owner.Hex())
	}
	return idList(out)
}

// GetMyFiles lists the ids registered by the connected account.
func (c *Client) GetMyFiles(ctx context.Context) ([]uint64, error) {
	from, err := c.account()
	if err != nil {
		return nil, err
	}
	out, err := c.registry.Call(ctx, from, MethodGetMyFiles)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list your files")
	}
	return idList(out)
}

// GetFileCount returns the number of registered files.
func (c *Client) GetFileCount(ctx context.Context) (uint64, error) {
	out, err := c.registry.Call(ctx, c.caller(), MethodGetFileCount)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read file count")
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("getFileCount: unexpected %d return values", len(out))
	}
	return toUint64("count", abi.ConvertType(out[0], new(big.Int)).(*big.Int))
}

// SuggestGasPrice returns the current gas price in wei.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.registry.SuggestGasPrice(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to fetch gas price")
	}
	return price, nil
}

func idList(out []interface{}) ([]uint64, error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %d return values", len(out))
	}
	raw := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	ids := make([]uint64, 0, len(raw))
	for _, v := range raw {
		id, err := toUint64("id", v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func toUint64(field string, v *big.Int) (uint64, error) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("%s out of range: %v", field, v)
	}
	return v.Uint64(), nil
}

func toTime(v *big.Int) time.Time {
	if v == nil || !v.IsInt64() {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}
