// Package upload decides where a file is stored and drives the blob store and the
// ledger to store it.
package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/DeBrosOfficial/chainfiles/pkg/blobstore"
	apperrors "github.com/DeBrosOfficial/chainfiles/pkg/errors"
	"github.com/DeBrosOfficial/chainfiles/pkg/ledger"
	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"github.com/DeBrosOfficial/chainfiles/pkg/notify"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlobClient is the blob store client as seen by the orchestrator
type BlobClient interface {
	Upload(ctx context.Context, data []byte, name, mediaType string, opts ...blobstore.UploadOption) (string, error)
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Ledger is the ledger client as seen by the orchestrator
type Ledger interface {
	RegisterFile(ctx context.Context, name, content, mediaType string, size int64) (*ledger.Registration, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// File is a local file to upload
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

// Result describes a completed upload
type Result struct {
	ID          uint64
	TxHash      common.Hash
	Decision    StorageDecision
	ContentRef  string
	UploadID    string
	IDFromCount bool
}

// Orchestrator runs uploads: blob store first when needed, registry second.
type Orchestrator struct {
	blobs    BlobClient
	ledger   Ledger
	limits   Limits
	logger   *logging.ColoredLogger
	notifier notify.Notifier
	newID    func() string
}

// New creates an orchestrator.
func New(blobs BlobClient, ledger Ledger, limits Limits, logger *logging.ColoredLogger, notifier notify.Notifier) *Orchestrator {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Orchestrator{
		blobs:    blobs,
		ledger:   ledger,
		limits:   limits,
		logger:   logger,
		notifier: notifier,
		newID:    uuid.NewString,
	}
}

// Limits returns the configured thresholds
func (o *Orchestrator) Limits() Limits {
	return o.limits
}

// Upload stores f and registers it. Oversized files are rejected before any network call.
// A blob pinned for a registration that then fails stays orphaned; the log line carries
// its upload id and CID.
func (o *Orchestrator) Upload(ctx context.Context, f File) (*Result, error) {
	size := int64(len(f.Data))
	decision := Classify(size, o.limits)
	if decision == Rejected {
		return nil, apperrors.NewSizeExceededError(size, o.limits.Blob)
	}

	res := &Result{Decision: decision, UploadID: o.newID()}
	log := []zap.Field{
		zap.String("upload_id", res.UploadID),
		zap.String("name", f.Name),
		zap.Int64("size", size),
		zap.String("storage", decision.String()),
	}
	o.logger.ComponentInfo(logging.ComponentUpload, "Starting upload", log...)

	switch decision {
	case BlobStore:
		o.notifier.Notify(notify.Info, "Uploading file to IPFS...")
		cid, err := o.blobs.Upload(ctx, f.Data, f.Name, f.MediaType, blobstore.WithUploadID(res.UploadID))
		if err != nil {
			o.logger.ComponentError(logging.ComponentUpload, "Blob upload failed", append(log, zap.Error(err))...)
			return nil, err
		}
		res.ContentRef = blobstore.RemoteRef(cid).Encode()
		o.notifier.Notify(notify.Success, fmt.Sprintf("File uploaded to IPFS! Hash: %s...", truncate(cid, 12)))
	default:
		res.ContentRef = blobstore.InlineRef(f.Data).Encode()
	}

	reg, err := o.ledger.RegisterFile(ctx, f.Name, res.ContentRef, f.MediaType, size)
	if err != nil {
		if decision == BlobStore {
			o.logger.ComponentWarn(logging.ComponentUpload, "Registration failed, blob left orphaned",
				append(log, zap.String("content_ref", res.ContentRef), zap.Error(err))...)
		}
		return nil, err
	}

	res.ID = reg.ID
	res.TxHash = reg.TxHash
	res.IDFromCount = reg.IDFromCount
	o.logger.ComponentInfo(logging.ComponentUpload, "Upload complete",
		append(log, zap.Uint64("id", res.ID), zap.String("tx", res.TxHash.Hex()))...)
	return res, nil
}

// Content returns the bytes of a registry record, decoding inline data or fetching the blob.
func (o *Orchestrator) Content(ctx context.Context, rec ledger.FileRecord) ([]byte, error) {
	ref, err := blobstore.ParseRef(rec.Content)
	if err != nil {
		return nil, fmt.Errorf("file %d: %w", rec.ID, err)
	}
	if ref.Kind == blobstore.RefInline {
		return ref.Inline, nil
	}
	return o.blobs.Fetch(ctx, ref.Encode())
}

// InlineSize is the number of bytes a payload of size occupies once base64 encoded.
func InlineSize(size int64) int64 {
	return int64(base64.StdEncoding.EncodedLen(int(size)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
