package cli

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"

	"github.com/DeBrosOfficial/chainfiles/pkg/blobstore"
	apperrors "github.com/DeBrosOfficial/chainfiles/pkg/errors"
	"github.com/DeBrosOfficial/chainfiles/pkg/httputil"
	"github.com/DeBrosOfficial/chainfiles/pkg/ledger"
	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"github.com/DeBrosOfficial/chainfiles/pkg/notify"
	"github.com/DeBrosOfficial/chainfiles/pkg/share"
	"github.com/DeBrosOfficial/chainfiles/pkg/upload"
	"github.com/DeBrosOfficial/chainfiles/pkg/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/zap"
)

func (a *App) limits() upload.Limits {
	return upload.Limits{Inline: a.cfg.Storage.InlineLimit, Blob: a.cfg.Storage.BlobLimit}
}

// statFile checks a local file against the size limits before anything is read or sent.
func (a *App) statFile(path string) (os.FileInfo, upload.StorageDecision, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, upload.Rejected, err
	}
	if info.IsDir() {
		return nil, upload.Rejected, apperrors.NewValidationError("file", "is a directory", path)
	}
	decision := upload.Classify(info.Size(), a.limits())
	if decision == upload.Rejected {
		return info, decision, apperrors.NewSizeExceededError(info.Size(), a.cfg.Storage.BlobLimit)
	}
	return info, decision, nil
}

type uploadReport struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	MediaType   string `json:"media_type"`
	Storage     string `json:"storage"`
	ContentRef  string `json:"content_ref"`
	TxHash      string `json:"tx_hash"`
	UploadID    string `json:"upload_id"`
	IDFromCount bool   `json:"id_from_count,omitempty"`
	ShareLink   string `json:"share_link"`
}

func (a *App) handleUpload(ctx context.Context, args []string) error {
	fs := a.flags("upload")
	name := fs.String("name", "", "Name recorded in the registry (default: file name)")
	mediaType := fs.String("type", "", "Media type (default: detected)")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if fs.NArg() != 1 {
		return a.usage("upload")
	}
	path := fs.Arg(0)

	if _, _, err := a.statFile(path); err != nil {
		if apperrors.IsSizeExceeded(err) {
			return a.warn(userMessage("", err), err)
		}
		return fail("Please select a file first", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fail("Please select a file first", err)
	}

	f := upload.File{Name: *name, MediaType: *mediaType, Data: data}
	if f.Name == "" {
		f.Name = filepath.Base(path)
	}
	if f.MediaType == "" {
		f.MediaType = upload.DetectMediaType(f.Name, data)
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if _, err := a.connect(ctx); err != nil {
		return fail("Please connect your wallet first", err)
	}
	uploads, err := a.Uploads(ctx)
	if err != nil {
		return fail("Upload failed", err)
	}
	res, err := uploads.Upload(ctx, f)
	if err != nil {
		return fail("Upload failed", err)
	}
	if res.IDFromCount {
		a.notifier.Notify(notify.Warning, fmt.Sprintf("File ID %d was read from the registry count and may belong to another upload", res.ID))
	}

	r := uploadReport{
		ID:          res.ID,
		Name:        f.Name,
		Size:        int64(len(data)),
		MediaType:   f.MediaType,
		Storage:     res.Decision.String(),
		ContentRef:  res.ContentRef,
		TxHash:      res.TxHash.Hex(),
		UploadID:    res.UploadID,
		IDFromCount: res.IDFromCount,
		ShareLink:   share.Link(a.cfg.Share.BaseURL, res.ID),
	}
	if r.Storage == upload.Inline.String() {
		// base64 payloads are noise in a terminal
		r.ContentRef = fmt.Sprintf("inline (%d bytes)", upload.InlineSize(r.Size))
	}
	if a.format == "json" {
		return printJSON(a.out, r)
	}
	renderTable(a.out, []string{"Field", "Value"}, [][]string{
		{"File ID", strconv.FormatUint(r.ID, 10)},
		{"Name", r.Name},
		{"Size", formatFileSize(r.Size)},
		{"Type", orUnknown(r.MediaType)},
		{"Storage", storageName(res.Decision)},
		{"Content", r.ContentRef},
		{"Transaction", r.TxHash},
		{"Share", r.ShareLink},
	})
	return nil
}

type estimateReport struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Storage      string `json:"storage"`
	Gas          uint64 `json:"gas"`
	GasPriceGwei string `json:"gas_price_gwei"`
	Cost         string `json:"cost"`
	Symbol       string `json:"symbol"`
}

func (a *App) handleEstimate(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("estimate")
	}
	info, _, err := a.statFile(args[0])
	if err != nil {
		if apperrors.IsSizeExceeded(err) {
			return a.warn(userMessage("", err), err)
		}
		return fail("Estimate failed", err)
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	uploads, err := a.Uploads(ctx)
	if err != nil {
		return fail("Estimate failed", err)
	}
	est, err := uploads.EstimateCost(ctx, info.Size())
	if err != nil {
		return fail("Estimate failed", err)
	}

	r := estimateReport{
		Name:         info.Name(),
		Size:         info.Size(),
		Storage:      est.Decision.String(),
		Gas:          est.Gas,
		GasPriceGwei: wallet.FormatEther(new(big.Int).Mul(est.GasPriceWei, big.NewInt(params.GWei)), 2),
		Cost:         wallet.FormatEther(est.CostWei, 6),
		Symbol:       a.cfg.Network.Currency.Symbol,
	}
	if a.format == "json" {
		return printJSON(a.out, r)
	}
	renderTable(a.out, []string{"Field", "Value"}, [][]string{
		{"File", r.Name},
		{"Size", formatFileSize(r.Size)},
		{"Storage", storageName(est.Decision)},
		{"Estimated gas", strconv.FormatUint(r.Gas, 10)},
		{"Gas price", r.GasPriceGwei + " gwei"},
		{"Estimated cost", r.Cost + " " + r.Symbol},
	})
	return nil
}

type fileRow struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Size      uint64 `json:"size"`
	Storage   string `json:"storage"`
	Uploader  string `json:"uploader"`
	Timestamp string `json:"timestamp"`
	Content   string `json:"content,omitempty"`
}

func newFileRow(rec *ledger.FileRecord) fileRow {
	return fileRow{
		ID:        rec.ID,
		Name:      rec.Name,
		MediaType: rec.MediaType,
		Size:      rec.Size,
		Storage:   recordStorage(rec.Content),
		Uploader:  rec.Uploader.Hex(),
		Timestamp: formatTime(rec.Timestamp),
	}
}

func (a *App) handleList(ctx context.Context, args []string) error {
	fs := a.flags("list")
	owner := fs.String("owner", "", "List the files of this address instead of your own")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var ids []uint64
	if *owner != "" {
		if !httputil.ValidateWalletAddress(*owner) {
			return fail("Failed to load files", apperrors.NewValidationError("owner", "not an address", *owner))
		}
		l, err := a.Ledger(ctx)
		if err != nil {
			return fail("Failed to load files", err)
		}
		if ids, err = l.GetFilesByOwner(ctx, common.HexToAddress(*owner)); err != nil {
			return fail("Failed to load files", err)
		}
	} else {
		if _, err := a.connect(ctx); err != nil {
			return fail("Please connect your wallet first", err)
		}
		l, err := a.Ledger(ctx)
		if err != nil {
			return fail("Failed to load your files", err)
		}
		if ids, err = l.GetMyFiles(ctx); err != nil {
			return fail("Failed to load your files", err)
		}
	}

	rows, err := a.loadRows(ctx, ids)
	if err != nil {
		return fail("Failed to load your files", err)
	}
	if a.format == "json" {
		return printJSON(a.out, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "No files uploaded yet")
		return nil
	}
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{
			strconv.FormatUint(r.ID, 10), r.Name, orUnknown(r.MediaType),
			formatFileSize(int64(r.Size)), r.Storage, r.Timestamp,
		})
	}
	renderTable(a.out, []string{"ID", "Name", "Type", "Size", "Storage", "Uploaded"}, table)
	return nil
}

// loadRows reads each record, newest first. Records that fail to load are logged and skipped.
func (a *App) loadRows(ctx context.Context, ids []uint64) ([]fileRow, error) {
	l, err := a.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]fileRow, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		rec, err := l.GetFile(ctx, ids[i])
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			a.logger.ComponentWarn(logging.ComponentCLI, "Skipping unreadable file", zap.Uint64("id", ids[i]), zap.Error(err))
			continue
		}
		rows = append(rows, newFileRow(rec))
	}
	return rows, nil
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.NewValidationError("id", "Please enter a valid file ID", s)
	}
	return id, nil
}

func (a *App) handleGet(ctx context.Context, args []string) error {
	fs := a.flags("get")
	retrieve := fs.Bool("retrieve", false, "Record the retrieval on chain (sends a transaction)")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if fs.NArg() != 1 {
		return a.usage("get")
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return a.warn("Please enter a valid file ID", err)
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if *retrieve {
		if _, err := a.connect(ctx); err != nil {
			return fail("Please connect your wallet first", err)
		}
	}
	l, err := a.Ledger(ctx)
	if err != nil {
		return fail("Failed to retrieve file", err)
	}
	var rec *ledger.FileRecord
	if *retrieve {
		rec, err = l.RetrieveFile(ctx, id)
	} else {
		rec, err = l.GetFile(ctx, id)
	}
	if err != nil {
		return fail("Failed to retrieve file", err)
	}
	return a.printRecord(rec)
}

func (a *App) printRecord(rec *ledger.FileRecord) error {
	row := newFileRow(rec)
	if ref, err := blobstore.ParseRef(rec.Content); err == nil && ref.Kind == blobstore.RefRemote {
		row.Content = a.Blobs().ResolveURL(ref.Encode())
	} else {
		row.Content = fmt.Sprintf("inline (%d bytes)", len(rec.Content))
	}

	if a.format == "json" {
		return printJSON(a.out, row)
	}
	renderTable(a.out, []string{"Field", "Value"}, [][]string{
		{"File ID", strconv.FormatUint(row.ID, 10)},
		{"Name", row.Name},
		{"Type", orUnknown(row.MediaType)},
		{"Size", formatFileSize(int64(row.Size))},
		{"Storage", row.Storage},
		{"Content", row.Content},
		{"Uploader", row.Uploader},
		{"Uploaded", row.Timestamp},
		{"Share", share.Link(a.cfg.Share.BaseURL, row.ID)},
	})
	return nil
}

func (a *App) handleDownload(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return a.usage("download")
	}
	id, err := parseID(args[0])
	if err != nil {
		return a.warn("Please enter a valid file ID", err)
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	a.notifier.Notify(notify.Info, "Preparing download...")
	l, err := a.Ledger(ctx)
	if err != nil {
		return fail("Download failed", err)
	}
	rec, err := l.GetFile(ctx, id)
	if err != nil {
		return fail("Download failed", err)
	}

	dest := safeFileName(rec.Name, id)
	if len(args) == 2 {
		dest = args[1]
		if st, err := os.Stat(dest); err == nil && st.IsDir() {
			dest = filepath.Join(dest, safeFileName(rec.Name, id))
		}
	}

	ref, err := blobstore.ParseRef(rec.Content)
	if err != nil {
		return fail("Download failed", err)
	}
	if ref.Kind == blobstore.RefInline {
		if err := os.WriteFile(dest, ref.Inline, 0644); err != nil {
			return fail("Download failed", err)
		}
		a.notifier.Notify(notify.Success, "File downloaded successfully! Saved to "+dest)
		return nil
	}

	a.notifier.Notify(notify.Info, "Fetching from IPFS, please wait...")
	f, err := os.Create(dest)
	if err != nil {
		return fail("Download failed", err)
	}
	info, err := a.Blobs().Download(ctx, ref.Encode(), rec.Name, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return fail("Failed to download from IPFS", err)
	}
	a.debug("Download complete", zap.String("dest", dest), zap.Int64("bytes", info.Bytes), zap.Bool("proxied", info.Proxied))
	a.notifier.Notify(notify.Success, fmt.Sprintf("File downloaded successfully! Saved to %s (%s)", dest, formatFileSize(info.Bytes)))
	return nil
}

type statsReport struct {
	TotalFiles uint64 `json:"total_files"`
	MyFiles    *int   `json:"my_files,omitempty"`
	Account    string `json:"account,omitempty"`
}

func (a *App) handleStats(ctx context.Context, args []string) error {
	fs := a.flags("stats")
	mine := fs.Bool("mine", false, "Also count your own files (unlocks the wallet)")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	if *mine {
		if _, err := a.connect(ctx); err != nil {
			return fail("Please connect your wallet first", err)
		}
	}
	return a.printStats(ctx, *mine)
}

// printStats shows the registry total and, for a connected session, the caller's count.
func (a *App) printStats(ctx context.Context, mine bool) error {
	l, err := a.Ledger(ctx)
	if err != nil {
		return fail("Failed to load stats", err)
	}
	total, err := l.GetFileCount(ctx)
	if err != nil {
		return fail("Failed to load stats", err)
	}
	r := statsReport{TotalFiles: total}
	if mine && a.session != nil {
		if addr, ok := a.session.Account(); ok {
			ids, err := l.GetMyFiles(ctx)
			if err != nil {
				return fail("Failed to load your files", err)
			}
			n := len(ids)
			r.MyFiles = &n
			r.Account = addr.Hex()
		}
	}

	if a.format == "json" {
		return printJSON(a.out, r)
	}
	fmt.Fprintf(a.out, "Total files: %d\n", r.TotalFiles)
	if r.MyFiles != nil {
		fmt.Fprintf(a.out, "My files:    %d\n", *r.MyFiles)
	}
	return nil
}

func recordStorage(content string) string {
	if blobstore.IsContentID(content) {
		return storageName(upload.BlobStore)
	}
	return storageName(upload.Inline)
}

func storageName(d upload.StorageDecision) string {
	switch d {
	case upload.Inline:
		return "Direct On-Chain"
	case upload.BlobStore:
		return "IPFS + Blockchain"
	}
	return d.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// safeFileName keeps downloads inside the working directory.
func safeFileName(name string, id uint64) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == "" {
		return fmt.Sprintf("file-%d", id)
	}
	return base
}
