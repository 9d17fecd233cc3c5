package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/DeBrosOfficial/chainfiles/pkg/blobstore"
	"github.com/DeBrosOfficial/chainfiles/pkg/blobstore/blobstoretest"
	apperrors "github.com/DeBrosOfficial/chainfiles/pkg/errors"
	"github.com/DeBrosOfficial/chainfiles/pkg/ledger"
	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"github.com/DeBrosOfficial/chainfiles/pkg/notify"
	"github.com/ethereum/go-ethereum/common"
)

const (
	KiB = 1024
	MiB = 1024 * KiB
)

var defaultLimits = Limits{Inline: 10 * KiB, Blob: 100 * MiB}

type countingBlobs struct {
	uploads int
	fetches int
	err     error
	cid     string
	data    map[string][]byte
}

func (b *countingBlobs) Upload(ctx context.Context, data []byte, name, mediaType string, opts ...blobstore.UploadOption) (string, error) {
	b.uploads++
	if b.err != nil {
		return "", b.err
	}
	if b.data == nil {
		b.data = make(map[string][]byte)
	}
	b.data[b.cid] = data
	return b.cid, nil
}

func (b *countingBlobs) Fetch(ctx context.Context, ref string) ([]byte, error) {
	b.fetches++
	data, ok := b.data[blobstore.StripScheme(ref)]
	if !ok {
		return nil, apperrors.NewNotFoundError("content", ref)
	}
	return data, nil
}

// memLedger stores registrations in memory, assigning ids from 1.
type memLedger struct {
	records   []ledger.FileRecord
	calls     int
	err       error
	gasPrice  *big.Int
	lastOrder []string
}

func (l *memLedger) RegisterFile(ctx context.Context, name, content, mediaType string, size int64) (*ledger.Registration, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	id := uint64(len(l.records) + 1)
	l.records = append(l.records, ledger.FileRecord{ID: id, Name: name, Content: content, MediaType: mediaType, Size: uint64(size)})
	return &ledger.Registration{ID: id, TxHash: common.HexToHash("0xabc")}, nil
}

func (l *memLedger) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if l.gasPrice == nil {
		return nil, errors.New("no gas price")
	}
	return l.gasPrice, nil
}

func newTestOrchestrator(blobs BlobClient, l Ledger) *Orchestrator {
	o := New(blobs, l, defaultLimits, logging.NewNopLogger(), nil)
	o.newID = func() string { return "upload-1" }
	return o
}

// Callers outside the package rely on these exact shapes.
var (
	_ func(int64, Limits) StorageDecision                             = Classify
	_ func(int64, Limits) uint64                                      = EstimateGas
	_ func(*Orchestrator, context.Context, int64) (*Estimate, error) = (*Orchestrator).EstimateCost
)

func TestClassifyCustomLimits(t *testing.T) {
	limits := Limits{Inline: 4, Blob: 8}
	tests := []struct {
		size int64
		want StorageDecision
	}{
		{4, Inline},
		{5, BlobStore},
		{8, BlobStore},
		{9, Rejected},
	}
	for _, tt := range tests {
		if got := Classify(tt.size, limits); got != tt.want {
			t.Errorf("Classify(%d) = %v, want %v", tt.size, got, tt.want)
		}
		if tt.want == Inline && EstimateGas(tt.size, limits) == blobStoreGas {
			t.Errorf("EstimateGas(%d) priced as blob store", tt.size)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		size int64
		want StorageDecision
	}{
		{0, Inline},
		{1, Inline},
		{5 * KiB, Inline},
		{10 * KiB, Inline},
		{10*KiB + 1, BlobStore},
		{50 * MiB, BlobStore},
		{100 * MiB, BlobStore},
		{100*MiB + 1, Rejected},
		{200 * MiB, Rejected},
	}
	for _, tt := range tests {
		if got := Classify(tt.size, defaultLimits); got != tt.want {
			t.Errorf("Classify(%d) = %v, want %v", tt.size, got, tt.want)
		}
	}
}

func TestUploadInline(t *testing.T) {
	blobs := &countingBlobs{}
	l := &memLedger{}
	o := newTestOrchestrator(blobs, l)

	data := bytes.Repeat([]byte("a"), 5*KiB)
	res, err := o.Upload(context.Background(), File{Name: "small.txt", MediaType: "text/plain", Data: data})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if blobs.uploads != 0 {
		t.Error("inline files must not touch the blob store")
	}
	if res.Decision != Inline || res.ID != 1 || res.UploadID != "upload-1" {
		t.Errorf("result = %+v", res)
	}
	if l.records[0].Content != base64.StdEncoding.EncodeToString(data) {
		t.Error("registry should hold the base64 payload")
	}
	if l.records[0].Size != uint64(len(data)) {
		t.Errorf("size = %d", l.records[0].Size)
	}
}

func TestUploadBlobStore(t *testing.T) {
	blobs := &countingBlobs{cid: "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"}
	l := &memLedger{}
	rec := &notify.Recorder{}
	o := New(blobs, l, defaultLimits, logging.NewNopLogger(), rec)

	res, err := o.Upload(context.Background(), File{Name: "video.mp4", MediaType: "video/mp4", Data: make([]byte, 50*MiB)})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if blobs.uploads != 1 || l.calls != 1 {
		t.Errorf("uploads=%d registrations=%d", blobs.uploads, l.calls)
	}
	want := "ipfs://" + blobs.cid
	if res.ContentRef != want || l.records[0].Content != want {
		t.Errorf("content ref = %q, registered %q", res.ContentRef, l.records[0].Content)
	}
	if res.UploadID == "" {
		t.Error("upload id should be generated")
	}

	var sawPin bool
	for _, n := range rec.All() {
		if n.Level == notify.Success && strings.HasPrefix(n.Message, "File uploaded to IPFS! Hash: bafybeigdyrz...") {
			sawPin = true
		}
	}
	if !sawPin {
		t.Errorf("notifications = %+v", rec.All())
	}
}

func TestUploadRejectedBeforeNetwork(t *testing.T) {
	blobs := &countingBlobs{}
	l := &memLedger{}
	o := newTestOrchestrator(blobs, l)

	_, err := o.Upload(context.Background(), File{Name: "huge.iso", Data: make([]byte, 200*MiB)})
	var sizeErr *apperrors.SizeExceededError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected SizeExceeded, got %v", err)
	}
	if sizeErr.Limit != 100*MiB || sizeErr.Size != 200*MiB {
		t.Errorf("error = %+v", sizeErr)
	}
	if blobs.uploads != 0 || l.calls != 0 {
		t.Error("rejected uploads must not reach the network")
	}
}

func TestUploadBlobFailureSkipsRegistration(t *testing.T) {
	blobs := &countingBlobs{err: apperrors.NewUploadFailedError("Invalid API key", 401)}
	l := &memLedger{}
	o := newTestOrchestrator(blobs, l)

	_, err := o.Upload(context.Background(), File{Name: "b.bin", Data: make([]byte, 20*KiB)})
	if !apperrors.IsUploadFailed(err) {
		t.Fatalf("expected UploadFailed, got %v", err)
	}
	if l.calls != 0 {
		t.Error("registration must not run after a failed blob upload")
	}
}

func TestUploadRegistrationFailureLeavesBlob(t *testing.T) {
	blobs := &countingBlobs{cid: "bafyorphan"}
	l := &memLedger{err: apperrors.NewRegistrationFailedError("execution reverted", nil)}
	o := newTestOrchestrator(blobs, l)

	_, err := o.Upload(context.Background(), File{Name: "b.bin", Data: make([]byte, 20*KiB)})
	if !apperrors.IsRegistrationFailed(err) {
		t.Fatalf("expected RegistrationFailed, got %v", err)
	}
	if blobs.uploads != 1 {
		t.Error("blob upload happens before registration")
	}
	if _, ok := blobs.data["bafyorphan"]; !ok {
		t.Error("the pinned blob is not removed")
	}
}

func TestRoundTrip(t *testing.T) {
	srv := blobstoretest.NewServer()
	defer srv.Close()
	client := blobstore.NewClient(blobstore.Config{Gateway: srv.URL, ProxyURL: srv.URL}, logging.NewNopLogger())
	l := &memLedger{}
	o := New(client, l, defaultLimits, logging.NewNopLogger(), nil)
	ctx := context.Background()

	small := []byte("tiny note")
	large := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 8*KiB)

	for _, data := range [][]byte{small, large} {
		res, err := o.Upload(ctx, File{Name: "f", MediaType: "application/octet-stream", Data: data})
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		got, err := o.Content(ctx, l.records[res.ID-1])
		if err != nil {
			t.Fatalf("Content: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("round trip of %d bytes returned %d bytes", len(data), len(got))
		}
	}
	if l.records[1].Content != "ipfs://"+blobstoretest.CIDFor(large) {
		t.Errorf("large file ref = %q", l.records[1].Content)
	}
}

func TestContentInvalidInline(t *testing.T) {
	o := newTestOrchestrator(&countingBlobs{}, &memLedger{})
	if _, err := o.Content(context.Background(), ledger.FileRecord{ID: 1, Content: "%%%"}); err == nil {
		t.Error("expected decode error")
	}
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		size int64
		want uint64
	}{
		{0, 100000},
		{1, 100000 + 2*680},
		{3, 100000 + 4*680},
		{5 * KiB, 100000 + 6827*680},
		{10 * KiB, 100000 + 13654*680},
		{10*KiB + 1, 150000},
		{50 * MiB, 150000},
	}
	for _, tt := range tests {
		if got := EstimateGas(tt.size, defaultLimits); got != tt.want {
			t.Errorf("EstimateGas(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}

	o := newTestOrchestrator(&countingBlobs{}, &memLedger{gasPrice: big.NewInt(3_000_000_000)})
	est, err := o.EstimateCost(context.Background(), 20*KiB)
	if err != nil {
		t.Fatal(err)
	}
	if est.Decision != BlobStore || est.CostWei.String() != "450000000000000" {
		t.Errorf("estimate = %+v", est)
	}

	if _, err := newTestOrchestrator(&countingBlobs{}, &memLedger{}).EstimateCost(context.Background(), 1); err == nil {
		t.Error("expected gas price error")
	}
}
