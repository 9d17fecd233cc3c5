package cli

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DeBrosOfficial/chainfiles/pkg/blobstore/blobstoretest"
	"github.com/DeBrosOfficial/chainfiles/pkg/ledger"
	"github.com/DeBrosOfficial/chainfiles/pkg/wallet"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type stubBackend struct {
	wallet.Backend
	balance *big.Int
}

func (b *stubBackend) BalanceAt(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error) {
	return b.balance, nil
}

type fakeProvider struct {
	mu       sync.Mutex
	accounts []common.Address
	reqErr   error
	chain    *big.Int
	requests int
	feed     event.Feed
	backend  wallet.Backend
	created  []string
}

func newFakeProvider(accts ...common.Address) *fakeProvider {
	return &fakeProvider{
		accounts: accts,
		chain:    big.NewInt(11155111),
		backend:  &stubBackend{balance: new(big.Int).Mul(big.NewInt(15), big.NewInt(1e17))},
	}
}

func (f *fakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return f.accounts, f.reqErr
}

func (f *fakeProvider) ChainID(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.chain), nil
}

func (f *fakeProvider) SwitchChain(ctx context.Context, chainID *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chain = new(big.Int).Set(chainID)
	return nil
}

func (f *fakeProvider) AddChain(ctx context.Context, params wallet.ChainParams) error { return nil }

func (f *fakeProvider) Subscribe(ch chan<- wallet.Event) event.Subscription {
	return f.feed.Subscribe(ch)
}

func (f *fakeProvider) Transactor(ctx context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{From: account}, nil
}

func (f *fakeProvider) Backend() wallet.Backend { return f.backend }
func (f *fakeProvider) Close()                  {}

func (f *fakeProvider) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// key management, so the account command has something to talk to
func (f *fakeProvider) Accounts() []common.Address { return f.accounts }

func (f *fakeProvider) NewAccount(passphrase string) (common.Address, error) {
	f.created = append(f.created, "new:"+passphrase)
	return bob, nil
}

func (f *fakeProvider) ImportKey(hexKey, passphrase string) (common.Address, error) {
	if strings.HasPrefix(hexKey, "0x") {
		return common.Address{}, errors.New("unexpected 0x prefix")
	}
	f.created = append(f.created, "import:"+passphrase)
	return alice, nil
}

// memRegistry is an in-memory file registry speaking the contract's calls and events.
type memRegistry struct {
	mu        sync.Mutex
	files     []ledger.FileRecord
	logs      map[common.Hash][]*types.Log
	retrieved []uint64
	nonce     uint64
	noEvents  bool
	gasPrice  *big.Int
}

func newMemRegistry() *memRegistry {
	return &memRegistry{
		logs:     make(map[common.Hash][]*types.Log),
		gasPrice: big.NewInt(3_000_000_000),
	}
}

func (m *memRegistry) add(rec ledger.FileRecord) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = uint64(len(m.files) + 1)
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Unix(1700000000, 0)
	}
	m.files = append(m.files, rec)
	return rec.ID
}

func (m *memRegistry) EstimateGas(ctx context.Context, from common.Address, method string, args ...interface{}) (uint64, error) {
	return 100000, nil
}

func (m *memRegistry) Transact(opts *bind.TransactOpts, method string, args ...interface{}) (*types.Transaction, error) {
	var logs []*types.Log
	switch method {
	case ledger.MethodUploadFile:
		rec := ledger.FileRecord{
			Name:      args[0].(string),
			Content:   args[1].(string),
			MediaType: args[2].(string),
			Size:      args[3].(*big.Int).Uint64(),
			Uploader:  opts.From,
		}
		id := m.add(rec)
		ev := ledger.ABI().Events[ledger.EventFileUploaded]
		data, err := ev.Inputs.NonIndexed().Pack(rec.Name, big.NewInt(1700000000))
		if err != nil {
			return nil, err
		}
		if !m.noEvents {
			logs = append(logs, &types.Log{
				Topics: []common.Hash{ev.ID, common.BigToHash(new(big.Int).SetUint64(id)), common.BytesToHash(opts.From.Bytes())},
				Data:   data,
			})
		}
	case ledger.MethodGetFile:
		m.mu.Lock()
		m.retrieved = append(m.retrieved, args[0].(*big.Int).Uint64())
		m.mu.Unlock()
	default:
		return nil, fmt.Errorf("unexpected transaction %s", method)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonce++
	tx := types.NewTx(&types.LegacyTx{Nonce: m.nonce, Gas: opts.GasLimit})
	m.logs[tx.Hash()] = logs
	return tx, nil
}

func (m *memRegistry) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash(), Logs: m.logs[tx.Hash()], GasUsed: 90000}, nil
}

func (m *memRegistry) Call(ctx context.Context, from common.Address, method string, args ...interface{}) ([]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch method {
	case ledger.MethodFiles:
		id := args[0].(*big.Int).Uint64()
		if id == 0 || id > uint64(len(m.files)) {
			return []interface{}{big.NewInt(0), "", "", "", big.NewInt(0), common.Address{}, big.NewInt(0)}, nil
		}
		f := m.files[id-1]
		return []interface{}{
			new(big.Int).SetUint64(f.ID), f.Name, f.Content, f.MediaType,
			new(big.Int).SetUint64(f.Size), f.Uploader, big.NewInt(f.Timestamp.Unix()),
		}, nil
	case ledger.MethodGetFileCount:
		return []interface{}{big.NewInt(int64(len(m.files)))}, nil
	case ledger.MethodGetMyFiles:
		return []interface{}{m.idsOf(from)}, nil
	case ledger.MethodGetUserFiles:
		return []interface{}{m.idsOf(args[0].(common.Address))}, nil
	}
	return nil, fmt.Errorf("unexpected call %s", method)
}

func (m *memRegistry) idsOf(owner common.Address) []*big.Int {
	ids := []*big.Int{}
	for _, f := range m.files {
		if f.Uploader == owner {
			ids = append(ids, new(big.Int).SetUint64(f.ID))
		}
	}
	return ids
}

func (m *memRegistry) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return m.gasPrice, nil
}

type testEnv struct {
	app      *App
	provider *fakeProvider
	registry *memRegistry
	pinning  *blobstoretest.Server
	out      *lockedBuffer
	errOut   *lockedBuffer
	home     string
}

// newTestEnv builds an App against a fake wallet, an in-memory registry and a fake
// pinning proxy. Limits are tiny so both storage paths are cheap to reach.
func newTestEnv(t *testing.T, format string) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("CHAINFILES_HOME", home)
	t.Setenv("CHAINFILES_PROXY_URL", "")
	t.Setenv("CHAINFILES_PINATA_JWT", "")

	pinning := blobstoretest.NewServer()
	t.Cleanup(pinning.Close)

	cfg := fmt.Sprintf(`storage:
  inline_limit: 16
  blob_limit: 1024
pinning:
  gateway: %s
  proxy_url: %s
share:
  base_url: https://chainfiles.test/
logging:
  level: fatal
  colors: false
`, pinning.URL, pinning.URL)
	path := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0600); err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		provider: newFakeProvider(alice),
		registry: newMemRegistry(),
		pinning:  pinning,
		out:      &lockedBuffer{},
		errOut:   &lockedBuffer{},
		home:     home,
	}
	app, err := NewApp(Options{
		ConfigPath: path,
		Format:     format,
		Timeout:    10 * time.Second,
		Out:        env.out,
		Err:        env.errOut,
		Provider:   env.provider,
		NewRegistry: func(common.Address, wallet.Backend) ledger.Registry {
			return env.registry
		},
		Plain: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(app.Close)
	env.app = app
	return env
}

func (e *testEnv) run(t *testing.T, name string, args ...string) error {
	t.Helper()
	return e.app.Run(context.Background(), name, args)
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// lockedBuffer is written by the wallet event goroutine during watch
type lockedBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
