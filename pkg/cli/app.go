package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/DeBrosOfficial/chainfiles/pkg/blobstore"
	"github.com/DeBrosOfficial/chainfiles/pkg/config"
	"github.com/DeBrosOfficial/chainfiles/pkg/ledger"
	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"github.com/DeBrosOfficial/chainfiles/pkg/notify"
	"github.com/DeBrosOfficial/chainfiles/pkg/prefs"
	"github.com/DeBrosOfficial/chainfiles/pkg/upload"
	"github.com/DeBrosOfficial/chainfiles/pkg/wallet"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Options configures an App. Zero values select the production wiring.
type Options struct {
	ConfigPath string
	Format     string
	Timeout    time.Duration

	In  *os.File
	Out io.Writer
	Err io.Writer

	// Provider replaces the keystore wallet.
	Provider wallet.Provider
	// NewRegistry replaces the bound registry contract.
	NewRegistry func(address common.Address, backend wallet.Backend) ledger.Registry
	// Plain disables banner styling.
	Plain bool
}

// App holds the services of one CLI run. Services are built on first use and
// injected into each other; nothing lives in package globals.
type App struct {
	cfg     *config.Config
	dir     string
	format  string
	timeout time.Duration

	in     *os.File
	out    io.Writer
	errOut io.Writer

	logger   *logging.ColoredLogger
	banner   *notify.Banner
	notifier notify.Notifier

	newRegistry func(common.Address, wallet.Backend) ledger.Registry
	provider    wallet.Provider
	ownProvider bool
	session     *wallet.Session
	ledger      *ledger.Client
	blobs       *blobstore.Client
	uploads     *upload.Orchestrator
}

// NewApp loads configuration and preferences and prepares the notifier.
func NewApp(opts Options) (*App, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.Format == "" {
		opts.Format = "table"
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	path := opts.ConfigPath
	if path == "" {
		if path, err = config.DefaultPath("config.yaml"); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration:\n  %w", errors.Join(errs...))
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	logger := logging.NewLogger(opts.Err, level, cfg.Logging.Colors)
	if cfg.Logging.File != "" {
		if logger, err = logging.NewFileLogger(cfg.Logging.File, level); err != nil {
			return nil, err
		}
	}

	// keep stdout parseable in json mode
	bannerOut := opts.Out
	if opts.Format == "json" {
		bannerOut = opts.Err
	}
	theme := notify.Theme(prefs.Load(dir).Theme)
	banner := notify.NewBanner(bannerOut, theme)
	if opts.Plain {
		banner = banner.Plain()
	}

	a := &App{
		cfg:         cfg,
		dir:         dir,
		format:      opts.Format,
		timeout:     opts.Timeout,
		in:          opts.In,
		out:         opts.Out,
		errOut:      opts.Err,
		logger:      logger,
		banner:      banner,
		notifier:    notify.Multi(banner, notify.NewLogNotifier(logger, logging.ComponentCLI)),
		newRegistry: opts.NewRegistry,
		provider:    opts.Provider,
	}
	if a.newRegistry == nil {
		a.newRegistry = func(addr common.Address, b wallet.Backend) ledger.Registry {
			return ledger.NewBoundRegistry(addr, b)
		}
	}
	return a, nil
}

// Config returns the loaded configuration
func (a *App) Config() *config.Config {
	return a.cfg
}

func (a *App) targetChain() wallet.ChainParams {
	n := a.cfg.Network
	return wallet.ChainParams{
		ChainID:      n.ChainIDBig(),
		Name:         n.Name,
		RPCURLs:      n.RPCURLs,
		ExplorerURLs: n.ExplorerURLs,
		Currency: wallet.Currency{
			Name:     n.Currency.Name,
			Symbol:   n.Currency.Symbol,
			Decimals: n.Currency.Decimals,
		},
	}
}

// walletProvider opens the keystore wallet unless one was injected.
func (a *App) walletProvider(ctx context.Context) (wallet.Provider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	dir, err := a.cfg.KeystoreDir()
	if err != nil {
		return nil, err
	}
	target := a.targetChain()
	p, err := wallet.NewKeystoreProvider(ctx, wallet.KeystoreConfig{
		Dir:     dir,
		Chains:  []wallet.ChainParams{target},
		ChainID: target.ChainID,
		Prompt:  a.passphrasePrompt(),
	}, a.logger)
	if err != nil {
		return nil, walletUnavailable(err)
	}
	a.provider = p
	a.ownProvider = true
	return p, nil
}

// PassphraseEnv lets scripts unlock the keystore without a terminal.
const PassphraseEnv = "CHAINFILES_PASSPHRASE"

func (a *App) passphrasePrompt() wallet.PassphraseFunc {
	if v, ok := os.LookupEnv(PassphraseEnv); ok {
		return wallet.StaticPassphrase(v)
	}
	return wallet.TerminalPrompt(a.in, a.errOut)
}

// Session returns the wallet session, creating it disconnected.
func (a *App) Session(ctx context.Context) (*wallet.Session, error) {
	if a.session != nil {
		return a.session, nil
	}
	p, err := a.walletProvider(ctx)
	if err != nil {
		return nil, err
	}
	a.session = wallet.NewSession(p, a.targetChain(), a.logger, a.notifier)
	return a.session, nil
}

// connect connects the session and rebinds the ledger to the network it ended up on.
func (a *App) connect(ctx context.Context) (common.Address, error) {
	s, err := a.Session(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if addr, ok := s.Account(); ok {
		return addr, nil
	}
	addr, err := s.Connect(ctx)
	if err != nil {
		return common.Address{}, err
	}
	a.ledger = nil
	a.uploads = nil
	return addr, nil
}

// Ledger returns the registry client bound to the wallet's current network.
func (a *App) Ledger(ctx context.Context) (*ledger.Client, error) {
	if a.ledger != nil {
		return a.ledger, nil
	}
	s, err := a.Session(ctx)
	if err != nil {
		return nil, err
	}
	p, err := a.walletProvider(ctx)
	if err != nil {
		return nil, err
	}
	backend := p.Backend()
	if backend == nil {
		return nil, walletUnavailable(errors.New("no chain connection"))
	}
	registry := a.newRegistry(common.HexToAddress(a.cfg.Contract.Address), backend)
	a.ledger = ledger.NewClient(s, registry, a.logger, a.notifier)
	return a.ledger, nil
}

// Blobs returns the blob store client
func (a *App) Blobs() *blobstore.Client {
	if a.blobs == nil {
		p := a.cfg.Pinning
		a.blobs = blobstore.NewClient(blobstore.Config{
			Gateway:  p.Gateway,
			ProxyURL: p.ProxyURL,
			APIURL:   p.APIURL,
			JWT:      p.JWT,
			Timeout:  p.Timeout,
		}, a.logger)
	}
	return a.blobs
}

// Uploads returns the upload orchestrator
func (a *App) Uploads(ctx context.Context) (*upload.Orchestrator, error) {
	if a.uploads != nil {
		return a.uploads, nil
	}
	l, err := a.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	limits := upload.Limits{Inline: a.cfg.Storage.InlineLimit, Blob: a.cfg.Storage.BlobLimit}
	a.uploads = upload.New(a.Blobs(), l, limits, a.logger, a.notifier)
	return a.uploads, nil
}

// Reload drops every chain-bound service. The next use rebuilds them from scratch.
func (a *App) Reload() {
	a.logger.ComponentInfo(logging.ComponentCLI, "Reloading application state")
	a.uploads = nil
	a.ledger = nil
	a.session = nil
	if a.ownProvider && a.provider != nil {
		a.provider.Close()
		a.provider = nil
		a.ownProvider = false
	}
}

// Close releases the wallet
func (a *App) Close() {
	if a.ownProvider && a.provider != nil {
		a.provider.Close()
	}
	if err := a.logger.Sync(); err != nil && !isSyncNoise(err) {
		fmt.Fprintf(a.errOut, "failed to flush logs: %v\n", err)
	}
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}

func (a *App) debug(msg string, fields ...zap.Field) {
	a.logger.ComponentDebug(logging.ComponentCLI, msg, fields...)
}

// stderr and stdout refuse fsync on most terminals
func isSyncNoise(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") || strings.Contains(msg, "inappropriate ioctl")
}
