package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"github.com/DeBrosOfficial/chainfiles/pkg/notify"
	"github.com/DeBrosOfficial/chainfiles/pkg/wallet"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// keyManager is implemented by wallets that own their keys, like the keystore provider.
type keyManager interface {
	Accounts() []common.Address
	NewAccount(passphrase string) (common.Address, error)
	ImportKey(hexKey, passphrase string) (common.Address, error)
}

func (a *App) handleConnect(ctx context.Context, args []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	addr, err := a.connect(ctx)
	if err != nil {
		return fail("Connection failed", err)
	}
	balance, err := a.session.Balance(ctx)
	if err != nil {
		a.logger.ComponentWarn(logging.ComponentCLI, "Balance unavailable", zap.Error(err))
		balance = "?"
	}

	target := a.targetChain()
	a.notifier.Notify(notify.Success, fmt.Sprintf("Connected %s on %s", wallet.FormatAddress(addr), target.Name))
	fmt.Fprintf(a.out, "Account: %s\n", addr.Hex())
	fmt.Fprintf(a.out, "Network: %s (%s)\n", target.Name, target.ChainID)
	fmt.Fprintf(a.out, "Balance: %s %s\n", balance, target.Currency.Symbol)
	return nil
}

type statusReport struct {
	Network     string   `json:"network"`
	ChainID     uint64   `json:"chain_id"`
	Contract    string   `json:"contract"`
	RPC         string   `json:"rpc"`
	PinningMode string   `json:"pinning_mode"`
	PinningURL  string   `json:"pinning_url"`
	PinningOK   bool     `json:"pinning_ok"`
	Accounts    []string `json:"accounts"`
	Theme       string   `json:"theme"`
}

func (a *App) handleStatus(ctx context.Context, args []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	cfg := a.cfg
	r := statusReport{
		Network:     cfg.Network.Name,
		ChainID:     cfg.Network.ChainID,
		Contract:    cfg.Contract.Address,
		PinningMode: "proxy",
		PinningURL:  cfg.Pinning.ProxyURL,
		Theme:       string(a.theme()),
	}
	if len(cfg.Network.RPCURLs) > 0 {
		r.RPC = cfg.Network.RPCURLs[0]
	}
	if cfg.Pinning.DirectMode() {
		r.PinningMode = "direct"
		r.PinningURL = cfg.Pinning.APIURL
	}
	r.PinningOK = a.Blobs().TestConnection(ctx)

	if p, err := a.walletProvider(ctx); err != nil {
		a.logger.ComponentWarn(logging.ComponentCLI, "Wallet unavailable", zap.Error(err))
	} else if km, ok := p.(keyManager); ok {
		for _, addr := range km.Accounts() {
			r.Accounts = append(r.Accounts, addr.Hex())
		}
	}

	if a.format == "json" {
		return printJSON(a.out, r)
	}
	pinning := "unreachable"
	if r.PinningOK {
		pinning = "ok"
	}
	accounts := "none"
	if len(r.Accounts) > 0 {
		accounts = strings.Join(r.Accounts, ", ")
	}
	renderTable(a.out, []string{"Setting", "Value"}, [][]string{
		{"Network", fmt.Sprintf("%s (%d)", r.Network, r.ChainID)},
		{"RPC", r.RPC},
		{"Contract", r.Contract},
		{"Pinning", fmt.Sprintf("%s %s (%s)", r.PinningMode, r.PinningURL, pinning)},
		{"Accounts", accounts},
		{"Theme", r.Theme},
	})
	return nil
}

func (a *App) handleBalance(ctx context.Context, args []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	addr, err := a.connect(ctx)
	if err != nil {
		return fail("Connection failed", err)
	}
	balance, err := a.session.Balance(ctx)
	if err != nil {
		return fail("Failed to fetch balance", err)
	}
	if a.format == "json" {
		return printJSON(a.out, map[string]string{"account": addr.Hex(), "balance": balance, "symbol": a.cfg.Network.Currency.Symbol})
	}
	fmt.Fprintf(a.out, "%s %s\n", balance, a.cfg.Network.Currency.Symbol)
	return nil
}

func (a *App) handleAccount(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage("account")
	}
	p, err := a.walletProvider(ctx)
	if err != nil {
		return fail("Wallet unavailable", err)
	}
	km, ok := p.(keyManager)
	if !ok {
		return fail("Account management", errors.New("the wallet does not manage local keys"))
	}

	switch args[0] {
	case "list":
		accounts := km.Accounts()
		if a.format == "json" {
			out := make([]string, 0, len(accounts))
			for _, addr := range accounts {
				out = append(out, addr.Hex())
			}
			return printJSON(a.out, out)
		}
		if len(accounts) == 0 {
			fmt.Fprintln(a.out, "No accounts. Create one with: cf account new")
			return nil
		}
		for i, addr := range accounts {
			fmt.Fprintf(a.out, "%d  %s\n", i, addr.Hex())
		}
		return nil

	case "new":
		passphrase, err := a.newPassphrase()
		if err != nil {
			return fail("Account creation failed", err)
		}
		addr, err := km.NewAccount(passphrase)
		if err != nil {
			return fail("Account creation failed", err)
		}
		a.notifier.Notify(notify.Success, "Account created: "+addr.Hex())
		return nil

	case "import":
		if len(args) < 2 {
			return a.usage("account")
		}
		passphrase, err := a.newPassphrase()
		if err != nil {
			return fail("Import failed", err)
		}
		addr, err := km.ImportKey(strings.TrimPrefix(strings.TrimSpace(args[1]), "0x"), passphrase)
		if err != nil {
			return fail("Import failed", err)
		}
		a.notifier.Notify(notify.Success, "Account imported: "+addr.Hex())
		return nil
	}
	return a.usage("account")
}

func (a *App) newPassphrase() (string, error) {
	if v, ok := os.LookupEnv(PassphraseEnv); ok {
		if v == "" {
			return "", wallet.ErrUserRejected
		}
		return v, nil
	}
	return wallet.ReadNewPassphrase(a.in, a.errOut)
}

// handleWatch follows wallet events until interrupted. A network change tears the
// services down and connects again from scratch.
func (a *App) handleWatch(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		connectCtx, cancel := a.withTimeout(ctx)
		addr, err := a.connect(connectCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fail("Connection failed", err)
		}

		reload := make(chan struct{}, 1)
		a.session.SetHooks(wallet.Hooks{
			OnAccountChanged: func(account common.Address) {
				fmt.Fprintf(a.out, "Now using %s\n", account.Hex())
				a.refreshStats(ctx)
			},
			OnReload: func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			},
		})

		fmt.Fprintf(a.out, "Watching wallet %s on %s. Press Ctrl+C to stop.\n", wallet.FormatAddress(addr), a.cfg.Network.Name)
		a.refreshStats(ctx)

		runCtx, cancelRun := context.WithCancel(ctx)
		errCh := make(chan error, 1)
		go func(s *wallet.Session) { errCh <- s.Run(runCtx) }(a.session)

		select {
		case <-ctx.Done():
			cancelRun()
			<-errCh
			return nil
		case err := <-errCh:
			cancelRun()
			if ctx.Err() != nil || err == nil {
				return nil
			}
			return fail("Wallet watch failed", err)
		case <-reload:
			cancelRun()
			<-errCh
			fmt.Fprintln(a.out, "Network changed, reloading...")
			a.Reload()
		}
	}
}

// refreshStats reprints the stats after a wallet event. Failures only get logged so
// the watch keeps running.
func (a *App) refreshStats(ctx context.Context) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	if err := a.printStats(ctx, true); err != nil {
		a.logger.ComponentWarn(logging.ComponentCLI, "Failed to refresh stats", zap.Error(err))
	}
}
