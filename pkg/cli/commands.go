// Package cli implements the cf command line client: wallet connection, uploads,
// listings, downloads and share links against the file registry.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	apperrors "github.com/DeBrosOfficial/chainfiles/pkg/errors"
	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"github.com/DeBrosOfficial/chainfiles/pkg/notify"
	"go.uber.org/zap"
)

// ErrUsage marks a malformed command line. The usage text has already been printed.
var ErrUsage = errors.New("usage error")

// BuildInfo is the version metadata injected at link time
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type command struct {
	usage string
	help  string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"connect":  {"connect", "Unlock the wallet and switch it to the registry network", (*App).handleConnect},
		"status":   {"status", "Show network, contract, wallet and pinning status", (*App).handleStatus},
		"balance":  {"balance", "Show the connected account balance", (*App).handleBalance},
		"account":  {"account <list|new|import>", "Manage keystore accounts", (*App).handleAccount},
		"upload":   {"upload <file>", "Store a file on-chain or on IPFS and register it", (*App).handleUpload},
		"estimate": {"estimate <file>", "Estimate the gas cost of uploading a file", (*App).handleEstimate},
		"list":     {"list [--owner <address>]", "List your files, or the files of another address", (*App).handleList},
		"get":      {"get <id> [--retrieve]", "Show a file record", (*App).handleGet},
		"download": {"download <id> [dest]", "Download a file", (*App).handleDownload},
		"share":    {"share <id> [--png <path>]", "Print a share link and its QR code", (*App).handleShare},
		"open":     {"open <link>", "Show the file behind a share link", (*App).handleOpen},
		"stats":    {"stats [--mine]", "Show registry statistics", (*App).handleStats},
		"watch":    {"watch", "Follow wallet account and network changes", (*App).handleWatch},
		"theme":    {"theme [toggle|light|dark]", "Show or change the banner theme", (*App).handleTheme},
		"config":   {"config <init|show|validate>", "Manage ~/.chainfiles/config.yaml", (*App).handleConfig},
	}
}

var commandOrder = []string{
	"connect", "status", "balance", "account",
	"upload", "estimate", "list", "get", "download",
	"share", "open", "stats", "watch", "theme", "config",
}

// Run dispatches one command. Failures are shown as error banners and logged;
// the returned error only decides the exit status.
func (a *App) Run(ctx context.Context, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(a.errOut, "Unknown command: %s\n", name)
		ShowHelp(a.errOut)
		return ErrUsage
	}

	a.debug("Running command", zap.String("command", name), zap.Strings("args", args))
	err := cmd.run(a, ctx, args)
	if err == nil || errors.Is(err, ErrUsage) {
		return err
	}

	a.logger.ComponentError(logging.ComponentCLI, "Command failed", zap.String("command", name), zap.Error(err))
	if stack := apperrors.StackTraceOf(err); stack != "" {
		a.debug("Error origin", zap.String("stack", stack))
	}
	var fe *failure
	if errors.As(err, &fe) {
		if !fe.shown {
			a.banner.Notify(notify.Error, userMessage(fe.action, fe.err))
		}
	} else {
		a.banner.Notify(notify.Error, userMessage("", err))
	}
	return err
}

// failure attaches the user-facing action to an error
type failure struct {
	action string
	err    error
	shown  bool
}

func (f *failure) Error() string {
	if f.shown {
		return f.err.Error()
	}
	return f.action + ": " + f.err.Error()
}
func (f *failure) Unwrap() error { return f.err }

func fail(action string, err error) error {
	if err == nil {
		return nil
	}
	return &failure{action: action, err: err}
}

// warn shows a warning banner for err and keeps Run from repeating it as an error.
func (a *App) warn(message string, err error) error {
	a.banner.Notify(notify.Warning, message)
	return &failure{action: message, err: err, shown: true}
}

func (a *App) usage(name string) error {
	fmt.Fprintf(a.errOut, "Usage: cf %s\n", commands[name].usage)
	return ErrUsage
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("cf "+name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// PrintVersion writes the version line
func PrintVersion(w io.Writer, b BuildInfo) {
	fmt.Fprintf(w, "cf %s", b.Version)
	if b.Commit != "" {
		fmt.Fprintf(w, " (commit %s)", b.Commit)
	}
	if b.Date != "" {
		fmt.Fprintf(w, " built %s", b.Date)
	}
	fmt.Fprintln(w)
}

// ShowHelp prints the command list
func ShowHelp(w io.Writer) {
	fmt.Fprintf(w, "chainfiles - store files on Ethereum and IPFS\n\n")
	fmt.Fprintf(w, "Usage: cf <command> [args...]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, name := range commandOrder {
		c := commands[name]
		fmt.Fprintf(w, "  %-30s - %s\n", c.usage, c.help)
	}
	fmt.Fprintf(w, "  %-30s - %s\n\n", "version", "Show version")

	fmt.Fprintf(w, "Global Flags:\n")
	fmt.Fprintf(w, "  -c, --config <path>            - Config file (default: ~/.chainfiles/config.yaml)\n")
	fmt.Fprintf(w, "  -f, --format <format>          - Output format: table, json (default: table)\n")
	fmt.Fprintf(w, "  -t, --timeout <duration>       - Operation timeout (default: 5m)\n\n")

	fmt.Fprintf(w, "Examples:\n")
	fmt.Fprintf(w, "  cf account import <hex-key>\n")
	fmt.Fprintf(w, "  cf upload ./report.pdf\n")
	fmt.Fprintf(w, "  cf share 42\n")
}
