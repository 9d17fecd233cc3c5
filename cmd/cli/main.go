package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/DeBrosOfficial/chainfiles/pkg/cli"
)

// version metadata populated via -ldflags at build time
var (
	version = "dev"
	commit  = ""
	date    = ""
)

type globalFlags struct {
	config  string
	format  string
	timeout time.Duration
	plain   bool
}

func main() {
	if len(os.Args) < 2 {
		cli.ShowHelp(os.Stdout)
		return
	}

	command := os.Args[1]
	flags, args := parseGlobalFlags(os.Args[2:])

	switch command {
	case "version":
		cli.PrintVersion(os.Stdout, cli.BuildInfo{Version: version, Commit: commit, Date: date})
		return
	case "help", "--help", "-h":
		cli.ShowHelp(os.Stdout)
		return
	}

	app, err := cli.NewApp(cli.Options{
		ConfigPath: flags.config,
		Format:     flags.format,
		Timeout:    flags.timeout,
		Plain:      flags.plain,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	err = app.Run(context.Background(), command, args)
	app.Close()
	switch {
	case err == nil:
	case errors.Is(err, cli.ErrUsage):
		os.Exit(2)
	default:
		os.Exit(1)
	}
}

// parseGlobalFlags pulls the global flags out of args and returns the rest for the command.
func parseGlobalFlags(args []string) (globalFlags, []string) {
	g := globalFlags{
		config: os.Getenv("CHAINFILES_CONFIG"),
		format: "table",
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		g.plain = true
	}

	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		hasValue := i+1 < len(args)
		switch arg {
		case "-c", "--config":
			if hasValue {
				g.config = args[i+1]
				i++
			}
		case "-f", "--format":
			if hasValue {
				g.format = args[i+1]
				i++
			}
		case "-t", "--timeout":
			if hasValue {
				if d, err := time.ParseDuration(args[i+1]); err == nil {
					g.timeout = d
				}
				i++
			}
		case "--plain":
			g.plain = true
		default:
			rest = append(rest, arg)
		}
	}
	return g, rest
}
