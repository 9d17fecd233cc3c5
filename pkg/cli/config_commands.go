package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/DeBrosOfficial/chainfiles/pkg/config"
	"github.com/DeBrosOfficial/chainfiles/pkg/notify"
	"github.com/DeBrosOfficial/chainfiles/pkg/prefs"
	"gopkg.in/yaml.v3"
)

func (a *App) theme() notify.Theme {
	return notify.Theme(prefs.Load(a.dir).Theme)
}

func (a *App) handleTheme(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, a.theme())
		return nil
	}

	var theme string
	var err error
	switch args[0] {
	case "toggle":
		theme, err = prefs.ToggleTheme(a.dir)
	case prefs.ThemeLight, prefs.ThemeDark:
		theme = args[0]
		err = prefs.SetTheme(a.dir, theme)
	default:
		return a.usage("theme")
	}
	if err != nil {
		return fail("Failed to save preferences", err)
	}
	a.banner.SetTheme(notify.Theme(theme))
	a.notifier.Notify(notify.Success, "Theme set to "+theme)
	return nil
}

func (a *App) handleConfig(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage("config")
	}
	fs := a.flags("config " + args[0])
	force := fs.Bool("force", false, "Overwrite an existing config file")
	if err := fs.Parse(args[1:]); err != nil {
		return ErrUsage
	}

	switch args[0] {
	case "init":
		if _, err := config.EnsureConfigDir(); err != nil {
			return fail("Config init failed", err)
		}
		path, err := config.DefaultPath("config.yaml")
		if err != nil {
			return fail("Config init failed", err)
		}
		if _, err := os.Stat(path); err == nil && !*force {
			return fail("Config init failed", fmt.Errorf("%s already exists (use --force to overwrite)", path))
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fail("Config init failed", err)
		}
		if err := config.Save(path, config.Default()); err != nil {
			return fail("Config init failed", err)
		}
		a.notifier.Notify(notify.Success, "Wrote "+path)
		return nil

	case "show":
		shown := *a.cfg
		if shown.Pinning.JWT != "" {
			shown.Pinning.JWT = "********"
		}
		if a.format == "json" {
			return printJSON(a.out, shown)
		}
		out, err := yaml.Marshal(&shown)
		if err != nil {
			return fail("Failed to encode config", err)
		}
		_, err = a.out.Write(out)
		return err

	case "validate":
		// NewApp already refused an invalid config, so reaching here means it passed
		a.notifier.Notify(notify.Success, "Configuration is valid")
		return nil
	}
	return a.usage("config")
}
