// Package prefs persists the user's display preferences.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const preferencesFile = "preferences.yaml"

// Theme values
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Preferences is the persisted client state
type Preferences struct {
	Theme string `yaml:"theme"`
}

// Load reads preferences from dir. A missing or unreadable file gives the defaults.
func Load(dir string) *Preferences {
	p := &Preferences{Theme: ThemeLight}

	data, err := os.ReadFile(filepath.Join(dir, preferencesFile))
	if err != nil {
		return p
	}
	if err := yaml.Unmarshal(data, p); err != nil || !validTheme(p.Theme) {
		p.Theme = ThemeLight
	}
	return p
}

// Save writes preferences to dir, creating it if needed.
func Save(dir string, p *Preferences) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, preferencesFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}

// SetTheme persists theme.
func SetTheme(dir, theme string) error {
	if !validTheme(theme) {
		return fmt.Errorf("unknown theme %q (use %s or %s)", theme, ThemeLight, ThemeDark)
	}
	p := Load(dir)
	p.Theme = theme
	return Save(dir, p)
}

// ToggleTheme flips between light and dark and returns the new theme.
func ToggleTheme(dir string) (string, error) {
	p := Load(dir)
	if p.Theme == ThemeDark {
		p.Theme = ThemeLight
	} else {
		p.Theme = ThemeDark
	}
	if err := Save(dir, p); err != nil {
		return "", err
	}
	return p.Theme, nil
}

func validTheme(t string) bool {
	return t == ThemeLight || t == ThemeDark
}
