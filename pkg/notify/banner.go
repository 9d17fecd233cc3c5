package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Theme selects the banner palette
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type palette struct {
	info, success, warning, err lipgloss.Color
}

var palettes = map[Theme]palette{
	ThemeDark: {
		info:    lipgloss.Color("#5FAFFF"),
		success: lipgloss.Color("#00D4AA"),
		warning: lipgloss.Color("#FFB86C"),
		err:     lipgloss.Color("#FF6B6B"),
	},
	ThemeLight: {
		info:    lipgloss.Color("#005FAF"),
		success: lipgloss.Color("#007A5E"),
		warning: lipgloss.Color("#AF5F00"),
		err:     lipgloss.Color("#C0392B"),
	},
}

var icons = map[Level]string{
	Info:    "i",
	Success: "✓",
	Warning: "!",
	Error:   "✗",
}

// Banner renders notifications as bordered one-line boxes.
type Banner struct {
	mu    sync.Mutex
	out   io.Writer
	theme Theme
	plain bool
}

// NewBanner creates a banner notifier writing to out.
func NewBanner(out io.Writer, theme Theme) *Banner {
	if _, ok := palettes[theme]; !ok {
		theme = ThemeDark
	}
	return &Banner{out: out, theme: theme}
}

// Plain disables styling, for output that is not a terminal.
func (b *Banner) Plain() *Banner {
	b.plain = true
	return b
}

// SetTheme switches the palette used for later notifications.
func (b *Banner) SetTheme(theme Theme) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := palettes[theme]; ok {
		b.theme = theme
	}
}

func (b *Banner) Notify(level Level, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintln(b.out, b.render(level, message))
}

func (b *Banner) render(level Level, message string) string {
	text := fmt.Sprintf("%s %s", icons[level], message)
	if b.plain {
		return text
	}

	p := palettes[b.theme]
	color := p.info
	switch level {
	case Success:
		color = p.success
	case Warning:
		color = p.warning
	case Error:
		color = p.err
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Foreground(color).
		Bold(level == Error).
		Padding(0, 1).
		Render(text)
}
