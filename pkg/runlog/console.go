package runlog

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Console writes styled lines to a terminal or file.
type Console struct {
	out   io.Writer
	theme Theme

	mu      sync.Mutex // guards out
	section sync.Mutex
}

// ConsoleOption configures a Console.
type ConsoleOption func(*consoleConfig)

type consoleConfig struct {
	theme   string
	noColor bool
}

// WithTheme selects a theme by name.
func WithTheme(name string) ConsoleOption {
	return func(c *consoleConfig) { c.theme = name }
}

// WithNoColor forces the mono theme.
func WithNoColor(noColor bool) ConsoleOption {
	return func(c *consoleConfig) { c.noColor = noColor }
}

// NewConsole returns a Console writing to w. Color support is detected from
// w by lipgloss, so output redirected to a file carries no escape codes.
func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	cfg := consoleConfig{theme: "default"}
	for _, opt := range opts {
		opt(&cfg)
	}
	r := lipgloss.NewRenderer(w)
	theme := ThemeByName(cfg.theme, r)
	if cfg.noColor {
		theme = MonoTheme(r)
	}
	return &Console{out: w, theme: theme}
}

// Theme returns the active theme.
func (c *Console) Theme() Theme { return c.theme }

func (c *Console) LogMessage(_ StackFrameInfo, msg string) { c.write(c.theme.Message, msg) }

func (c *Console) LogImportantMessage(_ StackFrameInfo, msg string) {
	c.write(c.theme.Important, msg)
}

func (c *Console) LogWarning(_ StackFrameInfo, msg string) { c.write(c.theme.Warning, msg) }

func (c *Console) LogError(_ StackFrameInfo, msg string) { c.write(c.theme.Error, msg) }

func (c *Console) LogRaw(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, msg+"\n")
}

// Locker returns the lock that keeps multi-line emissions together.
func (c *Console) Locker() sync.Locker { return &c.section }

func (c *Console) write(style lipgloss.Style, msg string) {
	var sb strings.Builder
	if c.theme.Plain {
		sb.WriteString(msg)
	} else {
		// Render per line: lipgloss pads multi-line blocks to a common width.
		for i, line := range strings.Split(msg, "\n") {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(style.Render(line))
		}
	}
	sb.WriteByte('\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, sb.String())
}
