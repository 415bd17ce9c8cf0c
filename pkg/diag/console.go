package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Console writes leveled, optionally colored notifications to a writer
type Console struct {
	mu        sync.Mutex
	level     Level
	useColors bool
	showTime  bool
	output    io.Writer
	indent    int
}

// NewConsole creates a console sink showing notifications at or above level
func NewConsole(w io.Writer, level Level) *Console {
	if w == nil {
		w = os.Stderr
	}
	return &Console{
		level:     level,
		useColors: shouldUseColors(),
		showTime:  level <= LevelDebug,
		output:    w,
	}
}

// SetColors forces colored output on or off
func (c *Console) SetColors(enabled bool) {
	c.useColors = enabled
}

// Notify implements Sink
func (c *Console) Notify(level Level, event string, keyvals ...any) {
	if level < c.level {
		return
	}
	msg := event
	if len(keyvals) > 0 {
		msg = event + " " + formatFields(keyvals)
	}
	c.writeMessage(level, msg)
}

// Section creates a prominent section header
func (c *Console) Section(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paint(color.New(color.FgCyan, color.Bold)).Fprintf(c.output, "%s\n", title)
}

// List outputs a bulleted list item
func (c *Console) List(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.output, "%s- %s\n", c.getIndent(), fmt.Sprintf(format, args...))
}

// Indent increases the indentation level
func (c *Console) Indent() {
	c.mu.Lock()
	c.indent++
	c.mu.Unlock()
}

// Unindent decreases the indentation level
func (c *Console) Unindent() {
	c.mu.Lock()
	if c.indent > 0 {
		c.indent--
	}
	c.mu.Unlock()
}

// Summary outputs a final summary; keys are printed in the given order
func (c *Console) Summary(title string, keys []string, stats map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paint(color.New(color.FgGreen)).Fprintf(c.output, "\n%s\n", title)
	for _, key := range keys {
		fmt.Fprintf(c.output, "   %s: %v\n", key, stats[key])
	}
}

func (c *Console) writeMessage(level Level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var output strings.Builder
	output.WriteString(c.getIndent())

	if c.showTime {
		output.WriteString(time.Now().Format("15:04:05 "))
	}

	output.WriteString(c.paint(levelColor(level)).Sprintf("[%s]", level))
	output.WriteByte(' ')
	output.WriteString(message)
	output.WriteByte('\n')

	fmt.Fprint(c.output, output.String())
}

func (c *Console) paint(col *color.Color) *color.Color {
	if c.useColors {
		col.EnableColor()
	} else {
		col.DisableColor()
	}
	return col
}

func (c *Console) getIndent() string {
	return strings.Repeat("  ", c.indent)
}

func levelColor(level Level) *color.Color {
	switch level {
	case LevelError:
		return color.New(color.FgRed)
	case LevelWarn:
		return color.New(color.FgYellow)
	case LevelInfo:
		return color.New(color.FgBlue)
	default:
		return color.New(color.FgMagenta)
	}
}

// shouldUseColors determines if colors should be used
func shouldUseColors() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	term := os.Getenv("TERM")
	return term != "" && term != "dumb"
}
