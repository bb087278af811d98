package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Prefixes written before non-info messages.
const (
	verbosePrefix = "[VERBOSE] "
	warningPrefix = "[WARNING] "
	errorPrefix   = "[ERROR] "
)

var (
	colorMuted   = lipgloss.Color("240")
	colorWarning = lipgloss.Color("214")
	colorError   = lipgloss.Color("196")
)

// ConsoleLogger writes log messages to stderr.
// Safe for concurrent use by multiple goroutines.
type ConsoleLogger struct {
	verbose bool
	out     io.Writer
	mu      sync.Mutex

	verboseStyle lipgloss.Style
	warnStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	colored      bool
}

// NewConsoleLogger creates a new ConsoleLogger writing to stderr.
// If verbose is false, Verbose() calls are no-ops.
// Prefixes are colored when stderr is a terminal and NO_COLOR is unset.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	l := NewWriterLogger(os.Stderr, verbose)
	if useColor(os.Stderr) {
		r := lipgloss.NewRenderer(os.Stderr)
		l.verboseStyle = r.NewStyle().Foreground(colorMuted)
		l.warnStyle = r.NewStyle().Foreground(colorWarning).Bold(true)
		l.errorStyle = r.NewStyle().Foreground(colorError).Bold(true)
		l.colored = true
	}
	return l
}

// NewWriterLogger creates a ConsoleLogger writing uncolored output to w.
func NewWriterLogger(w io.Writer, verbose bool) *ConsoleLogger {
	return &ConsoleLogger{
		verbose: verbose,
		out:     w,
	}
}

func useColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func (l *ConsoleLogger) write(prefix string, style lipgloss.Style, format string, args []interface{}) {
	if l.colored && prefix != "" {
		prefix = style.Render(prefix)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(args) > 0 {
		fmt.Fprintf(l.out, prefix+format+"\n", args...)
	} else {
		fmt.Fprint(l.out, prefix+format+"\n")
	}
}

// Verbose logs detailed diagnostic information if verbose mode is enabled.
func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.write(verbosePrefix, l.verboseStyle, format, args)
}

// Info logs informational messages about normal operations.
func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.write("", lipgloss.Style{}, format, args)
}

// Warn logs conditions that do not stop the run, such as dropped relations.
func (l *ConsoleLogger) Warn(format string, args ...interface{}) {
	l.write(warningPrefix, l.warnStyle, format, args)
}

// Error logs error messages.
func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.write(errorPrefix, l.errorStyle, format, args)
}
