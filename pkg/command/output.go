package command

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Output is the side-effect sink commands and interceptors report to
type Output interface {
	Write(text string)
	Writeln(text string)
	Error(text string)
	Info(text string)
	Warning(text string)
	IsVerbose() bool
}

// Console writes plain text to stdout and leveled messages in color.
// Errors go to stderr.
type Console struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool
	mu      sync.Mutex
}

// NewConsole creates a console output on stdout/stderr
func NewConsole(verbose bool) *Console {
	return &Console{
		out:     os.Stdout,
		errOut:  os.Stderr,
		verbose: verbose,
	}
}

// NewConsoleWriter creates a console output on the given writers
func NewConsoleWriter(out, errOut io.Writer, verbose bool) *Console {
	return &Console{out: out, errOut: errOut, verbose: verbose}
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
)

func (c *Console) Write(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, text)
}

func (c *Console) Writeln(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

func (c *Console) Error(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	errorColor.Fprintln(c.errOut, "Error: "+text)
}

func (c *Console) Info(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	infoColor.Fprintln(c.out, text)
}

func (c *Console) Warning(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	warningColor.Fprintln(c.out, "Warning: "+text)
}

func (c *Console) IsVerbose() bool {
	return c.verbose
}

// Message is one line captured by a Buffer
type Message struct {
	Level string // "", "error", "info" or "warning"
	Text  string
}

// Buffer records everything written to it. Used by tests and by callers that
// render output later.
type Buffer struct {
	Verbose bool

	mu       sync.Mutex
	text     strings.Builder
	messages []Message
}

func (b *Buffer) Write(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text.WriteString(text)
}

func (b *Buffer) Writeln(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text.WriteString(text + "\n")
	b.messages = append(b.messages, Message{Text: text})
}

func (b *Buffer) Error(text string)   { b.record("error", text) }
func (b *Buffer) Info(text string)    { b.record("info", text) }
func (b *Buffer) Warning(text string) { b.record("warning", text) }

func (b *Buffer) IsVerbose() bool {
	return b.Verbose
}

func (b *Buffer) record(level, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text.WriteString(text + "\n")
	b.messages = append(b.messages, Message{Level: level, Text: text})
}

// String returns all text written so far
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text.String()
}

// Messages returns the recorded lines with the given level
func (b *Buffer) Messages(level string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var lines []string
	for _, m := range b.messages {
		if m.Level == level {
			lines = append(lines, m.Text)
		}
	}
	return lines
}
