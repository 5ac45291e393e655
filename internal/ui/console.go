package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

type ConsoleStyle int

const (
	StyleNormal ConsoleStyle = iota
	StyleError
	StyleWarning
	StyleSuccess
	StyleInfo
	StyleStage
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiCyan   = "\033[36m"
)

// styleSpec says how a style is rendered and which stream receives it.
type styleSpec struct {
	sgr    string
	label  string
	stderr bool
}

var styles = map[ConsoleStyle]styleSpec{
	StyleNormal:  {},
	StyleError:   {sgr: ansiBold + ansiRed, label: "Error: ", stderr: true},
	StyleWarning: {sgr: ansiYellow, label: "Warning: ", stderr: true},
	StyleSuccess: {sgr: ansiGreen},
	StyleInfo:    {sgr: ansiBlue},
	StyleStage:   {sgr: ansiBold + ansiCyan},
}

// Console prints operator-facing messages. Errors and warnings go to errOut,
// everything else to out.
type Console struct {
	color  bool
	out    io.Writer
	errOut io.Writer
}

func NewConsole() *Console {
	return &Console{
		color:  isCharDevice(os.Stderr),
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// NewPlainConsole writes uncoloured output to the given writers.
func NewPlainConsole(out, errOut io.Writer) *Console {
	return &Console{out: out, errOut: errOut}
}

func isCharDevice(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// render returns the line as it will be written, label and colour included.
func (c *Console) render(style ConsoleStyle, message string) string {
	spec := styles[style]
	line := spec.label + message
	if c.color && spec.sgr != "" {
		line = spec.sgr + line + ansiReset
	}
	return line
}

func (c *Console) emit(style ConsoleStyle, message string) {
	w := c.out
	if styles[style].stderr {
		w = c.errOut
	}
	fmt.Fprintln(w, c.render(style, message))
}

func (c *Console) PrintError(message string)   { c.emit(StyleError, message) }
func (c *Console) PrintWarning(message string) { c.emit(StyleWarning, message) }
func (c *Console) PrintSuccess(message string) { c.emit(StyleSuccess, message) }
func (c *Console) PrintInfo(message string)    { c.emit(StyleInfo, message) }
func (c *Console) PrintStage(message string)   { c.emit(StyleStage, message) }

// Println writes message unstyled, for output meant to be piped or eval'd.
func (c *Console) Println(message string) { c.emit(StyleNormal, message) }

// FormatErrorMessage lays out an error as its context followed by labelled
// cause and suggestion blocks. Continuation lines of a block are indented
// under its label so multi-line remediation text stays readable.
func (c *Console) FormatErrorMessage(context, cause, suggestion string) string {
	var b strings.Builder
	add := func(label, text string) {
		if text == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		pad := "\n" + strings.Repeat(" ", len(label))
		b.WriteString(label)
		b.WriteString(strings.ReplaceAll(text, "\n", pad))
	}
	add("", context)
	add("Cause: ", cause)
	add("Suggestion: ", suggestion)
	return b.String()
}
