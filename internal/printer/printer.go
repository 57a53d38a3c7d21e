// Package printer writes short, colored status lines for CLI commands.
package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hay-kot/criterio"
)

// ANSI color codes (Tokyo Night palette)
const (
	ColorReset     = "\033[0m"
	ColorRed       = "\033[38;2;247;118;142m" // #f7768e
	ColorGreen     = "\033[38;2;158;206;106m" // #9ece6a
	ColorYellow    = "\033[38;2;224;175;104m" // #e0af68
	ColorBlue      = "\033[38;2;122;162;247m" // #7aa2f7
	ColorGray      = "\033[38;2;86;95;137m"   // #565f89
	ColorBold      = "\033[1m"
	ColorUnderline = "\033[4m"
)

// Symbols
const (
	Check = "✔"
	Cross = "✘"
	Dot   = "•"
	Arrow = "→"
)

type ctxKey struct{}

// Printer handles formatted output with colors and styles.
type Printer struct {
	writer  io.Writer
	noColor bool
}

// New creates a new Printer that writes to the given writer.
func New(w io.Writer) *Printer {
	return &Printer{writer: w}
}

// Plain creates a Printer that never emits escape codes.
func Plain(w io.Writer) *Printer {
	return &Printer{writer: w, noColor: true}
}

// NewContext returns a context with the printer attached.
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx retrieves the printer from context, or creates a default one.
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stderr)
}

// FatalError prints a boxed error. It does not exit.
func (p *Printer) FatalError(err error) {
	if err == nil {
		return
	}

	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		p.printValidationErrors(err, fieldErrs)
		return
	}

	p.line(p.colorize(ColorRed, "╭ Error"))
	for _, l := range strings.Split(err.Error(), "\n") {
		p.line(p.colorize(ColorRed, "│") + " " + p.colorize(ColorGray, l))
	}
	p.line(p.colorize(ColorRed, "╵"))
}

func (p *Printer) printValidationErrors(wrappedErr error, fieldErrs criterio.FieldErrors) {
	errStr := wrappedErr.Error()

	// "load config: invalid config: <field errors>" keeps its prefix as context
	errContext := ""
	if idx := strings.Index(errStr, fieldErrs.Error()); idx > 0 {
		errContext = strings.TrimSuffix(errStr[:idx], ": ")
	}

	p.line(p.colorize(ColorRed, "╭ Validation Error"))
	if errContext != "" {
		p.line(p.colorize(ColorRed, "│") + " " + p.colorize(ColorGray, errContext))
		p.line(p.colorize(ColorRed, "│"))
	}

	for _, fe := range fieldErrs {
		l := p.colorize(ColorRed, "│") + " " + p.colorize(ColorRed, Cross) + " "
		if fe.Field != "" {
			l += p.colorize(ColorGray, fe.Field+": ")
		}
		p.line(l + fe.Err.Error())
	}

	p.line(p.colorize(ColorRed, "╵"))
}

// Errorf prints an error message in red.
func (p *Printer) Errorf(format string, args ...any) {
	p.line(p.colorize(ColorRed, Cross+" "+fmt.Sprintf(format, args...)))
}

// Successf prints a success message in green.
func (p *Printer) Successf(format string, args ...any) {
	p.line(p.colorize(ColorGreen, Check+" "+fmt.Sprintf(format, args...)))
}

// Infof prints an info message in gray.
func (p *Printer) Infof(format string, args ...any) {
	p.line(p.colorize(ColorGray, Dot+" "+fmt.Sprintf(format, args...)))
}

// Warnf prints a warning message in yellow.
func (p *Printer) Warnf(format string, args ...any) {
	p.line(p.colorize(ColorYellow, Dot+" "+fmt.Sprintf(format, args...)))
}

// Printf prints a plain message.
func (p *Printer) Printf(format string, args ...any) {
	p.line(fmt.Sprintf(format, args...))
}

// Transition prints a state change such as "launching → active".
func (p *Printer) Transition(from, to, detail string) {
	l := p.colorize(ColorGray, from) + " " + p.colorize(ColorBlue, Arrow) + " " + p.Bold(to)
	if detail != "" {
		l += "  " + p.colorize(ColorGray, detail)
	}
	p.line(l)
}

// KeyValue prints an indented label and value pair.
func (p *Printer) KeyValue(label, value string) {
	p.line("  " + p.colorize(ColorGray, fmt.Sprintf("%-10s", label)) + " " + value)
}

// CheckItem prints a success item with green checkmark
func (p *Printer) CheckItem(label, detail string) {
	p.printItem(ColorGreen, Check, label, detail)
}

// WarnItem prints a warning item with yellow dot
func (p *Printer) WarnItem(label, detail string) {
	p.printItem(ColorYellow, Dot, label, detail)
}

// FailItem prints a failure item with red cross
func (p *Printer) FailItem(label, detail string) {
	p.printItem(ColorRed, Cross, label, detail)
}

func (p *Printer) printItem(color, symbol, label, detail string) {
	l := "  " + p.colorize(color, symbol) + " " + label
	if detail != "" {
		l += ": " + p.colorize(ColorGray, detail)
	}
	p.line(l)
}

// Section prints a section header (bold + underlined).
func (p *Printer) Section(title string) {
	if p.noColor {
		p.line(title)
		return
	}
	p.line(ColorBold + ColorUnderline + title + ColorReset)
}

// Bold makes text bold.
func (p *Printer) Bold(text string) string {
	if p.noColor {
		return text
	}
	return ColorBold + text + ColorReset
}

func (p *Printer) colorize(color, text string) string {
	if p.noColor {
		return text
	}
	return color + text + ColorReset
}

func (p *Printer) line(s string) {
	_, _ = io.WriteString(p.writer, s+"\n")
}
