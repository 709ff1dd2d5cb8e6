package report

import (
	"fmt"
	"io"

	"github.com/mattn/go-isatty"

	"github.com/papapumpkin/depcheck/internal/ansi"
	"github.com/papapumpkin/depcheck/internal/diag"
)

// ColorMode selects when the printer emits ANSI colors.
type ColorMode string

// Recognized color modes.
const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a --color value. Empty means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(s); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("invalid color mode %q (want auto, always, or never)", s)
	}
}

// Printer writes diagnostics and the verdict. Infos and the verdict line go
// to Out, warnings and errors to Err.
type Printer struct {
	out, err           io.Writer
	outColor, errColor bool
}

// NewPrinter returns a printer. In auto mode each stream is colored only
// when it is a terminal.
func NewPrinter(out, errw io.Writer, mode ColorMode) *Printer {
	p := &Printer{out: out, err: errw}
	switch mode {
	case ColorAlways:
		p.outColor, p.errColor = true, true
	case ColorNever:
	default:
		p.outColor, p.errColor = isTerminal(out), isTerminal(errw)
	}
	return p
}

// isTerminal reports whether w is a file attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Diagnostic prints one finding prefixed with its severity tag.
func (p *Printer) Diagnostic(d diag.Diagnostic) {
	switch d.Severity {
	case diag.SeverityInfo:
		fmt.Fprintln(p.out, p.tag(p.outColor, ansi.Dim, "Info")+d.Message)
	case diag.SeverityWarning:
		fmt.Fprintln(p.err, p.tag(p.errColor, ansi.Yellow, "Warning")+d.Message)
	default:
		fmt.Fprintln(p.err, p.tag(p.errColor, ansi.Red, "Error")+d.Message)
	}
}

// Verdict prints the final verdict line.
func (p *Printer) Verdict(v Verdict) {
	line := v.Line()
	if p.outColor {
		color := ansi.Green
		switch v {
		case VerdictWarnings:
			color = ansi.Yellow
		case VerdictErrors:
			color = ansi.Red
		}
		line = ansi.Wrap(line, color, ansi.Bold)
	}
	fmt.Fprintln(p.out, line)
}

// Fatal prints an error that aborted the run.
func (p *Printer) Fatal(err error) {
	fmt.Fprintln(p.err, p.tag(p.errColor, ansi.Red, "Error")+err.Error())
}

// Infof prints a free-form status line to Out.
func (p *Printer) Infof(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if p.outColor {
		line = ansi.Wrap(line, ansi.Cyan)
	}
	fmt.Fprintln(p.out, line)
}

func (p *Printer) tag(color bool, code, name string) string {
	if !color {
		return name + ": "
	}
	return ansi.Wrap(name+":", code, ansi.Bold) + " "
}
