package report

import (
	"fmt"

	"github.com/papapumpkin/depcheck/internal/diag"
)

// Verdict is the overall outcome of an audit.
type Verdict int

const (
	VerdictOK       Verdict = iota // no warnings, no errors
	VerdictWarnings                // warnings only
	VerdictErrors                  // at least one error
)

// Exit codes of the command line tool.
const (
	ExitOK       = 0
	ExitErrors   = 1
	ExitWarnings = 2
)

// VerdictOf derives the verdict from diagnostic counts. Infos never count.
func VerdictOf(t diag.Tally) Verdict {
	switch {
	case t.Errors > 0:
		return VerdictErrors
	case t.Warnings > 0:
		return VerdictWarnings
	default:
		return VerdictOK
	}
}

// ExitCode maps the verdict to the process exit code.
func (v Verdict) ExitCode() int {
	switch v {
	case VerdictErrors:
		return ExitErrors
	case VerdictWarnings:
		return ExitWarnings
	default:
		return ExitOK
	}
}

// Line returns the final line printed for the verdict.
func (v Verdict) Line() string {
	switch v {
	case VerdictErrors:
		return "Error: There were errors, please fix them and re-run."
	case VerdictWarnings:
		return "Warning: Dependencies match, but there were warnings."
	default:
		return "OK: Specified and actual dependencies match."
	}
}

// String returns the lowercase verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "ok"
	case VerdictWarnings:
		return "warnings"
	case VerdictErrors:
		return "errors"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// MarshalText encodes the verdict by name.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
