// Package diag defines the findings produced while auditing a build and a
// collector that accumulates them. Fatal problems are returned as Go errors
// by the stage that hits them; everything recoverable ends up here.
package diag

import (
	"fmt"
	"sync"
)

// Severity ranks a diagnostic. Only Warning and Error influence the verdict.
type Severity int

const (
	SeverityInfo    Severity = iota // printed, never changes the verdict
	SeverityWarning                 // selects exit code 2 when no errors occurred
	SeverityError                   // selects exit code 1
)

// String returns the tag printed in front of a diagnostic line.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "Info"
	case SeverityWarning:
		return "Warning"
	case SeverityError:
		return "Error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// MarshalText encodes the severity by its tag name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Code classifies a diagnostic for programmatic handling.
type Code string

// Diagnostic codes emitted by the audit stages.
const (
	CodeUnneededDependency Code = "unneeded-dependency"
	CodeAllowedImport      Code = "allowed-import"
	CodeIgnoredSymbols     Code = "ignored-symbols"
	CodeDuplicateObject    Code = "duplicate-object"
	CodeUnreadableObject   Code = "unreadable-object"
	CodeUnresolvedImport   Code = "unresolved-import"
	CodeMissingFromSpec    Code = "missing-from-spec"
	CodeMissingFromBuild   Code = "missing-from-build"
	CodeABIHazard          Code = "abi-hazard"
)

// Diagnostic is a single finding. Item, File, Symbol and Provider are
// optional context; Message is the human-readable text without the
// severity tag.
type Diagnostic struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Code     Code     `json:"code" yaml:"code"`
	Item     string   `json:"item,omitempty" yaml:"item,omitempty"`
	File     string   `json:"file,omitempty" yaml:"file,omitempty"`
	Symbol   string   `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Provider string   `json:"provider,omitempty" yaml:"provider,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

// String formats the diagnostic the way it is printed.
func (d Diagnostic) String() string {
	return d.Severity.String() + ": " + d.Message
}

// Collector accumulates diagnostics in emission order. It is safe for
// concurrent use. A nil *Collector discards everything.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
	sink  func(Diagnostic)
}

// NewCollector returns an empty collector. If sink is non-nil it is called,
// under the collector lock, for every diagnostic as it is added.
func NewCollector(sink func(Diagnostic)) *Collector {
	return &Collector{sink: sink}
}

// Add records d.
func (c *Collector) Add(d Diagnostic) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, d)
	if c.sink != nil {
		c.sink(d)
	}
}

// Infof records an informational diagnostic.
func (c *Collector) Infof(code Code, format string, args ...any) {
	c.Add(Diagnostic{Severity: SeverityInfo, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Warnf records a warning.
func (c *Collector) Warnf(code Code, format string, args ...any) {
	c.Add(Diagnostic{Severity: SeverityWarning, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Errorf records an error.
func (c *Collector) Errorf(code Code, format string, args ...any) {
	c.Add(Diagnostic{Severity: SeverityError, Code: code, Message: fmt.Sprintf(format, args...)})
}

// All returns a copy of every recorded diagnostic in emission order.
func (c *Collector) All() []Diagnostic {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// Count returns how many diagnostics of severity s were recorded.
func (c *Collector) Count(s Severity) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.diags {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// ByCode returns the recorded diagnostics with the given code.
func (c *Collector) ByCode(code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.All() {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Tally counts diagnostics per severity.
type Tally struct {
	Infos    int `json:"infos" yaml:"infos"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Errors   int `json:"errors" yaml:"errors"`
}

// Tally returns per-severity counts.
func (c *Collector) Tally() Tally {
	return Tally{
		Infos:    c.Count(SeverityInfo),
		Warnings: c.Count(SeverityWarning),
		Errors:   c.Count(SeverityError),
	}
}
