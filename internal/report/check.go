// Package report runs the whole-build consistency checks that follow symbol
// resolution, derives the verdict and exit code, and renders findings for
// humans (Printer) and machines (WriteYAML).
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/papapumpkin/depcheck/internal/depspec"
	"github.com/papapumpkin/depcheck/internal/diag"
	"github.com/papapumpkin/depcheck/internal/symtab"
)

// Input is what every check inspects.
type Input struct {
	Registry *depspec.Registry
	Table    *symtab.Table
}

// Check is a single named check in the report chain. Fn records its
// findings on diags.
type Check struct {
	Name string
	Fn   func(in Input, diags *diag.Collector)
}

// Chain runs checks sequentially. Unlike a gate, it never stops early: every
// check runs and all findings accumulate.
type Chain struct {
	Checks []Check
}

// Result contains the outcome of a chain run.
type Result struct {
	Checks []CheckResult
}

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Name     string        `yaml:"name"`
	Findings int           `yaml:"findings"` // diagnostics the check emitted
	Elapsed  time.Duration `yaml:"elapsed"`
}

// Findings returns the total number of diagnostics emitted by all checks.
func (r *Result) Findings() int {
	n := 0
	for _, c := range r.Checks {
		n += c.Findings
	}
	return n
}

// Run executes each check in sequence. A non-nil error is only returned when
// ctx is cancelled.
func (c *Chain) Run(ctx context.Context, in Input, diags *diag.Collector) (*Result, error) {
	result := &Result{}
	for _, check := range c.Checks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("report chain cancelled: %w", err)
		}

		before := len(diags.All())
		start := time.Now()
		check.Fn(in, diags)
		result.Checks = append(result.Checks, CheckResult{
			Name:     check.Name,
			Findings: len(diags.All()) - before,
			Elapsed:  time.Since(start),
		})
	}
	return result, nil
}

// DefaultChain returns the standard post-resolution chain: file-set
// consistency, ABI hazards, and the ignored-symbols summary.
func DefaultChain() *Chain {
	return &Chain{Checks: []Check{
		{Name: "file-set", Fn: FileSetCheck},
		{Name: "abi-hazard", Fn: HazardCheck},
		{Name: "ignored-symbols", Fn: IgnoredSymbolsCheck},
	}}
}

// FileSetCheck compares the loaded object files with the declared ones.
// Every loaded file missing from the specification and every declared file
// missing from the build is one error.
func FileSetCheck(in Input, diags *diag.Collector) {
	declared := symtab.NewSet(in.Registry.Files()...)
	loaded := symtab.NewSet(in.Table.IDs()...)

	for _, id := range loaded.Sorted() {
		if declared.Has(id) {
			continue
		}
		diags.Add(diag.Diagnostic{
			Severity: diag.SeverityError,
			Code:     diag.CodeMissingFromSpec,
			File:     id,
			Message:  fmt.Sprintf("%s is in the build but not in the dependency specification", id),
		})
	}
	for _, id := range declared.Sorted() {
		if loaded.Has(id) {
			continue
		}
		diags.Add(diag.Diagnostic{
			Severity: diag.SeverityError,
			Code:     diag.CodeMissingFromBuild,
			Item:     in.Registry.Owner(id),
			File:     id,
			Message:  fmt.Sprintf("%s is in the dependency specification but not in the build", id),
		})
	}
}

// HazardCheck reports every class that has a vtable and also a weakly
// defined destructor. Such a class may get its vtable emitted in more than
// one library.
func HazardCheck(in Input, diags *diag.Collector) {
	hazards := in.Table.VirtualClasses.Intersect(in.Table.WeakDestructors)
	for _, class := range hazards.Sorted() {
		diags.Add(diag.Diagnostic{
			Severity: diag.SeverityError,
			Code:     diag.CodeABIHazard,
			Symbol:   class,
			Message: fmt.Sprintf("%s has a vtable and an implicit or inline destructor; "+
				"declare the destructor out of line so the vtable has a single home", class),
		})
	}
}

// IgnoredSymbolsCheck emits one info listing the compiler-runtime symbols
// that were excluded from resolution.
func IgnoredSymbolsCheck(in Input, diags *diag.Collector) {
	if len(in.Table.Ignored) == 0 {
		return
	}
	diags.Add(diag.Diagnostic{
		Severity: diag.SeverityInfo,
		Code:     diag.CodeIgnoredSymbols,
		Message:  "ignoring these system symbols: " + strings.Join(in.Table.Ignored.Sorted(), ", "),
	})
}
