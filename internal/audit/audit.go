// Package audit runs one dependency audit end to end: it parses the
// specification, loads the symbol tables of the build, resolves every
// library, runs the report chain, and derives the verdict.
//
// Fatal problems (an unreadable or malformed specification, a dependency
// cycle, cancellation) are returned as errors and leave no partial result.
// Everything else is recorded as a diagnostic on the Result.
package audit

import (
	"context"
	"errors"

	"github.com/papapumpkin/depcheck/internal/depspec"
	"github.com/papapumpkin/depcheck/internal/diag"
	"github.com/papapumpkin/depcheck/internal/report"
	"github.com/papapumpkin/depcheck/internal/resolve"
	"github.com/papapumpkin/depcheck/internal/symtab"
	"github.com/papapumpkin/depcheck/internal/telemetry"
)

// ErrNoSource is returned when Options carries no symbol source.
var ErrNoSource = errors.New("no symbol source configured")

// Options configures a run.
type Options struct {
	// Root is the build output directory holding one subdirectory per
	// library.
	Root string
	// SpecFile names the specification. A relative name is looked up in
	// Root, then in the working directory. Defaults to dependencies.txt.
	SpecFile string
	// ObjectSuffix is the object-file suffix. Defaults to ".o".
	ObjectSuffix string

	Source     symtab.Source
	Classifier symtab.Classifier
	// Jobs bounds concurrent symbol reads. Zero means one per CPU.
	Jobs      int
	AllowList resolve.AllowList

	// Events receives the run's telemetry. May be nil.
	Events *telemetry.Emitter
}

// Result is the outcome of a completed run.
type Result struct {
	SpecPath    string
	Registry    *depspec.Registry
	Table       *symtab.Table
	Diagnostics []diag.Diagnostic
	Tally       diag.Tally
	Checks      *report.Result
	Verdict     report.Verdict
}

// ExitCode returns the process exit code for the verdict.
func (r *Result) ExitCode() int {
	return r.Verdict.ExitCode()
}

// Summary converts the result into its machine-readable form.
func (r *Result) Summary(root, runID string) report.Summary {
	s := report.Summary{
		RunID:       runID,
		Root:        root,
		Spec:        r.SpecPath,
		Items:       r.Registry.Len(),
		Declared:    len(r.Registry.Files()),
		Loaded:      r.Table.Len(),
		Infos:       r.Tally.Infos,
		Warnings:    r.Tally.Warnings,
		Errors:      r.Tally.Errors,
		Verdict:     r.Verdict,
		ExitCode:    r.ExitCode(),
		Diagnostics: r.Diagnostics,
	}
	if r.Checks != nil {
		s.Checks = r.Checks.Checks
	}
	return s
}

// Run performs one audit.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Source == nil {
		return nil, ErrNoSource
	}
	suffix := opts.ObjectSuffix
	if suffix == "" {
		suffix = depspec.DefaultObjectSuffix
	}

	specPath, err := depspec.Locate(opts.Root, opts.SpecFile)
	if err != nil {
		return nil, err
	}
	reg, err := depspec.ParseFile(specPath, depspec.Options{ObjectSuffix: suffix})
	if err != nil {
		return nil, err
	}

	em := opts.Events
	emit(em, telemetry.Event{Kind: telemetry.KindAuditStart, Data: map[string]any{
		"root":      opts.Root,
		"spec":      specPath,
		"items":     reg.Len(),
		"libraries": len(reg.Libraries()),
	}})

	diags := diag.NewCollector(func(d diag.Diagnostic) {
		emit(em, telemetry.Event{Kind: telemetry.KindDiagnostic, Item: d.Item, File: d.File, Data: d})
	})

	loader := &symtab.Loader{
		Source:     opts.Source,
		Classifier: opts.Classifier,
		Suffix:     suffix,
		Jobs:       opts.Jobs,
		Diags:      diags,
		OnLoaded: func(obj *symtab.ObjectFile) {
			emit(em, telemetry.Event{Kind: telemetry.KindObjectLoaded, File: obj.ID, Data: map[string]int{
				"imports": len(obj.Imports),
				"exports": len(obj.Exports),
			}})
		},
	}
	table, err := loader.Load(ctx, opts.Root, reg.Libraries())
	if err != nil {
		return nil, err
	}

	res := resolve.New(reg, table, opts.AllowList, diags)
	res.OnResolved = func(it *depspec.Item, r *resolve.Resolved) {
		emit(em, telemetry.Event{Kind: telemetry.KindItemResolved, Item: it.Name, Data: map[string]any{
			"kind":           it.Kind.String(),
			"exports":        len(r.Exports),
			"system_symbols": len(r.SystemSymbols),
		}})
	}
	if err := res.ResolveAll(); err != nil {
		return nil, err
	}

	checks, err := report.DefaultChain().Run(ctx, report.Input{Registry: reg, Table: table}, diags)
	if err != nil {
		return nil, err
	}

	tally := diags.Tally()
	verdict := report.VerdictOf(tally)
	emit(em, telemetry.Event{Kind: telemetry.KindAuditDone, Data: map[string]any{
		"verdict":  verdict.String(),
		"infos":    tally.Infos,
		"warnings": tally.Warnings,
		"errors":   tally.Errors,
	}})

	return &Result{
		SpecPath:    specPath,
		Registry:    reg,
		Table:       table,
		Diagnostics: diags.All(),
		Tally:       tally,
		Checks:      checks,
		Verdict:     verdict,
	}, nil
}

// emit records a telemetry event. A failed write never fails the audit.
func emit(em *telemetry.Emitter, evt telemetry.Event) {
	_ = em.Emit(evt)
}
