// Package resolve computes, for every item of a dependency specification,
// the symbols it transitively exports and the system symbols it may import,
// and reports imports that no declared dependency satisfies.
//
// Resolution is a memoized depth-first walk. Each item is computed at most
// once per Resolver; the ancestor stack of the walk detects circular
// dependencies, which are always fatal.
package resolve

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/papapumpkin/depcheck/internal/depspec"
	"github.com/papapumpkin/depcheck/internal/diag"
	"github.com/papapumpkin/depcheck/internal/symtab"
)

// ErrCycle is wrapped by every *CycleError.
var ErrCycle = errors.New("circular dependency")

// ErrUnknownItem is returned when a dependency names no registered item.
var ErrUnknownItem = errors.New("unknown item")

// CycleError reports a dependency cycle. Cycle lists the items on the cycle
// starting from the item that was reached twice.
type CycleError struct {
	Kind  depspec.Kind
	Cycle []string
}

// Error names the item and the full cycle.
func (e *CycleError) Error() string {
	path := append(slices.Clone(e.Cycle), e.Cycle[0])
	return fmt.Sprintf("%s %s has a circular dependency on itself: %s",
		e.Kind, e.Cycle[0], strings.Join(path, " -> "))
}

// Unwrap returns ErrCycle.
func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// Resolved is the memoized result for one item.
type Resolved struct {
	Name string
	// Exports holds the item's own exports and those of everything it
	// transitively depends on.
	Exports symtab.Set
	// SystemSymbols holds the system symbols the item may import.
	SystemSymbols symtab.Set
}

// Resolver resolves items of one registry against one symbol table. It is
// not safe for concurrent use.
type Resolver struct {
	reg   *depspec.Registry
	table *symtab.Table
	allow AllowList
	diags *diag.Collector

	memo  map[string]*Resolved
	stack []string

	// OnResolved, if set, is called once per item when its result is
	// first computed.
	OnResolved func(it *depspec.Item, res *Resolved)
}

// New returns a Resolver. Findings go to diags.
func New(reg *depspec.Registry, table *symtab.Table, allow AllowList, diags *diag.Collector) *Resolver {
	return &Resolver{
		reg:   reg,
		table: table,
		allow: allow,
		diags: diags,
		memo:  make(map[string]*Resolved),
	}
}

// ResolveAll resolves every library in definition order. Groups are reached
// through the libraries that depend on them.
func (r *Resolver) ResolveAll() error {
	for _, lib := range r.reg.Libraries() {
		if _, err := r.Resolve(lib); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns the resolved exports of the named item, computing them on
// first use. A cached result is returned as is, without new diagnostics.
func (r *Resolver) Resolve(name string) (*Resolved, error) {
	if res, ok := r.memo[name]; ok {
		return res, nil
	}
	it := r.reg.Item(name)
	if it == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, name)
	}
	if i := slices.Index(r.stack, name); i >= 0 {
		return nil, &CycleError{Kind: it.Kind, Cycle: slices.Clone(r.stack[i:])}
	}
	r.stack = append(r.stack, name)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	imports, exports := make(symtab.Set), make(symtab.Set)
	for _, id := range it.Files {
		if obj := r.table.File(id); obj != nil {
			imports.AddAll(obj.Imports)
			exports.AddAll(obj.Exports)
		}
	}
	imports.RemoveAll(exports)
	imports.RemoveAll(r.table.Ignored)

	system := symtab.NewSet(it.SystemSymbols...)
	for _, depName := range it.Deps {
		dep, err := r.Resolve(depName)
		if err != nil {
			return nil, err
		}
		// Umbrella items without files depend on things deliberately.
		if len(it.Files) > 0 && imports.Disjoint(dep.Exports) && imports.Disjoint(dep.SystemSymbols) {
			r.diags.Add(diag.Diagnostic{
				Severity: diag.SeverityInfo,
				Code:     diag.CodeUnneededDependency,
				Item:     it.Name,
				Provider: depName,
				Message:  fmt.Sprintf("%s %s does not need to depend on %s", it.Kind, it.Name, depName),
			})
		}
		// Dependencies are re-exported whether or not they are needed.
		exports.AddAll(dep.Exports)
		system.AddAll(dep.SystemSymbols)
	}

	imports.RemoveAll(exports)
	imports.RemoveAll(system)
	for _, sym := range imports.Sorted() {
		r.reportUnresolved(it, sym)
	}

	res := &Resolved{Name: name, Exports: exports, SystemSymbols: system}
	r.memo[name] = res
	if r.OnResolved != nil {
		r.OnResolved(it, res)
	}
	return res, nil
}

// reportUnresolved emits one diagnostic per own file that imports sym.
func (r *Resolver) reportUnresolved(it *depspec.Item, sym string) {
	originFile := r.table.Origin(sym)
	originItem := r.reg.Owner(originFile)

	for _, id := range it.Files {
		obj := r.table.File(id)
		if obj == nil || !obj.Imports.Has(sym) {
			continue
		}
		if r.allow.Allows(id, sym) {
			r.diags.Add(diag.Diagnostic{
				Severity: diag.SeverityInfo,
				Code:     diag.CodeAllowedImport,
				Item:     it.Name,
				File:     id,
				Symbol:   sym,
				Message:  fmt.Sprintf("ignoring %s imports %q (allow-listed)", id, sym),
			})
			continue
		}

		d := diag.Diagnostic{
			Severity: diag.SeverityError,
			Code:     diag.CodeUnresolvedImport,
			Item:     it.Name,
			File:     id,
			Symbol:   sym,
			Provider: originItem,
		}
		if originItem != "" {
			d.Message = fmt.Sprintf("%s %s: %s imports %q but %s does not depend on %s (exported by %s)",
				it.Kind, it.Name, id, sym, it.Name, originItem, originFile)
		} else {
			d.Message = fmt.Sprintf("%s %s: %s imports %q, which no declared dependency exports",
				it.Kind, it.Name, id, sym)
		}
		r.diags.Add(d)
	}
}
