package symtab

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/papapumpkin/depcheck/internal/diag"
)

// Table holds the classified symbols of every loaded object file.
type Table struct {
	files   map[string]*ObjectFile
	origins map[string]string // symbol -> exporting file ID

	// Ignored holds compiler-runtime noise seen in any file.
	Ignored Set
	// VirtualClasses holds classes observed to have a vtable.
	VirtualClasses Set
	// WeakDestructors holds classes observed to have a weakly defined
	// destructor.
	WeakDestructors Set
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		files:           make(map[string]*ObjectFile),
		origins:         make(map[string]string),
		Ignored:         make(Set),
		VirtualClasses:  make(Set),
		WeakDestructors: make(Set),
	}
}

// Merge adds a classified object file. The first file to export a symbol is
// remembered as its origin.
func (t *Table) Merge(c Classification) {
	t.files[c.Object.ID] = c.Object
	for sym, id := range c.Exporters {
		if _, ok := t.origins[sym]; !ok {
			t.origins[sym] = id
		}
	}
	t.Ignored.AddAll(c.Ignored)
	t.VirtualClasses.AddAll(c.VirtualClasses)
	t.WeakDestructors.AddAll(c.WeakDestructors)
}

// File returns the object file with the given ID, or nil if it was not
// loaded.
func (t *Table) File(id string) *ObjectFile {
	return t.files[id]
}

// IDs returns the IDs of all loaded files, sorted.
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.files))
	for id := range t.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of loaded files.
func (t *Table) Len() int {
	return len(t.files)
}

// Origin returns the ID of a file exporting sym, or "".
func (t *Table) Origin(sym string) string {
	return t.origins[sym]
}

// Loader reads the object files of a build through a Source.
type Loader struct {
	Source     Source
	Classifier Classifier
	// Suffix selects the object files listed in each library directory.
	Suffix string
	// Jobs bounds concurrent reads. Zero means runtime.NumCPU().
	Jobs int
	// Diags receives duplicate-load warnings and per-file read errors.
	Diags *diag.Collector
	// OnLoaded, if set, is called once per successfully read file, in ID
	// order, after all reads finish.
	OnLoaded func(obj *ObjectFile)
}

// Load lists <root>/<library>/*<suffix> for every library and loads the
// files found. A library without a readable directory contributes no files.
func (l *Loader) Load(ctx context.Context, root string, libraries []string) (*Table, error) {
	suffix := l.Suffix
	if suffix == "" {
		suffix = ".o"
	}
	var ids []string
	for _, lib := range libraries {
		entries, err := os.ReadDir(filepath.Join(root, lib))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
				continue
			}
			ids = append(ids, lib+"/"+e.Name())
		}
	}
	return l.LoadFiles(ctx, root, ids)
}

type readResult struct {
	recs []Record
	err  error
}

// LoadFiles loads the given object-file IDs ("<library>/<file>") relative to
// root. Each ID is read once; repeats are reported as warnings. Reads run
// concurrently and a failing read is recorded as an error for that file
// only. The returned error is non-nil only if ctx is cancelled.
func (l *Loader) LoadFiles(ctx context.Context, root string, ids []string) (*Table, error) {
	seen := make(map[string]bool, len(ids))
	var unique []string
	for _, id := range ids {
		if seen[id] {
			l.Diags.Add(diag.Diagnostic{
				Severity: diag.SeverityWarning,
				Code:     diag.CodeDuplicateObject,
				File:     id,
				Message:  fmt.Sprintf("%s already read", id),
			})
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	sort.Strings(unique)

	jobs := l.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	// Each worker writes only its own slot.
	results := make([]readResult, len(unique))
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, id := range unique {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return nil
			}
			path := filepath.Join(root, filepath.FromSlash(id))
			results[i].recs, results[i].err = l.Source.Read(ctx, path)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("loading symbol tables: %w", err)
	}

	table := NewTable()
	for i, id := range unique {
		res := results[i]
		if res.err != nil {
			l.Diags.Add(diag.Diagnostic{
				Severity: diag.SeverityError,
				Code:     diag.CodeUnreadableObject,
				File:     id,
				Message:  fmt.Sprintf("cannot read symbols of %s: %v", id, res.err),
			})
			// The file exists; keep it in the table so the file-set check
			// does not report it a second time.
			table.Merge(Classification{Object: &ObjectFile{ID: id, Imports: make(Set), Exports: make(Set)}})
			continue
		}
		c := l.Classifier.Classify(id, res.recs)
		table.Merge(c)
		if l.OnLoaded != nil {
			l.OnLoaded(c.Object)
		}
	}
	return table, nil
}
