package symtab

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/depcheck/internal/diag"
)

// fakeSource serves records keyed by the path relative to root.
type fakeSource struct {
	root  string
	recs  map[string][]Record
	fail  map[string]error
	mu    sync.Mutex
	reads map[string]int
}

func (f *fakeSource) Read(_ context.Context, path string) ([]Record, error) {
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		return nil, err
	}
	rel = filepath.ToSlash(rel)
	f.mu.Lock()
	if f.reads == nil {
		f.reads = make(map[string]int)
	}
	f.reads[rel]++
	f.mu.Unlock()
	if err := f.fail[rel]; err != nil {
		return nil, err
	}
	return f.recs[rel], nil
}

func TestLoader_LoadFiles(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		root: "/build",
		recs: map[string][]Record{
			"common/a.o": {{Name: "foo", Class: ClassText}, {Name: "bar", Class: ClassUndefined}},
			"common/b.o": {{Name: "bar", Class: ClassText}, {Name: "foo", Class: ClassText}},
		},
		fail: map[string]error{"common/bad.o": errors.New("truncated")},
	}
	diags := diag.NewCollector(nil)
	l := &Loader{Source: src, Jobs: 2, Diags: diags}

	var loaded []string
	l.OnLoaded = func(obj *ObjectFile) { loaded = append(loaded, obj.ID) }

	table, err := l.LoadFiles(context.Background(), "/build", []string{"common/b.o", "common/a.o", "common/bad.o", "common/a.o"})
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}

	if diff := cmp.Diff([]string{"common/a.o", "common/b.o", "common/bad.o"}, table.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"common/a.o", "common/b.o"}, loaded); diff != "" {
		t.Errorf("OnLoaded order mismatch (-want +got):\n%s", diff)
	}
	if src.reads["common/a.o"] != 1 {
		t.Errorf("common/a.o read %d times, want 1", src.reads["common/a.o"])
	}

	// Origins resolve to the first file in ID order.
	if got := table.Origin("foo"); got != "common/a.o" {
		t.Errorf("Origin(foo) = %q, want common/a.o", got)
	}
	if got := table.Origin("bar"); got != "common/b.o" {
		t.Errorf("Origin(bar) = %q, want common/b.o", got)
	}

	dups := diags.ByCode(diag.CodeDuplicateObject)
	if len(dups) != 1 || dups[0].Severity != diag.SeverityWarning || dups[0].File != "common/a.o" {
		t.Errorf("duplicate diagnostics = %+v, want one warning for common/a.o", dups)
	}
	bad := diags.ByCode(diag.CodeUnreadableObject)
	if len(bad) != 1 || bad[0].Severity != diag.SeverityError || !strings.Contains(bad[0].Message, "truncated") {
		t.Errorf("unreadable diagnostics = %+v, want one error mentioning the cause", bad)
	}
	if obj := table.File("common/bad.o"); obj == nil || len(obj.Exports) != 0 {
		t.Errorf("unreadable file should be present and empty, got %+v", obj)
	}
}

func TestLoader_Load_ListsLibraries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "common", "nested.o"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, rel := range []string{"common/a.o", "common/b.o", "common/notes.txt", "i18n/c.o", "other/d.o", "lib[1/e.o"} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	l := &Loader{Source: &fakeSource{root: root}}
	table, err := l.Load(context.Background(), root, []string{"common", "i18n", "missing", "lib[1", "lib[2"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"common/a.o", "common/b.o", "i18n/c.o", "lib[1/e.o"}
	if diff := cmp.Diff(want, table.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	src := SourceFunc(func(_ context.Context, _ string) ([]Record, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return nil, nil
	})

	ids := []string{"l/a.o", "l/b.o", "l/c.o", "l/d.o", "l/e.o"}
	l := &Loader{Source: src, Jobs: 2}

	done := make(chan error, 1)
	go func() {
		_, err := l.LoadFiles(context.Background(), "/", ids)
		done <- err
	}()
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestLoader_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := &Loader{Source: SourceFunc(func(context.Context, string) ([]Record, error) { return nil, nil })}
	if _, err := l.LoadFiles(ctx, "/", []string{"l/a.o"}); !errors.Is(err, context.Canceled) {
		t.Errorf("LoadFiles error = %v, want context.Canceled", err)
	}
}
