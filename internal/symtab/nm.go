package symtab

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// DefaultNMPath is the symbol dumper looked up on PATH when none is set.
const DefaultNMPath = "nm"

// NM reads symbol tables by running nm in System V output format.
type NM struct {
	Path    string
	Verbose bool
	// Log receives the verbose command echo. Defaults to os.Stderr.
	Log io.Writer
}

// buildArgs constructs the nm arguments for one object file.
func buildArgs(path string) []string {
	return []string{
		"--demangle",
		"--format=sysv",
		"--extern-only",
		"--no-sort",
		path,
	}
}

func (n *NM) binary() string {
	if n.Path == "" {
		return DefaultNMPath
	}
	return n.Path
}

func (n *NM) logf(format string, args ...any) {
	if !n.Verbose {
		return
	}
	w := n.Log
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, format, args...)
}

// Read runs nm on path and parses its output.
func (n *NM) Read(ctx context.Context, path string) ([]Record, error) {
	args := buildArgs(path)

	cmd := exec.CommandContext(ctx, n.binary(), args...)
	cmd.SysProcAttr = sessionAttr()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	n.logf("[nm] running: %s %s\n", n.binary(), strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("nm failed: %w\nstderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return ParseSysV(&stdout)
}

// Validate checks that the nm binary is available.
func (n *NM) Validate(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, n.binary(), "--version")
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("nm not found at %q: %w", n.binary(), err)
	}
	first, _, _ := strings.Cut(string(out), "\n")
	n.logf("[nm] version: %s\n", first)
	return nil
}

// sysvFields is the number of "|"-separated columns in a System V line:
// Name|Value|Class|Type|Size|Line|Section.
const sysvFields = 7

// ParseSysV parses nm --format=sysv output. Header and blank lines carry no
// "|" and are skipped. Demangled names may themselves contain "|" (for
// example "operator|(...)"), so the name is taken as everything before the
// last six columns.
func ParseSysV(r io.Reader) ([]Record, error) {
	var recs []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		fields := strings.Split(sc.Text(), "|")
		if len(fields) < 3 {
			continue
		}
		name, class := fields[0], fields[2]
		if n := len(fields); n >= sysvFields {
			name = strings.Join(fields[:n-sysvFields+1], "|")
			class = fields[n-sysvFields+2]
		}
		name = strings.TrimSpace(name)
		class = strings.TrimSpace(class)
		if name == "" || class == "" {
			continue
		}
		recs = append(recs, Record{Name: name, Class: Class(class[0])})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading nm output: %w", err)
	}
	return recs, nil
}
