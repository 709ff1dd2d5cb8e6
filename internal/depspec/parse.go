// Package depspec parses the declarative dependency specification that lists
// libraries, groups of object files, and the system symbols a build may use
// without a library dependency.
//
// The format is line oriented. "#" starts a comment. Block headers start at
// column zero; their contents are indented by four spaces:
//
//	system_symbols:
//	  deps
//	    c_strings
//
//	group: c_strings
//	    strlen strcmp
//	    "operator new(unsigned long)"
//
//	library: common
//	    putil.o umutex.o
//	  deps
//	    c_strings
package depspec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Options tunes parsing.
type Options struct {
	// ObjectSuffix is the suffix every object file name must carry.
	// Defaults to DefaultObjectSuffix.
	ObjectSuffix string
}

type section int

const (
	sectionNone section = iota
	sectionFiles
	sectionSymbols
	sectionDeps
)

const (
	indent        = "    "
	libraryPrefix = "library: "
	groupPrefix   = "group: "
	systemHeader  = "system_symbols:"
	depsHeader    = "  deps"
)

// parser carries all state of one parse; nothing is kept at package level.
type parser struct {
	suffix  string
	reg     *Registry
	line    int
	cur     *Item
	section section

	// Groups mentioned in deps lists but not yet defined, in first-mention
	// order.
	pending      map[string]bool
	pendingOrder []string
}

// Parse reads a dependency specification and returns its registry. Any
// problem is fatal and reported as a *ParseError.
func Parse(r io.Reader, opts Options) (*Registry, error) {
	suffix := opts.ObjectSuffix
	if suffix == "" {
		suffix = DefaultObjectSuffix
	}
	p := &parser{
		suffix:  suffix,
		reg:     newRegistry(),
		pending: make(map[string]bool),
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		p.line++
		text := logicalLine(sc.Text())
		if text == "" {
			continue
		}
		if err := p.parseLine(text); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading dependency specification: %w", err)
	}
	return p.finish()
}

// ParseFile parses the specification stored at path.
func ParseFile(path string, opts Options) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dependency specification: %w", err)
	}
	defer f.Close()

	reg, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return reg, nil
}

// Locate returns the path of the specification file named name. An
// absolute name is returned as is; otherwise root is searched first, then
// the working directory.
func Locate(root, name string) (string, error) {
	if name == "" {
		name = DefaultFileName
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	candidates := []string{filepath.Join(root, name), name}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("dependency specification %q not found in %s or the working directory", name, root)
}

// logicalLine strips a trailing comment and trailing whitespace.
func logicalLine(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimRight(raw, " \t\r")
}

func (p *parser) parseLine(text string) error {
	switch {
	case strings.HasPrefix(text, indent):
		return p.parseEntries(strings.TrimSpace(text))
	case strings.HasPrefix(text, libraryPrefix):
		return p.startLibrary(strings.TrimSpace(text[len(libraryPrefix):]))
	case strings.HasPrefix(text, groupPrefix):
		return p.startGroup(strings.TrimSpace(text[len(groupPrefix):]))
	case text == systemHeader:
		return p.startSystemSymbols()
	case text == depsHeader:
		if p.cur == nil {
			return p.fail(ErrDepsOutsideBlock, "")
		}
		p.section = sectionDeps
		return nil
	default:
		return p.fail(ErrSyntax, "%q", text)
	}
}

func (p *parser) startLibrary(name string) error {
	if err := p.checkName(name); err != nil {
		return err
	}
	if p.reg.Item(name) != nil {
		return p.fail(ErrDuplicateLibrary, "%s", name)
	}
	it := &Item{Name: name, Kind: KindLibrary, Line: p.line}
	p.reg.add(it)
	p.enter(it, sectionFiles)
	return nil
}

func (p *parser) startGroup(name string) error {
	if err := p.checkName(name); err != nil {
		return err
	}
	it := p.reg.Item(name)
	if it == nil {
		return p.fail(ErrGroupNotReferenced, "%s", name)
	}
	if !p.pending[name] {
		return p.fail(ErrDuplicateGroup, "%s", name)
	}
	delete(p.pending, name)
	it.Line = p.line

	if it.Library != "" {
		p.enter(it, sectionFiles)
	} else {
		p.enter(it, sectionSymbols)
	}
	return nil
}

func (p *parser) startSystemSymbols() error {
	if p.reg.Item(SystemSymbolsName) != nil {
		return p.fail(ErrDuplicateSystemSymbols, "")
	}
	it := &Item{Name: SystemSymbolsName, Kind: KindSystemSymbols, Line: p.line}
	p.reg.add(it)
	p.enter(it, sectionSymbols)
	return nil
}

func (p *parser) enter(it *Item, s section) {
	p.cur = it
	p.section = s
}

func (p *parser) parseEntries(entry string) error {
	switch p.section {
	case sectionFiles:
		return p.addFiles(strings.Fields(entry))
	case sectionSymbols:
		return p.addSymbols(entry)
	case sectionDeps:
		return p.addDeps(strings.Fields(entry))
	default:
		return p.fail(ErrSyntax, "indented line outside of a block: %q", entry)
	}
}

func (p *parser) addFiles(names []string) error {
	library := p.cur.Name
	if p.cur.Kind == KindGroup {
		library = p.cur.Library
	}
	for _, name := range names {
		if strings.Contains(name, "/") || !strings.HasSuffix(name, p.suffix) {
			return p.fail(ErrInvalidFileName, "%s", name)
		}
		id := library + "/" + name
		if owner, dup := p.reg.owners[id]; dup {
			return p.fail(ErrDuplicateFile, "%s (already in %s)", id, owner)
		}
		p.reg.owners[id] = p.cur.Name
		p.cur.Files = append(p.cur.Files, id)
	}
	return nil
}

func (p *parser) addSymbols(entry string) error {
	if strings.Contains(entry, `"`) {
		// One quoted symbol per line; the quotes allow spaces in the name.
		if len(entry) < 2 || entry[0] != '"' || entry[len(entry)-1] != '"' {
			return p.fail(ErrSyntax, "malformed quoted symbol %s", entry)
		}
		if sym := entry[1 : len(entry)-1]; sym != "" {
			p.cur.SystemSymbols = append(p.cur.SystemSymbols, sym)
		}
		return nil
	}
	p.cur.SystemSymbols = append(p.cur.SystemSymbols, strings.Fields(entry)...)
	return nil
}

func (p *parser) addDeps(names []string) error {
	symbolSide := !p.cur.OwnsCode()
	owner := ""
	switch {
	case p.cur.Kind == KindLibrary:
		owner = p.cur.Name
	case p.cur.Kind == KindGroup:
		owner = p.cur.Library
	}

	for _, name := range names {
		if err := p.checkName(name); err != nil {
			return err
		}
		dep := p.reg.Item(name)
		if symbolSide && dep != nil && dep.OwnsCode() {
			return p.fail(ErrSymbolsDependOnCode, "%s", name)
		}
		if dep == nil {
			p.reg.add(&Item{Name: name, Kind: KindGroup, Library: owner, Line: p.line})
			p.pending[name] = true
			p.pendingOrder = append(p.pendingOrder, name)
		}
		p.cur.addDep(name)
	}
	return nil
}

func (p *parser) checkName(name string) error {
	if name == "" || strings.ContainsAny(name, "/ \t") || strings.HasSuffix(name, p.suffix) {
		return p.fail(ErrInvalidName, "%q", name)
	}
	return nil
}

func (p *parser) finish() (*Registry, error) {
	var undefined []string
	for _, name := range p.pendingOrder {
		if p.pending[name] {
			undefined = append(undefined, name)
		}
	}
	if len(undefined) > 0 {
		return nil, &ParseError{Err: fmt.Errorf("%w: %s", ErrUndefinedGroups, strings.Join(undefined, ", "))}
	}
	return p.reg, nil
}

// fail builds a *ParseError for the current line. An empty format yields the
// bare sentinel.
func (p *parser) fail(sentinel error, format string, args ...any) error {
	err := sentinel
	if format != "" {
		err = fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
	}
	return &ParseError{Line: p.line, Err: err}
}
