package depspec

import "sort"

// DefaultObjectSuffix is the file suffix of compiled object files.
const DefaultObjectSuffix = ".o"

// DefaultFileName is the name of the specification file looked up in the
// build root.
const DefaultFileName = "dependencies.txt"

// SystemSymbolsName is the name of the singleton system-symbols item.
const SystemSymbolsName = "system_symbols"

// Kind distinguishes the three kinds of dependency-graph nodes.
type Kind int

const (
	KindLibrary       Kind = iota // owns object files, depended upon by name
	KindGroup                     // named subset of a library, or of system symbols
	KindSystemSymbols             // umbrella of runtime symbols needing no library
)

// String returns the lowercase kind name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindLibrary:
		return "library"
	case KindGroup:
		return "group"
	case KindSystemSymbols:
		return "system_symbols"
	default:
		return "unknown"
	}
}

// Item is one node of the declared dependency graph.
type Item struct {
	Name string
	Kind Kind
	// Library is the owning library of a group. Empty for libraries, the
	// system-symbols item, and symbol-only groups.
	Library string
	// Files holds object-file IDs of the form "<library>/<file>" in
	// declaration order.
	Files []string
	// Deps holds dependency names in declaration order, without duplicates.
	Deps []string
	// SystemSymbols holds the symbol names declared directly on this item.
	SystemSymbols []string
	// Line is the line of the block header that defined the item, or of the
	// deps entry that first mentioned it while it is still undefined.
	Line int

	deps map[string]bool
}

// OwnsCode reports whether the item is a library or a library-owned group.
func (it *Item) OwnsCode() bool {
	return it.Kind == KindLibrary || (it.Kind == KindGroup && it.Library != "")
}

func (it *Item) addDep(name string) {
	if it.deps == nil {
		it.deps = make(map[string]bool)
	}
	if it.deps[name] {
		return
	}
	it.deps[name] = true
	it.Deps = append(it.Deps, name)
}

// Registry holds every item of a parsed specification and the set of
// declared object files.
type Registry struct {
	items     map[string]*Item
	order     []string
	libraries []string
	owners    map[string]string // file ID -> item name
}

func newRegistry() *Registry {
	return &Registry{
		items:  make(map[string]*Item),
		owners: make(map[string]string),
	}
}

func (r *Registry) add(it *Item) {
	r.items[it.Name] = it
	r.order = append(r.order, it.Name)
	if it.Kind == KindLibrary {
		r.libraries = append(r.libraries, it.Name)
	}
}

// Item returns the item with the given name, or nil.
func (r *Registry) Item(name string) *Item {
	return r.items[name]
}

// Items returns all items in registration order.
func (r *Registry) Items() []*Item {
	out := make([]*Item, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.items[name])
	}
	return out
}

// Len returns the number of registered items.
func (r *Registry) Len() int {
	return len(r.order)
}

// Libraries returns library names in definition order.
func (r *Registry) Libraries() []string {
	out := make([]string, len(r.libraries))
	copy(out, r.libraries)
	return out
}

// SystemSymbols returns the system-symbols item, or nil if the
// specification does not define one.
func (r *Registry) SystemSymbols() *Item {
	return r.items[SystemSymbolsName]
}

// Files returns every declared object-file ID, sorted.
func (r *Registry) Files() []string {
	out := make([]string, 0, len(r.owners))
	for id := range r.owners {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Owner returns the name of the item declaring the object file, or "".
func (r *Registry) Owner(fileID string) string {
	return r.owners[fileID]
}
