package symtab

import "strings"

const (
	vtablePrefix = "vtable for "
	dtorMarker   = "::~"
)

// ObjectFile is the classified symbol table of one object file. It is not
// modified after loading.
type ObjectFile struct {
	ID      string
	Imports Set
	Exports Set
}

// Classifier turns raw records into imports and exports and collects the
// sets needed for diagnostics.
type Classifier struct {
	// IgnoreNames lists extra symbols treated as compiler-runtime noise, on
	// top of the built-in patterns.
	IgnoreNames []string
	// HazardNamespace, when set, restricts the virtual-class heuristic to
	// classes whose qualified name starts with this prefix.
	HazardNamespace string
}

// Classification is the result of classifying one object file.
type Classification struct {
	Object          *ObjectFile
	Ignored         Set
	VirtualClasses  Set
	WeakDestructors Set
	// Exporters maps each exported symbol to this file's ID.
	Exporters map[string]string
}

// IsNoise reports whether name belongs to the compiler runtime rather than
// to the code under audit: exception personality routines, RTTI helpers
// and ABI glue such as __cxa_pure_virtual, "vtable for
// __cxxabiv1::__si_class_type_info", DW.ref.__gxx_personality_v0 and
// __dso_handle.
func (c Classifier) IsNoise(name string) bool {
	if strings.HasPrefix(name, "__cxa") ||
		strings.Contains(name, "__cxxabi") ||
		strings.Contains(name, "__gxx") ||
		name == "__dso_handle" {
		return true
	}
	for _, n := range c.IgnoreNames {
		if n == name {
			return true
		}
	}
	return false
}

// Classify sorts the records of object id into imports, exports and noise,
// and applies the vtable and weak-destructor heuristics to exports.
func (c Classifier) Classify(id string, recs []Record) Classification {
	out := Classification{
		Object:          &ObjectFile{ID: id, Imports: make(Set), Exports: make(Set)},
		Ignored:         make(Set),
		VirtualClasses:  make(Set),
		WeakDestructors: make(Set),
		Exporters:       make(map[string]string),
	}
	for _, r := range recs {
		if c.IsNoise(r.Name) {
			out.Ignored.Add(r.Name)
			continue
		}
		if r.Class.Undefined() {
			out.Object.Imports.Add(r.Name)
			continue
		}
		out.Object.Exports.Add(r.Name)
		out.Exporters[r.Name] = id

		if class, ok := c.vtableClass(r.Name); ok {
			out.VirtualClasses.Add(class)
		}
		if r.Class == ClassWeakDefined {
			if class, ok := destructorClass(r.Name); ok {
				out.WeakDestructors.Add(class)
			}
		}
	}
	return out
}

// vtableClass extracts "ns::Foo" from "vtable for ns::Foo". Classes outside
// any namespace are skipped.
func (c Classifier) vtableClass(name string) (string, bool) {
	class, ok := strings.CutPrefix(name, vtablePrefix)
	if !ok || !strings.Contains(class, "::") {
		return "", false
	}
	if c.HazardNamespace != "" && !strings.HasPrefix(class, c.HazardNamespace) {
		return "", false
	}
	return class, true
}

// destructorClass extracts "ns::Foo" from "ns::Foo::~Foo()". The name after
// "~" must match the last component of the qualified class.
func destructorClass(name string) (string, bool) {
	idx := strings.Index(name, dtorMarker)
	if idx < 0 {
		return "", false
	}
	class := name[:idx]
	dtor := name[idx+len(dtorMarker):]
	if p := strings.IndexByte(dtor, '('); p >= 0 {
		dtor = dtor[:p]
	}
	if !strings.Contains(class, "::") || baseName(class) != baseName(dtor) {
		return "", false
	}
	return class, true
}

// baseName returns the last "::" component of a qualified name without
// template arguments.
func baseName(qualified string) string {
	var b strings.Builder
	depth := 0
	for _, r := range qualified {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	plain := b.String()
	if i := strings.LastIndex(plain, "::"); i >= 0 {
		plain = plain[i+2:]
	}
	return plain
}
