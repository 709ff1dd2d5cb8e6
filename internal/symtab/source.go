// Package symtab loads the symbol tables of compiled object files and
// classifies every symbol as an import or an export. It also records
// compiler-runtime noise and the class names needed for the ABI hazard check.
package symtab

import "context"

// Class is the one-letter symbol class printed by nm, e.g. 'T' for text,
// 'D' for data, 'W' for a weak definition and 'U' for an undefined
// reference. Lowercase 'w' and 'v' are weak references with no definition
// in the file.
type Class byte

// Symbol classes with special meaning to the classifier.
const (
	ClassUndefined           Class = 'U'
	ClassWeakUndefined       Class = 'w'
	ClassWeakObjectUndefined Class = 'v'
	ClassWeakDefined         Class = 'W'
	ClassText                Class = 'T'
	ClassData                Class = 'D'
)

// Undefined reports whether the class marks an import. Weak undefined
// references are imports too; the file does not define them.
func (c Class) Undefined() bool {
	switch c {
	case ClassUndefined, ClassWeakUndefined, ClassWeakObjectUndefined:
		return true
	}
	return false
}

// String returns the class letter.
func (c Class) String() string {
	return string(rune(c))
}

// Record is one line of a symbol table dump.
type Record struct {
	Name  string
	Class Class
}

// Source reads the external symbols of one object file. Implementations
// must be safe for concurrent use; the loader calls Read from several
// goroutines at once.
type Source interface {
	Read(ctx context.Context, path string) ([]Record, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, path string) ([]Record, error)

// Read calls f.
func (f SourceFunc) Read(ctx context.Context, path string) ([]Record, error) {
	return f(ctx, path)
}
