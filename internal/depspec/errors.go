package depspec

import (
	"errors"
	"fmt"
)

// Sentinel errors for dependency specification parsing.
var (
	// ErrSyntax indicates a line that matches no construct of the grammar.
	ErrSyntax = errors.New("syntax error")
	// ErrInvalidName indicates a library, group, or dependency name containing
	// "/" or ending in the object-file suffix.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidFileName indicates a file name containing "/" or not ending
	// in the object-file suffix.
	ErrInvalidFileName = errors.New("invalid object file name")
	// ErrDuplicateLibrary indicates a library definition reusing a known name.
	ErrDuplicateLibrary = errors.New("library definition using duplicate name")
	// ErrDuplicateGroup indicates a group defined more than once.
	ErrDuplicateGroup = errors.New("group definition using duplicate name")
	// ErrGroupNotReferenced indicates a group defined before any item listed
	// it as a dependency.
	ErrGroupNotReferenced = errors.New("group defined before mentioned as a dependency")
	// ErrDuplicateSystemSymbols indicates a second system_symbols block.
	ErrDuplicateSystemSymbols = errors.New("duplicate entry for system_symbols")
	// ErrDuplicateFile indicates an object file listed in more than one place.
	ErrDuplicateFile = errors.New("file listed in multiple groups")
	// ErrDepsOutsideBlock indicates a deps section before any block header.
	ErrDepsOutsideBlock = errors.New("deps before any library or group")
	// ErrSymbolsDependOnCode indicates system symbols depending on a library
	// or a library group.
	ErrSymbolsDependOnCode = errors.New("system_symbols depend on previously defined library or library group")
	// ErrUndefinedGroups indicates groups mentioned as dependencies but never
	// defined before the end of input.
	ErrUndefinedGroups = errors.New("some groups mentioned in dependencies are undefined")
)

// ParseError records a parse failure and the line it occurred on. Line is 0
// for errors detected at end of input.
type ParseError struct {
	Line int
	Err  error
}

// Error returns the message prefixed with the offending line number.
func (e *ParseError) Error() string {
	if e.Line == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}
