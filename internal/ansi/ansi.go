// Package ansi provides the ANSI escape codes used for colored terminal
// output. Callers decide whether a stream is a terminal; this package only
// supplies the sequences.
package ansi

import "strings"

// ANSI SGR (Select Graphic Rendition) codes.
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Yellow = "\033[33m"
	Green  = "\033[32m"
	Red    = "\033[31m"
	Cyan   = "\033[36m"
)

// Wrap surrounds s with the given codes and a trailing Reset.
func Wrap(s string, codes ...string) string {
	return strings.Join(codes, "") + s + Reset
}
