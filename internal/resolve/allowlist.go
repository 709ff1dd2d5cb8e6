package resolve

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// AllowEntry pre-approves one object file importing one symbol without a
// declared dependency, typically a compiler-generated reference.
type AllowEntry struct {
	File   string `toml:"file"`
	Symbol string `toml:"symbol"`
	Reason string `toml:"reason,omitempty"`
}

// allowFile is the on-disk TOML layout:
//
//	[[allow]]
//	file = "common/umutex.o"
//	symbol = "std::__once_call"
//	reason = "std::call_once internals"
type allowFile struct {
	Allow []AllowEntry `toml:"allow"`
}

type allowKey struct {
	file, symbol string
}

// AllowList is a set of exempted (file, symbol) imports. The zero value
// exempts nothing. Entries apply only to the named file, never transitively.
type AllowList struct {
	entries map[allowKey]AllowEntry
}

// NewAllowList builds an allow-list from entries.
func NewAllowList(entries ...AllowEntry) AllowList {
	al := AllowList{entries: make(map[allowKey]AllowEntry, len(entries))}
	for _, e := range entries {
		al.entries[allowKey{e.File, e.Symbol}] = e
	}
	return al
}

// LoadAllowList reads a TOML allow-list file. An empty path yields an empty
// list.
func LoadAllowList(path string) (AllowList, error) {
	if path == "" {
		return AllowList{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return AllowList{}, fmt.Errorf("reading allow-list: %w", err)
	}
	var f allowFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return AllowList{}, fmt.Errorf("parsing allow-list %s: %w", path, err)
	}
	for i, e := range f.Allow {
		if e.File == "" || e.Symbol == "" {
			return AllowList{}, fmt.Errorf("allow-list %s: entry %d needs both file and symbol", path, i+1)
		}
	}
	return NewAllowList(f.Allow...), nil
}

// Allows reports whether file may import symbol without a dependency.
func (a AllowList) Allows(file, symbol string) bool {
	_, ok := a.entries[allowKey{file, symbol}]
	return ok
}

// Len returns the number of entries.
func (a AllowList) Len() int {
	return len(a.entries)
}
