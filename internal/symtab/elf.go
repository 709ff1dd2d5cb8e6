package symtab

import (
	"context"
	"debug/elf"
	"errors"
	"fmt"

	"github.com/ianlancetaylor/demangle"
)

// ELF reads symbol tables in process from ELF relocatable objects, without
// spawning nm. Names are demangled so they match nm --demangle output.
type ELF struct{}

// Read opens path and converts its external symbols to records.
func (ELF) Read(ctx context.Context, path string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ELF object: %w", err)
	}
	defer f.Close()

	syms, err := f.Symbols()
	if err != nil {
		if errors.Is(err, elf.ErrNoSymbols) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading ELF symbols: %w", err)
	}

	var recs []Record
	for _, s := range syms {
		class, ok := elfClass(s)
		if !ok {
			continue
		}
		recs = append(recs, Record{Name: demangle.Filter(s.Name), Class: class})
	}
	return recs, nil
}

// elfClass maps an ELF symbol to an nm class letter. Only global and weak
// named symbols are kept, matching nm --extern-only.
func elfClass(s elf.Symbol) (Class, bool) {
	if s.Name == "" {
		return 0, false
	}
	bind := elf.ST_BIND(s.Info)
	if bind != elf.STB_GLOBAL && bind != elf.STB_WEAK {
		return 0, false
	}
	switch {
	case s.Section == elf.SHN_UNDEF:
		if bind == elf.STB_WEAK {
			return ClassWeakUndefined, true
		}
		return ClassUndefined, true
	case bind == elf.STB_WEAK:
		return ClassWeakDefined, true
	case elf.ST_TYPE(s.Info) == elf.STT_FUNC:
		return ClassText, true
	default:
		return ClassData, true
	}
}
