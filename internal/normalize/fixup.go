package normalize

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// FixupFunc rewrites the text of a stage artifact.
type FixupFunc func(string) string

// StripPLTName is the registry name of the StripPLT fixup.
const StripPLTName = "strip-plt"

// StripPLT removes every "@plt" relocation marker emitted by the assembler.
func StripPLT(text string) string {
	return strings.ReplaceAll(text, "@plt", "")
}

var (
	fixupMu sync.RWMutex
	fixups  = map[string]FixupFunc{
		StripPLTName: StripPLT,
	}
)

// Register adds or replaces a named fixup.
func Register(name string, fn FixupFunc) {
	fixupMu.Lock()
	defer fixupMu.Unlock()
	fixups[name] = fn
}

// Lookup returns the fixup registered under name.
func Lookup(name string) (FixupFunc, bool) {
	fixupMu.RLock()
	defer fixupMu.RUnlock()
	fn, ok := fixups[name]
	return fn, ok
}

// Names returns the registered fixup names, sorted.
func Names() []string {
	fixupMu.RLock()
	defer fixupMu.RUnlock()
	names := make([]string, 0, len(fixups))
	for name := range fixups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyFile reads src, applies the named fixup and writes the result to dst.
// src and dst may be the same path.
func ApplyFile(name, src, dst string) error {
	fn, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("unknown fixup %q (registered: %s)", name, strings.Join(Names(), ", "))
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("fixup %s: %w", name, err)
	}
	if err := os.WriteFile(dst, []byte(fn(string(data))), 0644); err != nil {
		return fmt.Errorf("fixup %s: %w", name, err)
	}
	return nil
}
