package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[SectionKind]SectionDefinition)
	registryMu sync.RWMutex
)

// Register adds a section definition to the registry.
// Panics if a section of the same kind is already registered.
func Register(def SectionDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Kind]; exists {
		panic(fmt.Sprintf("section already registered: %s", def.Kind))
	}
	registry[def.Kind] = def
}

// Get returns a section definition by kind.
func Get(kind SectionKind) (SectionDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// MustGet is Get for kinds registered by this package.
func MustGet(kind SectionKind) SectionDefinition {
	def, ok := Get(kind)
	if !ok {
		panic(fmt.Sprintf("unknown section: %s", kind))
	}
	return def
}

// Lookup resolves a user supplied section name, accepting the kind or any alias.
func Lookup(name string) (SectionDefinition, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, def := range registry {
		if string(def.Kind) == name {
			return def, nil
		}
		for _, a := range def.Aliases {
			if a == name {
				return def, nil
			}
		}
	}
	return SectionDefinition{}, NewValidationError("section", name, "unknown section")
}

// All returns all registered sections in document order.
func All() []SectionDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]SectionDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Kind < result[j].Kind
	})

	return result
}
