// Package registry maps language codes to the factories that build their
// grammar packs.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/spokenform/pkg/grammar"
)

// ErrUnsupportedLanguage is returned by [Registry.Build] when no factory has
// been registered for the requested language.
var ErrUnsupportedLanguage = errors.New("registry: unsupported language")

// InputCase tells the grammars what casing to expect from the input.
type InputCase string

const (
	// LowerCased input has been lowercased upstream.
	LowerCased InputCase = "lower_cased"

	// Cased input keeps its original capitalisation.
	Cased InputCase = "cased"
)

// IsValid reports whether c is a recognised input case.
func (c InputCase) IsValid() bool {
	return c == LowerCased || c == Cased
}

// Options are the build-time switches a factory receives.
type Options struct {
	// InputCase selects case handling for whitelist keys.
	InputCase InputCase

	// WhitelistPath optionally names a tab-separated file of extra
	// written/spoken pairs.
	WhitelistPath string
}

// Factory builds the pack set of one language.
type Factory func(Options) (*grammar.PackSet, error)

// Registry holds language factories. All methods are safe for concurrent
// use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New returns an empty, ready-to-use [Registry].
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for lang.
func (r *Registry) Register(lang string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[lang] = f
}

// Build runs the factory registered for lang.
// Returns [ErrUnsupportedLanguage] (wrapped) if none is registered.
func (r *Registry) Build(lang string, opts Options) (*grammar.PackSet, error) {
	r.mu.RLock()
	f, ok := r.factories[lang]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	set, err := f(opts)
	if err != nil {
		return nil, fmt.Errorf("registry: build %q: %w", lang, err)
	}
	return set, nil
}

// Languages returns the registered language codes, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := make([]string, 0, len(r.factories))
	for l := range r.factories {
		langs = append(langs, l)
	}
	slices.Sort(langs)
	return langs
}
