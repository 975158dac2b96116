// Package lang wires the built-in language packs into a registry.
package lang

import (
	"github.com/MrWong99/spokenform/internal/lang/en"
	"github.com/MrWong99/spokenform/internal/registry"
)

// Registry returns a registry holding every built-in language.
func Registry() *registry.Registry {
	r := registry.New()
	en.Register(r)
	return r
}
