package command

import (
	"fmt"
	"strings"
)

// Registry maps sub-command names and aliases to definitions.
type Registry struct {
	ordered []*Subcommand
	byName  map[string]*Subcommand // canonical name or alias → sub-command
}

// NewRegistry creates a Registry populated with the given sub-commands.
//
// Precondition: No two sub-commands may share a name or alias.
// Postcondition: Returns a Registry or an error on name/alias collisions.
func NewRegistry(subs []Subcommand) (*Registry, error) {
	r := &Registry{
		ordered: make([]*Subcommand, 0, len(subs)),
		byName:  make(map[string]*Subcommand, len(subs)),
	}

	for i := range subs {
		sub := &subs[i]
		if sub.Name == "" {
			return nil, fmt.Errorf("sub-command %d has no name", i)
		}
		for _, name := range append([]string{sub.Name}, sub.Aliases...) {
			if existing, exists := r.byName[name]; exists {
				return nil, fmt.Errorf("duplicate sub-command name %q: used by %q and %q", name, existing.Name, sub.Name)
			}
			r.byName[name] = sub
		}
		r.ordered = append(r.ordered, sub)
	}
	return r, nil
}

// DefaultRegistry creates a Registry with the built-in sub-commands.
//
// Postcondition: Returns a Registry with all built-in sub-commands registered.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinSubcommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a sub-command by name or alias. Matching is
// case-insensitive.
//
// Postcondition: Returns (sub-command, true) if found, or (nil, false).
func (r *Registry) Resolve(name string) (*Subcommand, bool) {
	sub, ok := r.byName[strings.ToLower(name)]
	return sub, ok
}

// Subcommands returns the registered sub-commands in registration order.
func (r *Registry) Subcommands() []*Subcommand {
	out := make([]*Subcommand, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Usage renders one help line per sub-command.
func (r *Registry) Usage() string {
	lines := make([]string, 0, len(r.ordered))
	for _, sub := range r.ordered {
		lines = append(lines, sub.Usage)
	}
	return strings.Join(lines, "\n")
}
