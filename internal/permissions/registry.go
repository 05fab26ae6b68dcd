package permissions

import (
	"fmt"
	"sort"
)

// Registry aggregates every permission descriptor declared across the domain
// packages into one lookup keyed by permission key. It is built once at
// process start and read-only afterwards, so lookups need no synchronization.
type Registry struct {
	descriptors map[string]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]Descriptor)}
}

// Register adds a descriptor. Keys must be globally unique across all domain
// packages; a duplicate is a configuration error and fatal at startup.
func (r *Registry) Register(d Descriptor) error {
	if d.Key == "" {
		return fmt.Errorf("permission descriptor with empty key")
	}
	if _, exists := r.descriptors[d.Key]; exists {
		return fmt.Errorf("permission %q registered twice", d.Key)
	}
	if d.Validate == nil {
		return fmt.Errorf("permission %q has no value validator", d.Key)
	}
	r.descriptors[d.Key] = d
	return nil
}

// MustRegistry builds a registry from descriptor lists, one list per domain
// package. It panics on duplicates, which makes misconfiguration fail the
// process before it serves anything.
func MustRegistry(lists ...[]Descriptor) *Registry {
	r := NewRegistry()
	for _, list := range lists {
		for _, d := range list {
			if err := r.Register(d); err != nil {
				panic(err)
			}
		}
	}
	return r
}

func (r *Registry) Lookup(key string) (Descriptor, bool) {
	d, ok := r.descriptors[key]
	return d, ok
}

func (r *Registry) DefaultValue(key string) (any, bool) {
	d, ok := r.descriptors[key]
	if !ok {
		return nil, false
	}
	return d.DefaultValue, true
}

// ValidateValue reports whether value has a valid type for the permission.
// Unknown keys never validate.
func (r *Registry) ValidateValue(key string, value any) bool {
	d, ok := r.descriptors[key]
	if !ok {
		return false
	}
	return d.Validate(value)
}

// All returns a copy of every registered descriptor, sorted by key. The
// registry itself stays untouched, so the snapshot is safe to hand out.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
