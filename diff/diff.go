// Package diff compares two configuration snapshots, or two sub-entities of
// them, and explains how they differ.
//
// Every compared value is wrapped in a Node carrying both sides and a
// Classification. Entities are composed of nodes and collections of child
// entities; the classification of an entity is derived from the presence
// of both sides and from the classifications of its children.
//
// Diffing is not symmetric: swapping base and compare turns NotInBase into
// NotInCompare and vice versa.
package diff

import (
	"reflect"

	"github.com/brunoga/confedit"
	"github.com/brunoga/confedit/catalog"
	"github.com/brunoga/confedit/model"
)

// Classification describes how a value differs between base and compare.
type Classification string

const (
	// Unchanged means both sides are equal or both are absent.
	Unchanged Classification = "UNCHANGED"
	// Changed means both sides are present and differ.
	Changed Classification = "CHANGED"
	// NotInBase means the value is present in compare only.
	NotInBase Classification = "NOT_IN_BASE"
	// NotInCompare means the value is present in base only.
	NotInCompare Classification = "NOT_IN_COMPARE"
)

// Classify compares two values. A value is absent when it normalizes to
// nil, so empty strings, empty containers and nil pointers count as
// absent. Booleans and numbers are always present: two of the same type
// are either Unchanged or Changed, whatever their value.
func Classify(base, compare any) Classification {
	if scalars(base, compare) {
		if base == compare {
			return Unchanged
		}
		return Changed
	}

	b, c := confedit.Normalize(base), confedit.Normalize(compare)
	switch {
	case b == nil && c == nil:
		return Unchanged
	case b == nil:
		return NotInBase
	case c == nil:
		return NotInCompare
	case confedit.Equal(b, c):
		return Unchanged
	default:
		return Changed
	}
}

// scalars reports whether base and compare are booleans or numbers of the
// same type.
func scalars(base, compare any) bool {
	if base == nil || compare == nil {
		return false
	}
	t := reflect.TypeOf(base)
	if t != reflect.TypeOf(compare) {
		return false
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Node is a single compared value.
type Node[T any] struct {
	Base           T
	Compare        T
	Classification Classification
}

// Field compares a field of two present entities into a Node.
func Field[T any](base, compare T) Node[T] {
	return Node[T]{Base: base, Compare: compare, Classification: Classify(base, compare)}
}

// member compares a field of two entities of which either may be absent.
// A field of an absent entity is absent itself, so a false or 0 field of an
// added entity is Unchanged rather than NotInBase.
func member[T any](inBase, inCompare bool, base, compare T) Node[T] {
	n := Field(base, compare)
	switch {
	case inBase && inCompare:
	case inCompare:
		n.Classification = presence(compare, NotInBase)
	case inBase:
		n.Classification = presence(base, NotInCompare)
	default:
		n.Classification = Unchanged
	}
	return n
}

// presence returns c when v is present and Unchanged otherwise.
func presence(v any, c Classification) Classification {
	if confedit.Normalize(v) == nil {
		return Unchanged
	}
	return c
}

// Value returns the side to display: base for values that were removed,
// compare otherwise.
func (n Node[T]) Value() T {
	if n.Classification == NotInCompare {
		return n.Base
	}
	return n.Compare
}

// entity derives the classification of an entity from the presence of its
// two sides and the classifications of its children.
func entity(inBase, inCompare bool, children ...Classification) Classification {
	switch {
	case inBase && !inCompare:
		return NotInCompare
	case !inBase && inCompare:
		return NotInBase
	}
	for _, c := range children {
		if c != Unchanged {
			return Changed
		}
	}
	return Unchanged
}

// TypeResolver reports the declared type of an application parameter.
// catalog.Catalog implements it.
type TypeResolver interface {
	ParameterType(app model.ApplicationRef, paramID string) string
}

// Option configures a comparison.
type Option func(*options)

type options struct {
	types     TypeResolver
	sensitive map[string]bool
}

// WithTypeResolver resolves parameter types through r. Parameters of a
// sensitive type are masked.
func WithTypeResolver(r TypeResolver) Option {
	return func(o *options) {
		o.types = r
	}
}

// WithSensitiveTypes replaces the set of parameter types whose values are
// masked. The default is catalog.TypePassword.
func WithSensitiveTypes(types ...string) Option {
	return func(o *options) {
		o.sensitive = make(map[string]bool, len(types))
		for _, t := range types {
			o.sensitive[t] = true
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{sensitive: map[string]bool{catalog.TypePassword: true}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) isSensitive(app model.ApplicationRef, paramID string) bool {
	if o.types == nil {
		return false
	}
	return o.sensitive[o.types.ParameterType(app, paramID)]
}
