package confedit

import (
	"fmt"

	"github.com/barkimedes/go-deepcopy"
	"github.com/huandu/go-clone"
	"github.com/mitchellh/copystructure"

	"github.com/brunoga/confedit/internal/core"
)

// CloneStrategy selects the deep copy implementation used by Clone.
type CloneStrategy string

const (
	// StrategyReflect uses the built-in reflective copier. It preserves
	// nil versus empty slices and pointer cycles.
	StrategyReflect CloneStrategy = "reflect"
	// StrategyGoClone uses github.com/huandu/go-clone.
	StrategyGoClone CloneStrategy = "go-clone"
	// StrategyCopyStructure uses github.com/mitchellh/copystructure. It does
	// not support cyclic references.
	StrategyCopyStructure CloneStrategy = "copystructure"
	// StrategyDeepCopy uses github.com/barkimedes/go-deepcopy.
	StrategyDeepCopy CloneStrategy = "deepcopy"
)

// ParseCloneStrategy validates s as a CloneStrategy. An empty string selects
// StrategyReflect.
func ParseCloneStrategy(s string) (CloneStrategy, error) {
	switch CloneStrategy(s) {
	case "":
		return StrategyReflect, nil
	case StrategyReflect, StrategyGoClone, StrategyCopyStructure, StrategyDeepCopy:
		return CloneStrategy(s), nil
	}
	return "", fmt.Errorf("unknown clone strategy %q", s)
}

// CloneOption configures Clone.
type CloneOption interface {
	applyClone(*cloneConfig)
}

type cloneConfig struct {
	strategy CloneStrategy
}

type cloneOptionFunc func(*cloneConfig)

func (f cloneOptionFunc) applyClone(c *cloneConfig) {
	f(c)
}

// WithStrategy returns an option selecting the copy implementation.
func WithStrategy(s CloneStrategy) CloneOption {
	return cloneOptionFunc(func(c *cloneConfig) {
		c.strategy = s
	})
}

// Clone creates a deep copy of src that shares no mutable state with it.
func Clone[T any](src T, opts ...CloneOption) (T, error) {
	config := &cloneConfig{strategy: StrategyReflect}
	for _, opt := range opts {
		opt.applyClone(config)
	}

	var zero T
	switch config.strategy {
	case StrategyReflect, "":
		return core.Copy(src)
	case StrategyGoClone:
		dst, _ := any(clone.Clone(src)).(T)
		return dst, nil
	case StrategyCopyStructure:
		dst, err := copystructure.Copy(src)
		if err != nil {
			return zero, fmt.Errorf("copystructure: %w", err)
		}
		res, _ := dst.(T)
		return res, nil
	case StrategyDeepCopy:
		dst, err := deepcopy.Anything(src)
		if err != nil {
			return zero, fmt.Errorf("deepcopy: %w", err)
		}
		res, _ := dst.(T)
		return res, nil
	}

	return zero, fmt.Errorf("unknown clone strategy %q", config.strategy)
}

// MustClone creates a deep copy of src or panics.
func MustClone[T any](src T, opts ...CloneOption) T {
	dst, err := Clone(src, opts...)
	if err != nil {
		panic(err)
	}

	return dst
}

// Cloner returns a function cloning values of type T with the given
// options. It is the form the edit log accepts.
func Cloner[T any](opts ...CloneOption) func(T) (T, error) {
	return func(src T) (T, error) {
		return Clone(src, opts...)
	}
}
