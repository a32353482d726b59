package confedit

import (
	"github.com/brunoga/confedit/internal/core"
)

// Equal performs a deep equality check between a and b. Fields tagged with
// `deep:"-"` are ignored.
func Equal[T any](a, b T) bool {
	return core.Equal(a, b)
}

// Normalize converts v into a generic tree of maps, slices and scalars with
// nil, zero and empty values stripped, so that an absent value and an
// explicitly empty one compare as equal. It returns nil when nothing is
// left.
func Normalize(v any) any {
	return core.Normalize(v)
}

// HasChanges reports whether a and b differ once normalized. It is false
// when either side is absent.
func HasChanges(a, b any) bool {
	if isAbsent(a) || isAbsent(b) {
		return false
	}
	return !core.Equal(core.Normalize(a), core.Normalize(b))
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	return core.IsNil(v)
}
