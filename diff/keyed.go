package diff

import (
	"reflect"

	"github.com/brunoga/confedit/internal/core"
)

// pair is one entry of a keyed collection matched across both sides. A nil
// side is absent.
type pair[T any] struct {
	key     string
	base    *T
	compare *T
}

// match pairs the elements of two keyed collections by their `deep:"key"`
// field. Base order is kept; compare-only entries follow in compare order.
func match[T any](base, compare []T) []pair[T] {
	index := make(map[string]int, len(base))
	out := make([]pair[T], 0, len(base))
	for i := range base {
		k := keyOf(&base[i])
		if _, dup := index[k]; dup {
			continue
		}
		index[k] = len(out)
		out = append(out, pair[T]{key: k, base: &base[i]})
	}
	for i := range compare {
		k := keyOf(&compare[i])
		if j, ok := index[k]; ok {
			if out[j].compare == nil {
				out[j].compare = &compare[i]
			}
			continue
		}
		index[k] = len(out)
		out = append(out, pair[T]{key: k, compare: &compare[i]})
	}
	return out
}

func keyOf[T any](v *T) string {
	k, _ := core.KeyOf(reflect.ValueOf(v))
	return k
}

// classifications returns the classification of every element of ds.
func classifications[T any](ds []T, get func(T) Classification) []Classification {
	out := make([]Classification, len(ds))
	for i, d := range ds {
		out[i] = get(d)
	}
	return out
}
