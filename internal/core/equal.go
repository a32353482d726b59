package core

import (
	"reflect"
	"sync"
)

type VisitKey struct {
	A, B uintptr
	Typ  reflect.Type
}

var visitedPool = sync.Pool{
	New: func() any {
		return make(map[VisitKey]bool)
	},
}

// Equal performs a deep equality check between a and b. Fields tagged with
// `deep:"-"` are skipped.
func Equal[T any](a, b T) bool {
	va := reflect.ValueOf(&a).Elem()
	vb := reflect.ValueOf(&b).Elem()
	return ValueEqual(va, vb)
}

// ValueEqual performs a deep equality check between two reflect.Values.
func ValueEqual(a, b reflect.Value) bool {
	visited := visitedPool.Get().(map[VisitKey]bool)
	defer func() {
		for k := range visited {
			delete(visited, k)
		}
		visitedPool.Put(visited)
	}()

	return equalRecursive(a, b, visited)
}

func equalRecursive(a, b reflect.Value, visited map[VisitKey]bool) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}

	if a.Type() != b.Type() {
		return false
	}

	kind := a.Kind()

	switch kind {
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() == b.Uint()
	case reflect.Float32, reflect.Float64:
		return a.Float() == b.Float()
	case reflect.Complex64, reflect.Complex128:
		return a.Complex() == b.Complex()
	case reflect.String:
		return a.String() == b.String()
	}

	if kind == reflect.Pointer || kind == reflect.Slice || kind == reflect.Map {
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		ptrA := a.Pointer()
		ptrB := b.Pointer()
		if ptrA == ptrB && (kind != reflect.Slice || a.Len() == b.Len()) {
			return true
		}

		k := VisitKey{ptrA, ptrB, a.Type()}
		if visited[k] {
			return true
		}
		visited[k] = true
	}

	switch kind {
	case reflect.Pointer, reflect.Interface:
		return equalRecursive(a.Elem(), b.Elem(), visited)

	case reflect.Struct:
		info := GetTypeInfo(a.Type())
		for _, fInfo := range info.Fields {
			if fInfo.Tag.Ignore {
				continue
			}
			if !equalRecursive(a.Field(fInfo.Index), b.Field(fInfo.Index), visited) {
				return false
			}
		}
		return true

	case reflect.Slice, reflect.Array:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !equalRecursive(a.Index(i), b.Index(i), visited) {
				return false
			}
		}
		return true

	case reflect.Map:
		if a.Len() != b.Len() {
			return false
		}
		iter := a.MapRange()
		for iter.Next() {
			valB := b.MapIndex(iter.Key())
			if !valB.IsValid() {
				return false
			}
			if !equalRecursive(iter.Value(), valB, visited) {
				return false
			}
		}
		return true

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()

	default:
		if a.CanInterface() && b.CanInterface() {
			return reflect.DeepEqual(a.Interface(), b.Interface())
		}
		return false
	}
}
