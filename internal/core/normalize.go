package core

import (
	"fmt"
	"reflect"
)

// Normalize converts v into a generic tree made of map[string]any, []any and
// scalar values (bool, int64, uint64, float64, complex128, string). Zero
// scalars, nil pointers and interfaces, fields tagged with `deep:"-"`,
// unexported fields and containers that end up empty are dropped, so an
// absent value and an explicitly empty one normalize to the same tree.
//
// Slice elements keep their position; an element that normalizes to nothing
// stays in place as nil. Byte slices become strings. Normalize returns nil
// if nothing remains.
func Normalize(v any) any {
	return normalizeValue(reflect.ValueOf(v))
}

func normalizeValue(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Bool:
		if !v.Bool() {
			return nil
		}
		return true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Int() == 0 {
			return nil
		}
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if v.Uint() == 0 {
			return nil
		}
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		if v.Float() == 0 {
			return nil
		}
		return v.Float()
	case reflect.Complex64, reflect.Complex128:
		if v.Complex() == 0 {
			return nil
		}
		return v.Complex()
	case reflect.String:
		if v.Len() == 0 {
			return nil
		}
		return v.String()
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return normalizeValue(v.Elem())
	case reflect.Struct:
		return normalizeStruct(v)
	case reflect.Slice, reflect.Array:
		return normalizeList(v)
	case reflect.Map:
		return normalizeMap(v)
	}

	// Functions, channels and unsafe pointers carry no configuration.
	return nil
}

func normalizeStruct(v reflect.Value) any {
	info := GetTypeInfo(v.Type())
	out := make(map[string]any, len(info.Visible))
	for _, fInfo := range info.Visible {
		if nv := normalizeValue(v.Field(fInfo.Index)); nv != nil {
			out[fInfo.Name] = nv
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeList(v reflect.Value) any {
	if v.Len() == 0 {
		return nil
	}

	if v.Type().Elem().Kind() == reflect.Uint8 {
		b := make([]byte, v.Len())
		reflect.Copy(reflect.ValueOf(b), v)
		return string(b)
	}

	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = normalizeValue(v.Index(i))
	}
	return out
}

func normalizeMap(v reflect.Value) any {
	if v.Len() == 0 {
		return nil
	}

	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		if nv := normalizeValue(iter.Value()); nv != nil {
			out[fmtKey(iter.Key().Interface())] = nv
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func fmtKey(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", k)
}

// IsNil reports whether v is nil or a nil pointer, map, slice or interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
