package core

import (
	"fmt"
	"reflect"
)

// Copy creates a deep copy of src. Pointer cycles and shared pointers are
// preserved in the copy. Unexported struct fields are left at their zero
// value. Non-nil functions, channels and unsafe pointers are not supported.
func Copy[T any](src T) (T, error) {
	var zero T
	pointers := make(map[uintptr]reflect.Value)
	dst, err := copyValue(reflect.ValueOf(&src).Elem(), pointers)
	if err != nil {
		return zero, err
	}

	// A nil interface copies to the zero value of T.
	res, _ := dst.Interface().(T)
	return res, nil
}

// MustCopy creates a deep copy of src or panics.
func MustCopy[T any](src T) T {
	dst, err := Copy(src)
	if err != nil {
		panic(err)
	}

	return dst
}

func copyValue(v reflect.Value, pointers map[uintptr]reflect.Value) (reflect.Value, error) {
	switch v.Kind() {
	case reflect.Invalid:
		return v, nil
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Int64, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr, reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128, reflect.String:
		// Primitive type, just copy it.
		return v, nil
	case reflect.Array:
		return copyArray(v, pointers)
	case reflect.Map:
		return copyMap(v, pointers)
	case reflect.Pointer:
		return copyPointer(v, pointers)
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type()), nil
		}
		elem, err := copyValue(v.Elem(), pointers)
		if err != nil {
			return reflect.Value{}, err
		}
		dst := reflect.New(v.Type()).Elem()
		dst.Set(elem)
		return dst, nil
	case reflect.Slice:
		return copySlice(v, pointers)
	case reflect.Struct:
		return copyStruct(v, pointers)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if v.IsNil() {
			// If we have a nil function, unsafe pointer or channel, then we
			// can copy it.
			return reflect.Zero(v.Type()), nil
		}
		return reflect.Value{}, fmt.Errorf("unsupported non-nil value for type: %v", v.Type())
	}

	return reflect.Value{}, fmt.Errorf("unsupported type: %v", v.Type())
}

func copyArray(v reflect.Value, pointers map[uintptr]reflect.Value) (reflect.Value, error) {
	dst := reflect.New(v.Type()).Elem()

	for i := 0; i < v.Len(); i++ {
		elem, err := copyValue(v.Index(i), pointers)
		if err != nil {
			return reflect.Value{}, err
		}
		dst.Index(i).Set(elem)
	}

	return dst, nil
}

func copyMap(v reflect.Value, pointers map[uintptr]reflect.Value) (reflect.Value, error) {
	if v.IsNil() {
		return reflect.Zero(v.Type()), nil
	}

	dst := reflect.MakeMapWithSize(v.Type(), v.Len())

	iter := v.MapRange()
	for iter.Next() {
		key, err := copyValue(iter.Key(), pointers)
		if err != nil {
			return reflect.Value{}, err
		}
		elem, err := copyValue(iter.Value(), pointers)
		if err != nil {
			return reflect.Value{}, err
		}
		dst.SetMapIndex(key, elem)
	}

	return dst, nil
}

func copyPointer(v reflect.Value, pointers map[uintptr]reflect.Value) (reflect.Value, error) {
	// If the pointer is nil, just return its zero value.
	if v.IsNil() {
		return reflect.Zero(v.Type()), nil
	}

	// If the pointer was already copied, reuse the copy.
	ptr := v.Pointer()
	if dst, ok := pointers[ptr]; ok && dst.Type() == v.Type() {
		return dst, nil
	}

	// Otherwise, create a new pointer and record it before descending so
	// cycles resolve to it.
	dst := reflect.New(v.Type().Elem())
	pointers[ptr] = dst

	elem, err := copyValue(v.Elem(), pointers)
	if err != nil {
		return reflect.Value{}, err
	}
	dst.Elem().Set(elem)

	return dst, nil
}

func copySlice(v reflect.Value, pointers map[uintptr]reflect.Value) (reflect.Value, error) {
	// Keep nil and empty slices apart.
	if v.IsNil() {
		return reflect.Zero(v.Type()), nil
	}

	dst := reflect.MakeSlice(v.Type(), v.Len(), v.Len())

	for i := 0; i < v.Len(); i++ {
		elem, err := copyValue(v.Index(i), pointers)
		if err != nil {
			return reflect.Value{}, err
		}
		dst.Index(i).Set(elem)
	}

	return dst, nil
}

func copyStruct(v reflect.Value, pointers map[uintptr]reflect.Value) (reflect.Value, error) {
	dst := reflect.New(v.Type()).Elem()

	info := GetTypeInfo(v.Type())
	for _, fInfo := range info.Fields {
		if !fInfo.Exported {
			continue
		}

		elem, err := copyValue(v.Field(fInfo.Index), pointers)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("field %s: %w", fInfo.Name, err)
		}
		if !elem.IsValid() {
			continue
		}
		dst.Field(fInfo.Index).Set(elem)
	}

	return dst, nil
}
