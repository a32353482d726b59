package core

import (
	"reflect"
	"strings"
)

// StructTag is the parsed form of a `deep:"..."` struct tag.
type StructTag struct {
	Ignore bool
	Key    bool
}

// ParseTag parses the deep tag of a struct field. Recognized options are
// "-" (field is skipped by Normalize and Equal) and "key" (field identifies
// an element of a keyed collection).
func ParseTag(field reflect.StructField) StructTag {
	tag := field.Tag.Get("deep")
	if tag == "" {
		return StructTag{}
	}

	st := StructTag{}
	parts := strings.Split(tag, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "-":
			st.Ignore = true
		case "key":
			st.Key = true
		}
	}

	return st
}

// GetKeyField returns the index of the field tagged as key in typ (or in
// the struct typ points to).
func GetKeyField(typ reflect.Type) (int, bool) {
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return -1, false
	}

	info := GetTypeInfo(typ)
	if info.KeyFieldIndex != -1 {
		return info.KeyFieldIndex, true
	}

	return -1, false
}

// KeyOf returns the key of a keyed struct value as a string. The second
// result is false if v has no key field.
func KeyOf(v reflect.Value) (string, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	idx, ok := GetKeyField(v.Type())
	if !ok {
		return "", false
	}
	f := v.Field(idx)
	if f.Kind() == reflect.String {
		return f.String(), true
	}
	if !f.CanInterface() {
		return "", false
	}
	return fmtKey(f.Interface()), true
}
