package core

import (
	"reflect"
	"sync"
)

// FieldInfo describes one struct field as seen by copy, normalize and equal.
type FieldInfo struct {
	Index    int
	Name     string
	Exported bool
	Tag      StructTag
}

// Visible reports whether the field takes part in normalization.
func (f FieldInfo) Visible() bool {
	return f.Exported && !f.Tag.Ignore
}

// TypeInfo is the cached field layout of a struct type.
type TypeInfo struct {
	Fields []FieldInfo
	// Visible holds the Visible fields in declaration order.
	Visible []FieldInfo
	// KeyFieldIndex is the index of the deep:"key" field, or -1.
	KeyFieldIndex int
}

var typeCache sync.Map // reflect.Type -> *TypeInfo

// GetTypeInfo returns the field layout of typ. Non-struct types yield an
// empty layout.
func GetTypeInfo(typ reflect.Type) *TypeInfo {
	if cached, ok := typeCache.Load(typ); ok {
		return cached.(*TypeInfo)
	}

	info := &TypeInfo{KeyFieldIndex: -1}
	if typ.Kind() == reflect.Struct {
		for i := range typ.NumField() {
			sf := typ.Field(i)
			fi := FieldInfo{
				Index:    i,
				Name:     sf.Name,
				Exported: sf.IsExported(),
				Tag:      ParseTag(sf),
			}
			info.Fields = append(info.Fields, fi)
			if fi.Visible() {
				info.Visible = append(info.Visible, fi)
			}
			if fi.Tag.Key {
				info.KeyFieldIndex = i
			}
		}
	}

	// Concurrent first lookups race; keep whichever was stored first.
	cached, _ := typeCache.LoadOrStore(typ, info)
	return cached.(*TypeInfo)
}
