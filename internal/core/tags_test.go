package core

import (
	"reflect"
	"testing"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		tag      string
		expected StructTag
	}{
		{`deep:"-"`, StructTag{Ignore: true}},
		{`deep:"key"`, StructTag{Key: true}},
		{`deep:"key, -"`, StructTag{Key: true, Ignore: true}},
		{`deep:"-" json:"foo"`, StructTag{Ignore: true}},
		{`json:"foo"`, StructTag{}},
		{`deep:"unknown"`, StructTag{}},
	}

	for _, tt := range tests {
		field := reflect.StructField{Tag: reflect.StructTag(tt.tag)}
		got := ParseTag(field)
		if got != tt.expected {
			t.Errorf("ParseTag(%s) = %+v, want %+v", tt.tag, got, tt.expected)
		}
	}
}

func TestGetKeyField(t *testing.T) {
	type NoKey struct {
		A int
	}
	type WithKey struct {
		ID   string `deep:"key"`
		Name string
	}
	type WithKeyInt struct {
		Name string
		ID   int `deep:"key"`
	}

	// No key
	idx, ok := GetKeyField(reflect.TypeOf(NoKey{}))
	if ok {
		t.Errorf("Expected no key for NoKey, got index %d", idx)
	}

	// With key string
	idx, ok = GetKeyField(reflect.TypeOf(WithKey{}))
	if !ok || idx != 0 {
		t.Errorf("Expected key at index 0 for WithKey, got %d, %v", idx, ok)
	}

	// With key int, through a pointer type
	idx, ok = GetKeyField(reflect.TypeOf(&WithKeyInt{}))
	if !ok || idx != 1 {
		t.Errorf("Expected key at index 1 for *WithKeyInt, got %d, %v", idx, ok)
	}
}

func TestKeyOf(t *testing.T) {
	type WithKey struct {
		ID string `deep:"key"`
	}
	type WithKeyInt struct {
		ID int `deep:"key"`
	}

	tests := []struct {
		name   string
		v      any
		want   string
		wantOK bool
	}{
		{"string key", WithKey{ID: "p1"}, "p1", true},
		{"pointer", &WithKey{ID: "p2"}, "p2", true},
		{"int key", WithKeyInt{ID: 7}, "7", true},
		{"nil pointer", (*WithKey)(nil), "", false},
		{"no key", struct{ A int }{1}, "", false},
	}

	for _, tt := range tests {
		got, ok := KeyOf(reflect.ValueOf(tt.v))
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("%s: KeyOf() = %q, %v, want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}
