package core

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	type inner struct {
		Name string
		On   bool
	}
	type outer struct {
		ID      string
		Count   int
		Inner   inner
		Ptr     *inner
		List    []inner
		Bytes   []byte
		Attrs   map[string]string
		Skipped string `deep:"-"`
		private string
	}

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"zero struct", outer{}, nil},
		{"empty containers", outer{List: []inner{}, Attrs: map[string]string{}, Ptr: &inner{}}, nil},
		{"ignored and private fields", outer{Skipped: "x", private: "y"}, nil},
		{
			"populated",
			outer{ID: "a", Count: 2, Inner: inner{On: true}, Bytes: []byte("hi"), Attrs: map[string]string{"k": "v", "e": ""}},
			map[string]any{
				"ID":    "a",
				"Count": int64(2),
				"Inner": map[string]any{"On": true},
				"Bytes": "hi",
				"Attrs": map[string]any{"k": "v"},
			},
		},
		{
			"positional slice elements",
			[]inner{{}, {Name: "b"}},
			[]any{nil, map[string]any{"Name": "b"}},
		},
	}

	for _, tt := range tests {
		got := Normalize(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: Normalize() = %#v, want %#v", tt.name, got, tt.want)
		}
	}
}

func TestNormalize_AbsentEqualsEmpty(t *testing.T) {
	type doc struct {
		Tags []string
		Meta map[string]int
		Next *doc
	}

	a := doc{}
	b := doc{Tags: []string{}, Meta: map[string]int{}, Next: &doc{}}
	if !Equal(Normalize(a), Normalize(b)) {
		t.Errorf("absent and empty values normalize differently: %#v vs %#v", Normalize(a), Normalize(b))
	}
}
