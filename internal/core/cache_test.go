package core

import (
	"reflect"
	"testing"
)

func TestGetTypeInfo(t *testing.T) {
	type S struct {
		A int
		B string `deep:"-"`
		c bool
	}

	info := GetTypeInfo(reflect.TypeOf(S{}))
	if len(info.Fields) != 3 {
		t.Errorf("Expected 3 fields, got %d", len(info.Fields))
	}

	if info.Fields[0].Name != "A" || info.Fields[0].Tag.Ignore || !info.Fields[0].Exported {
		t.Errorf("Field A incorrect: %+v", info.Fields[0])
	}

	if info.Fields[1].Name != "B" || !info.Fields[1].Tag.Ignore {
		t.Errorf("Field B incorrect: %+v", info.Fields[1])
	}

	if info.Fields[2].Exported {
		t.Errorf("Field c reported as exported: %+v", info.Fields[2])
	}

	if len(info.Visible) != 1 || info.Visible[0].Name != "A" {
		t.Errorf("Visible = %+v, want only A", info.Visible)
	}

	if info.KeyFieldIndex != -1 {
		t.Errorf("KeyFieldIndex = %d, want -1", info.KeyFieldIndex)
	}

	// Cache hit check (implicit)
	info2 := GetTypeInfo(reflect.TypeOf(S{}))
	if info != info2 {
		t.Errorf("Expected same info pointer for same type (cache hit)")
	}
}
