package confedit

import (
	"testing"

	"github.com/brunoga/confedit/model"
)

func TestHasChanges(t *testing.T) {
	base := testSnapshot()

	emptied := testSnapshot()
	emptied.Document.Purpose = ""
	emptied.Document.Nodes[0].Processes[0].Endpoints = []model.Endpoint{}
	emptied.Document.Nodes[0].Processes[0].Stop = model.Command{Parameters: []model.Parameter{}}

	edited := testSnapshot()
	edited.Document.Nodes[0].Processes[0].Start.Parameters[0].Value = model.Literal("9090")

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"identical", base, testSnapshot(), false},
		{"empty containers", base, emptied, false},
		{"edited", base, edited, true},
		{"nil side", base, nil, false},
		{"typed nil side", (*model.Snapshot)(nil), base, false},
		{"sub-entity", &base.Document.Nodes[0].Processes[0], &edited.Document.Nodes[0].Processes[0], true},
	}

	for _, tt := range tests {
		if got := HasChanges(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: HasChanges() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal(testSnapshot(), testSnapshot()) {
		t.Error("identical snapshots are not equal")
	}

	a := testSnapshot()
	b := testSnapshot()
	b.Document.Nodes[0].Processes[0].Stop.Parameters = []model.Parameter{}
	if Equal(a, b) {
		t.Error("Equal should see nil versus empty slices")
	}
	if HasChanges(a, b) {
		t.Error("HasChanges should not see nil versus empty slices")
	}
}

func TestNormalize_Nil(t *testing.T) {
	if got := Normalize(&model.Document{}); got != nil {
		t.Errorf("Normalize(empty document) = %#v, want nil", got)
	}
}
