package validate

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/brunoga/confedit/catalog"
	"github.com/brunoga/confedit/model"
)

var serverRef = model.ApplicationRef{Name: "server", Tag: "1.0"}

func testCatalog() *catalog.Catalog {
	return catalog.New(catalog.Application{
		Name: "server",
		Tag:  "1.0",
		Parameters: []catalog.ParameterDescriptor{
			{ID: "port", Parameter: "--port", Type: catalog.TypeServerPort},
			{ID: "threads", Parameter: "--threads", Type: catalog.TypeNumeric},
			{ID: "debug", Parameter: "--debug", Type: catalog.TypeBoolean},
			{ID: "password", Parameter: "--password", Type: catalog.TypePassword, Mandatory: true},
		},
	})
}

func server(id string, params ...model.Parameter) model.Process {
	return model.Process{
		ID:          id,
		Name:        "server-" + id,
		Application: serverRef,
		Start:       model.Command{Parameters: append([]model.Parameter{{ID: "password", Value: model.Literal("x")}}, params...)},
	}
}

func param(id, value string) model.Parameter {
	return model.Parameter{ID: id, Value: model.Literal(value)}
}

func node(name string, groups []model.ControlGroup, procs ...model.Process) model.Node {
	return model.Node{Name: name, Processes: procs, ControlGroups: groups}
}

func group(name string, ids ...string) model.ControlGroup {
	return model.ControlGroup{Name: name, ProcessOrder: ids}
}

func TestRules(t *testing.T) {
	cat := testCatalog()

	tests := []struct {
		name string
		rule Rule
		doc  *model.Document
		want []model.ValidationIssue
	}{
		{
			name: "unknown application",
			rule: KnownApplications,
			doc: &model.Document{Nodes: []model.Node{node("N1", nil,
				model.Process{ID: "P1", Name: "ghost", Application: model.ApplicationRef{Name: "ghost", Tag: "1"}})}},
			want: []model.ValidationIssue{errorf("P1", "", "process ghost uses unknown application ghost:1")},
		},
		{
			name: "missing mandatory parameter",
			rule: MandatoryParameters,
			doc: &model.Document{Nodes: []model.Node{node("N1", nil,
				model.Process{ID: "P1", Name: "srv", Application: serverRef})}},
			want: []model.ValidationIssue{errorf("P1", "password", "mandatory parameter password of srv is not set")},
		},
		{
			name: "parameter types",
			rule: ParameterTypes,
			doc: &model.Document{Nodes: []model.Node{node("N1", nil,
				server("P1", param("port", "99999"), param("threads", "four"), param("debug", "yes"),
					model.Parameter{ID: "threads", Value: model.Expression("{{V:threads}}")}))}},
			want: []model.ValidationIssue{
				errorf("P1", "port", "%q is not a valid port", "99999"),
				errorf("P1", "threads", "%q is not a number", "four"),
				errorf("P1", "debug", "%q is not a boolean", "yes"),
			},
		},
		{
			name: "duplicate process ids",
			rule: UniqueProcessIDs,
			doc: &model.Document{Nodes: []model.Node{
				node("N1", nil, server("P1")),
				node("N2", nil, server("P1")),
			}},
			want: []model.ValidationIssue{errorf("P1", "", "process id P1 is used more than once (node N2)")},
		},
		{
			name: "control group membership",
			rule: ControlGroupMembership,
			doc: &model.Document{Nodes: []model.Node{node("N1",
				[]model.ControlGroup{group("A", "P1", "PX"), group("B", "P1")},
				server("P1"), server("P2"))}},
			want: []model.ValidationIssue{
				errorf("PX", "", "control group A of node N1 references unknown process PX"),
				errorf("P1", "", "process P1 is in control groups A and B"),
				warnf("P2", "", "process server-P2 is not in any control group of node N1"),
			},
		},
		{
			name: "port conflicts per node",
			rule: PortConflicts,
			doc: &model.Document{
				Variables: []model.Variable{{ID: "port", Value: model.Literal("8080")}},
				Nodes: []model.Node{
					node("N1", nil,
						server("P1", param("port", "8080")),
						server("P2", model.Parameter{ID: "port", Value: model.Expression("{{V:port}}")})),
					node("N2", nil, server("P3", param("port", "8080"))),
				},
			},
			want: []model.ValidationIssue{errorf("P2", "port", "port 8080 on node N1 is already used by server-P1/port")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rule(tt.doc, cat)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("issues mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidator(t *testing.T) {
	doc := &model.Document{Nodes: []model.Node{node("N1",
		[]model.ControlGroup{group(model.DefaultControlGroup, "P1")},
		server("P1", param("port", "8080")))}}

	v := New(testCatalog())
	if issues := v.Validate(doc); len(issues) != 0 {
		t.Errorf("valid document: got %v", issues)
	}

	doc.Nodes[0].Processes[0].Start.Parameters[0].Value = model.Literal("")
	issues := v.Validate(doc)
	if !HasErrors(issues) {
		t.Errorf("expected errors, got %v", issues)
	}

	if got := New(nil).Validate(doc); len(got) != 0 {
		t.Errorf("catalog-free rules: got %v", got)
	}
	if got := v.Validate(nil); got != nil {
		t.Errorf("nil document: got %v", got)
	}
}
