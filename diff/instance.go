package diff

import (
	"github.com/brunoga/confedit/model"
)

// VariableDiff compares an instance variable.
type VariableDiff struct {
	ID             string
	Classification Classification
	Value          Node[string]
	Description    Node[string]
}

// ControlGroupDiff compares a control group of a node.
type ControlGroupDiff struct {
	Name           string
	Classification Classification
	ProcessOrder   Node[[]string]
	StartType      Node[string]
	StartWait      Node[string]
	StopType       Node[string]
}

// NodeDiff compares the configuration of a node.
type NodeDiff struct {
	Name           string
	Classification Classification
	Minion         Node[string]
	Processes      []ProcessDiff
	ControlGroups  []ControlGroupDiff
}

// FileDiff compares an auxiliary configuration file. Contents are compared
// but only sizes are kept for display.
type FileDiff struct {
	Path           string
	Classification Classification
	Size           Node[int]
}

// HeaderDiff compares the descriptive fields of an instance.
type HeaderDiff struct {
	Classification Classification
	Name           Node[string]
	Purpose        Node[string]
	Product        Node[string]
}

// InstanceDiff is the full comparison of two snapshots.
type InstanceDiff struct {
	ID             string
	Classification Classification
	Header         HeaderDiff
	Variables      []VariableDiff
	Nodes          []NodeDiff
	Files          []FileDiff
}

// Process returns the diff of the process with the given id, or nil.
func (d *InstanceDiff) Process(id string) *ProcessDiff {
	for i := range d.Nodes {
		for j := range d.Nodes[i].Processes {
			if d.Nodes[i].Processes[j].ID == id {
				return &d.Nodes[i].Processes[j]
			}
		}
	}
	return nil
}

// Node returns the diff of the node with the given name, or nil.
func (d *InstanceDiff) Node(name string) *NodeDiff {
	for i := range d.Nodes {
		if d.Nodes[i].Name == name {
			return &d.Nodes[i]
		}
	}
	return nil
}

// Instances compares two snapshots. A nil snapshot, or one without a
// document, is absent.
func Instances(base, compare *model.Snapshot, opts ...Option) *InstanceDiff {
	o := newOptions(opts)

	var bd, cd *model.Document
	var bf, cf []model.File
	if base != nil {
		bd, bf = base.Document, base.Files
	}
	if compare != nil {
		cd, cf = compare.Document, compare.Files
	}
	var b, c model.Document
	if bd != nil {
		b = *bd
	}
	if cd != nil {
		c = *cd
	}

	d := &InstanceDiff{
		ID:        b.ID,
		Header:    header(b, c),
		Variables: Variables(b.Variables, c.Variables),
		Nodes:     o.nodes(b.Nodes, c.Nodes),
		Files:     files(bf, cf),
	}
	if d.ID == "" {
		d.ID = c.ID
	}

	children := []Classification{d.Header.Classification}
	children = append(children, classifications(d.Variables, func(v VariableDiff) Classification { return v.Classification })...)
	children = append(children, classifications(d.Nodes, func(n NodeDiff) Classification { return n.Classification })...)
	children = append(children, classifications(d.Files, func(f FileDiff) Classification { return f.Classification })...)
	d.Classification = entity(bd != nil, cd != nil, children...)
	return d
}

// Nodes compares two node lists, matching entries by name.
func Nodes(base, compare []model.Node, opts ...Option) []NodeDiff {
	return newOptions(opts).nodes(base, compare)
}

// Variables compares two variable lists, matching entries by id.
func Variables(base, compare []model.Variable) []VariableDiff {
	var out []VariableDiff
	for _, p := range match(base, compare) {
		var b, c model.Variable
		if p.base != nil {
			b = *p.base
		}
		if p.compare != nil {
			c = *p.compare
		}
		d := VariableDiff{
			ID:          p.key,
			Value:       linked(b.Value, c.Value),
			Description: Field(b.Description, c.Description),
		}
		d.Classification = entity(p.base != nil, p.compare != nil,
			d.Value.Classification,
			d.Description.Classification,
		)
		out = append(out, d)
	}
	return out
}

// ControlGroups compares two control group lists, matching entries by name.
func ControlGroups(base, compare []model.ControlGroup) []ControlGroupDiff {
	var out []ControlGroupDiff
	for _, p := range match(base, compare) {
		var b, c model.ControlGroup
		if p.base != nil {
			b = *p.base
		}
		if p.compare != nil {
			c = *p.compare
		}
		d := ControlGroupDiff{
			Name:         p.key,
			ProcessOrder: Field(b.ProcessOrder, c.ProcessOrder),
			StartType:    Field(b.StartType, c.StartType),
			StartWait:    Field(b.StartWait, c.StartWait),
			StopType:     Field(b.StopType, c.StopType),
		}
		d.Classification = entity(p.base != nil, p.compare != nil,
			d.ProcessOrder.Classification,
			d.StartType.Classification,
			d.StartWait.Classification,
			d.StopType.Classification,
		)
		out = append(out, d)
	}
	return out
}

func (o *options) nodes(base, compare []model.Node) []NodeDiff {
	var out []NodeDiff
	for _, p := range match(base, compare) {
		var b, c model.Node
		if p.base != nil {
			b = *p.base
		}
		if p.compare != nil {
			c = *p.compare
		}
		d := NodeDiff{
			Name:          p.key,
			Minion:        Field(b.Minion, c.Minion),
			Processes:     o.processes(b.Processes, c.Processes),
			ControlGroups: ControlGroups(b.ControlGroups, c.ControlGroups),
		}
		children := []Classification{d.Minion.Classification}
		children = append(children, classifications(d.Processes, func(p ProcessDiff) Classification { return p.Classification })...)
		children = append(children, classifications(d.ControlGroups, func(g ControlGroupDiff) Classification { return g.Classification })...)
		d.Classification = entity(p.base != nil, p.compare != nil, children...)
		out = append(out, d)
	}
	return out
}

func header(b, c model.Document) HeaderDiff {
	d := HeaderDiff{
		Name:    Field(b.Name, c.Name),
		Purpose: Field(b.Purpose, c.Purpose),
		Product: Node[string]{
			Base:           productString(b.Product),
			Compare:        productString(c.Product),
			Classification: Classify(b.Product, c.Product),
		},
	}
	d.Classification = entity(true, true,
		d.Name.Classification,
		d.Purpose.Classification,
		d.Product.Classification,
	)
	return d
}

func files(base, compare []model.File) []FileDiff {
	var out []FileDiff
	for _, p := range match(base, compare) {
		var b, c model.File
		if p.base != nil {
			b = *p.base
		}
		if p.compare != nil {
			c = *p.compare
		}
		d := FileDiff{
			Path: p.key,
			Size: member(p.base != nil, p.compare != nil, len(b.Content), len(c.Content)),
		}
		d.Classification = entity(p.base != nil, p.compare != nil, Classify(b.Content, c.Content))
		out = append(out, d)
	}
	return out
}

func productString(r model.ProductRef) string {
	if r == (model.ProductRef{}) {
		return ""
	}
	return r.Name + ":" + r.Tag
}
