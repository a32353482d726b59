// Package model defines the value shape of an editable instance
// configuration and of the snapshots the edit log moves between.
//
// Elements of keyed collections carry a `deep:"key"` tag on their identity
// field; the diff engine and the normalizer use it to match entries.
package model

import "time"

// ClientNode is the name of the synthetic node holding client applications.
const ClientNode = "__ClientApplications"

// Document is the full editable unit of an instance.
type Document struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Purpose   string     `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	Product   ProductRef `json:"product" yaml:"product"`
	Variables []Variable `json:"variables,omitempty" yaml:"variables,omitempty"`
	Nodes     []Node     `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

// ProductRef references the product an instance is based on.
type ProductRef struct {
	Name string `json:"name" yaml:"name"`
	Tag  string `json:"tag" yaml:"tag"`
}

// ApplicationRef references an application descriptor in the catalog.
type ApplicationRef struct {
	Name string `json:"name" yaml:"name"`
	Tag  string `json:"tag" yaml:"tag"`
}

func (r ApplicationRef) String() string {
	return r.Name + ":" + r.Tag
}

// Variable is an instance level variable that parameter values may link to.
type Variable struct {
	ID          string      `json:"id" yaml:"id" deep:"key"`
	Value       LinkedValue `json:"value" yaml:"value"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
}

// Node is the configuration of a single deployment target.
type Node struct {
	Name          string         `json:"name" yaml:"name" deep:"key"`
	Minion        string         `json:"minion,omitempty" yaml:"minion,omitempty"`
	Processes     []Process      `json:"processes,omitempty" yaml:"processes,omitempty"`
	ControlGroups []ControlGroup `json:"controlGroups,omitempty" yaml:"controlGroups,omitempty"`
}

// Process returns the process with the given id, or nil.
func (n *Node) Process(id string) *Process {
	for i := range n.Processes {
		if n.Processes[i].ID == id {
			return &n.Processes[i]
		}
	}
	return nil
}

// ControlGroup returns the control group with the given name, or nil.
func (n *Node) ControlGroup(name string) *ControlGroup {
	for i := range n.ControlGroups {
		if n.ControlGroups[i].Name == name {
			return &n.ControlGroups[i]
		}
	}
	return nil
}

// GroupOf returns the control group holding the process id, or nil.
func (n *Node) GroupOf(processID string) *ControlGroup {
	for i := range n.ControlGroups {
		for _, id := range n.ControlGroups[i].ProcessOrder {
			if id == processID {
				return &n.ControlGroups[i]
			}
		}
	}
	return nil
}

// Sequencing modes of a control group.
const (
	Sequential = "SEQUENTIAL"
	Parallel   = "PARALLEL"
)

// Start wait modes of a control group.
const (
	WaitContinue     = "CONTINUE"
	WaitStarted      = "WAIT"
	WaitUntilStopped = "WAIT_UNTIL_STOPPED"
)

// DefaultControlGroup is the control group new processes are placed in.
const DefaultControlGroup = "Default"

// ControlGroup is a named, ordered subset of a node's processes sharing
// start and stop sequencing rules.
type ControlGroup struct {
	Name         string   `json:"name" yaml:"name" deep:"key"`
	ProcessOrder []string `json:"processOrder,omitempty" yaml:"processOrder,omitempty"`
	StartType    string   `json:"startType,omitempty" yaml:"startType,omitempty"`
	StartWait    string   `json:"startWait,omitempty" yaml:"startWait,omitempty"`
	StopType     string   `json:"stopType,omitempty" yaml:"stopType,omitempty"`
}

// Process start types.
const (
	StartManual        = "MANUAL"
	StartManualConfirm = "MANUAL_CONFIRM"
	StartInstance      = "INSTANCE"
)

// Process is the configuration of a single application on a node.
type Process struct {
	ID          string         `json:"id" yaml:"id" deep:"key"`
	Name        string         `json:"name" yaml:"name"`
	Application ApplicationRef `json:"application" yaml:"application"`
	Start       Command        `json:"start" yaml:"start"`
	Stop        Command        `json:"stop,omitempty" yaml:"stop,omitempty"`
	Control     ProcessControl `json:"control" yaml:"control"`
	Endpoints   []Endpoint     `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
}

// Parameter returns the start parameter with the given id, or nil.
func (p *Process) Parameter(id string) *Parameter {
	for i := range p.Start.Parameters {
		if p.Start.Parameters[i].ID == id {
			return &p.Start.Parameters[i]
		}
	}
	return nil
}

// Command is an executable plus its ordered parameter list.
type Command struct {
	Executable string      `json:"executable,omitempty" yaml:"executable,omitempty"`
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ProcessControl holds the process supervision settings.
type ProcessControl struct {
	StartType   string        `json:"startType,omitempty" yaml:"startType,omitempty"`
	KeepAlive   bool          `json:"keepAlive,omitempty" yaml:"keepAlive,omitempty"`
	NoOfRetries int           `json:"noOfRetries,omitempty" yaml:"noOfRetries,omitempty"`
	GracePeriod time.Duration `json:"gracePeriod,omitempty" yaml:"gracePeriod,omitempty"`
	AttachStdin bool          `json:"attachStdin,omitempty" yaml:"attachStdin,omitempty"`
}

// Parameter is the configured value of a single application parameter.
type Parameter struct {
	ID          string      `json:"id" yaml:"id" deep:"key"`
	Value       LinkedValue `json:"value" yaml:"value"`
	PreRendered []string    `json:"preRendered,omitempty" yaml:"preRendered,omitempty"`
	Pinned      bool        `json:"pinned,omitempty" yaml:"pinned,omitempty"`
}

// LinkedValue is either a literal or a link expression such as
// "{{V:db-host}}:{{P:port}}". An expression takes precedence.
type LinkedValue struct {
	Literal    string `json:"literal,omitempty" yaml:"literal,omitempty"`
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Literal returns a LinkedValue holding the given literal.
func Literal(v string) LinkedValue {
	return LinkedValue{Literal: v}
}

// Expression returns a LinkedValue holding the given link expression.
func Expression(e string) LinkedValue {
	return LinkedValue{Expression: e}
}

// IsLinked reports whether the value is an expression.
func (v LinkedValue) IsLinked() bool {
	return v.Expression != ""
}

// Raw returns the expression if set, the literal otherwise.
func (v LinkedValue) Raw() string {
	if v.Expression != "" {
		return v.Expression
	}
	return v.Literal
}

// Endpoint types.
const (
	EndpointDefault      = "DEFAULT"
	EndpointProbeStartup = "PROBE_STARTUP"
	EndpointProbeAlive   = "PROBE_ALIVE"
)

// Endpoint is an HTTP endpoint declared by a process.
type Endpoint struct {
	ID     string      `json:"id" yaml:"id" deep:"key"`
	Path   string      `json:"path" yaml:"path"`
	Port   LinkedValue `json:"port" yaml:"port"`
	Secure bool        `json:"secure,omitempty" yaml:"secure,omitempty"`
	Type   string      `json:"type,omitempty" yaml:"type,omitempty"`
}

// Node returns the node with the given name, or nil.
func (d *Document) Node(name string) *Node {
	if d == nil {
		return nil
	}
	for i := range d.Nodes {
		if d.Nodes[i].Name == name {
			return &d.Nodes[i]
		}
	}
	return nil
}

// Variable returns the variable with the given id, or nil.
func (d *Document) Variable(id string) *Variable {
	if d == nil {
		return nil
	}
	for i := range d.Variables {
		if d.Variables[i].ID == id {
			return &d.Variables[i]
		}
	}
	return nil
}

// FindProcess returns the process with the given id together with its node.
func (d *Document) FindProcess(id string) (*Node, *Process) {
	if d == nil {
		return nil, nil
	}
	for i := range d.Nodes {
		if p := d.Nodes[i].Process(id); p != nil {
			return &d.Nodes[i], p
		}
	}
	return nil, nil
}
