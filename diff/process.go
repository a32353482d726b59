package diff

import (
	"time"

	"github.com/brunoga/confedit/model"
)

// CommandDiff compares the start or stop command of a process.
type CommandDiff struct {
	Classification Classification
	Executable     Node[string]
	Parameters     []ParameterDiff
}

// EndpointDiff compares an HTTP endpoint of a process.
type EndpointDiff struct {
	ID             string
	Classification Classification
	Path           Node[string]
	Port           Node[string]
	Secure         Node[bool]
	Type           Node[string]
}

// ProcessDiff compares a process.
type ProcessDiff struct {
	ID             string
	Classification Classification
	Name           Node[string]
	Application    Node[string]
	Start          CommandDiff
	Stop           CommandDiff
	StartType      Node[string]
	KeepAlive      Node[bool]
	NoOfRetries    Node[int]
	GracePeriod    Node[time.Duration]
	AttachStdin    Node[bool]
	Endpoints      []EndpointDiff
}

// Process compares two processes. A nil side is absent.
func Process(base, compare *model.Process, opts ...Option) ProcessDiff {
	return newOptions(opts).process(base, compare)
}

// Processes compares two process lists, matching entries by id.
func Processes(base, compare []model.Process, opts ...Option) []ProcessDiff {
	return newOptions(opts).processes(base, compare)
}

// Endpoints compares two endpoint lists, matching entries by id.
func Endpoints(base, compare []model.Endpoint) []EndpointDiff {
	var out []EndpointDiff
	for _, p := range match(base, compare) {
		out = append(out, endpoint(p.base, p.compare))
	}
	return out
}

func (o *options) processes(base, compare []model.Process) []ProcessDiff {
	var out []ProcessDiff
	for _, p := range match(base, compare) {
		out = append(out, o.process(p.base, p.compare))
	}
	return out
}

func (o *options) process(base, compare *model.Process) ProcessDiff {
	var b, c model.Process
	if base != nil {
		b = *base
	}
	if compare != nil {
		c = *compare
	}

	// Parameter types are looked up on the application being displayed.
	app := c.Application
	if compare == nil {
		app = b.Application
	}

	d := ProcessDiff{
		ID:   b.ID,
		Name: Field(b.Name, c.Name),
		Application: Node[string]{
			Base:           refString(b.Application),
			Compare:        refString(c.Application),
			Classification: Classify(b.Application, c.Application),
		},
		Start:       o.command(app, b.Start, c.Start),
		Stop:        o.command(app, b.Stop, c.Stop),
		StartType:   Field(b.Control.StartType, c.Control.StartType),
		KeepAlive:   member(base != nil, compare != nil, b.Control.KeepAlive, c.Control.KeepAlive),
		NoOfRetries: member(base != nil, compare != nil, b.Control.NoOfRetries, c.Control.NoOfRetries),
		GracePeriod: member(base != nil, compare != nil, b.Control.GracePeriod, c.Control.GracePeriod),
		AttachStdin: member(base != nil, compare != nil, b.Control.AttachStdin, c.Control.AttachStdin),
		Endpoints:   Endpoints(b.Endpoints, c.Endpoints),
	}
	if d.ID == "" {
		d.ID = c.ID
	}

	children := []Classification{
		d.Name.Classification,
		d.Application.Classification,
		d.Start.Classification,
		d.Stop.Classification,
		d.StartType.Classification,
		d.KeepAlive.Classification,
		d.NoOfRetries.Classification,
		d.GracePeriod.Classification,
		d.AttachStdin.Classification,
	}
	children = append(children, classifications(d.Endpoints, func(e EndpointDiff) Classification { return e.Classification })...)
	d.Classification = entity(base != nil, compare != nil, children...)
	return d
}

func (o *options) command(app model.ApplicationRef, base, compare model.Command) CommandDiff {
	d := CommandDiff{
		Executable: Field(base.Executable, compare.Executable),
		Parameters: o.parameters(app, base.Parameters, compare.Parameters),
	}
	children := append(
		[]Classification{d.Executable.Classification},
		classifications(d.Parameters, func(p ParameterDiff) Classification { return p.Classification })...,
	)
	d.Classification = entity(true, true, children...)
	return d
}

func endpoint(base, compare *model.Endpoint) EndpointDiff {
	var b, c model.Endpoint
	if base != nil {
		b = *base
	}
	if compare != nil {
		c = *compare
	}
	d := EndpointDiff{
		ID:     b.ID,
		Path:   Field(b.Path, c.Path),
		Port:   linked(b.Port, c.Port),
		Secure: member(base != nil, compare != nil, b.Secure, c.Secure),
		Type:   Field(b.Type, c.Type),
	}
	if d.ID == "" {
		d.ID = c.ID
	}
	d.Classification = entity(base != nil, compare != nil,
		d.Path.Classification,
		d.Port.Classification,
		d.Secure.Classification,
		d.Type.Classification,
	)
	return d
}

func refString(r model.ApplicationRef) string {
	if r == (model.ApplicationRef{}) {
		return ""
	}
	return r.String()
}
