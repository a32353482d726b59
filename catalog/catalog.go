// Package catalog holds the application descriptors an instance
// configuration refers to. Descriptors define the parameters an
// application accepts, their types and defaults, and how each parameter is
// rendered onto the command line.
package catalog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brunoga/confedit/model"
)

// ErrUnknownApplication is returned for references missing from the catalog.
var ErrUnknownApplication = fmt.Errorf("unknown application")

// Parameter types.
const (
	TypeString     = "STRING"
	TypeNumeric    = "NUMERIC"
	TypeBoolean    = "BOOLEAN"
	TypePassword   = "PASSWORD"
	TypeServerPort = "SERVER_PORT"
	TypeClientPort = "CLIENT_PORT"
)

// ParameterDescriptor describes one parameter of an application.
type ParameterDescriptor struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name,omitempty"`
	Parameter string `yaml:"parameter,omitempty"`
	Type      string `yaml:"type,omitempty"`
	Default   string `yaml:"default,omitempty"`
	Mandatory bool   `yaml:"mandatory,omitempty"`
	Fixed     bool   `yaml:"fixed,omitempty"`
	// ValueSeparator joins Parameter and the value into one token. It
	// defaults to "=".
	ValueSeparator string `yaml:"valueSeparator,omitempty"`
	// ValueAsSeparateArg renders the value as its own token.
	ValueAsSeparateArg bool `yaml:"valueAsSeparateArg,omitempty"`
}

// EndpointDescriptor describes an HTTP endpoint of an application.
type EndpointDescriptor struct {
	ID     string `yaml:"id"`
	Path   string `yaml:"path"`
	Port   string `yaml:"port,omitempty"`
	Secure bool   `yaml:"secure,omitempty"`
	Type   string `yaml:"type,omitempty"`
}

// Application is the descriptor of one application version.
type Application struct {
	Name        string                `yaml:"name"`
	Tag         string                `yaml:"tag"`
	Executable  string                `yaml:"executable"`
	StartType   string                `yaml:"startType,omitempty"`
	KeepAlive   bool                  `yaml:"keepAlive,omitempty"`
	NoOfRetries int                   `yaml:"noOfRetries,omitempty"`
	GracePeriod time.Duration         `yaml:"gracePeriod,omitempty"`
	Parameters  []ParameterDescriptor `yaml:"parameters,omitempty"`
	Endpoints   []EndpointDescriptor  `yaml:"endpoints,omitempty"`
}

// Ref returns the reference processes use to point at a.
func (a *Application) Ref() model.ApplicationRef {
	return model.ApplicationRef{Name: a.Name, Tag: a.Tag}
}

// Parameter returns the descriptor of the parameter with the given id, or nil.
func (a *Application) Parameter(id string) *ParameterDescriptor {
	for i := range a.Parameters {
		if a.Parameters[i].ID == id {
			return &a.Parameters[i]
		}
	}
	return nil
}

// Catalog is a read-only set of application descriptors.
type Catalog struct {
	apps map[model.ApplicationRef]*Application
}

// New returns a catalog holding apps. Later duplicates replace earlier ones.
func New(apps ...Application) *Catalog {
	c := &Catalog{apps: make(map[model.ApplicationRef]*Application, len(apps))}
	for i := range apps {
		a := apps[i]
		c.apps[a.Ref()] = &a
	}
	return c
}

type catalogFile struct {
	Applications []Application `yaml:"applications"`
}

// Load reads a YAML catalog of the form
//
//	applications:
//	  - name: server
//	    tag: "1.0"
//	    executable: bin/server
//	    parameters:
//	      - id: port
//	        parameter: --port
//	        type: SERVER_PORT
//	        default: "8080"
func Load(r io.Reader) (*Catalog, error) {
	var f catalogFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for _, a := range f.Applications {
		if a.Name == "" {
			return nil, fmt.Errorf("decode catalog: application without name")
		}
	}
	return New(f.Applications...), nil
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Application returns the descriptor referenced by ref.
func (c *Catalog) Application(ref model.ApplicationRef) (*Application, error) {
	if c != nil {
		if a, ok := c.apps[ref]; ok {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownApplication, ref)
}

// ParameterType returns the type of parameter paramID of the referenced
// application, or TypeString when either is unknown.
func (c *Catalog) ParameterType(ref model.ApplicationRef, paramID string) string {
	a, err := c.Application(ref)
	if err != nil {
		return TypeString
	}
	if d := a.Parameter(paramID); d != nil && d.Type != "" {
		return d.Type
	}
	return TypeString
}

// NewProcess builds a process for the referenced application with a fresh
// id and every mandatory or defaulted parameter set to its default.
// Parameters are not rendered; see Render.
func (c *Catalog) NewProcess(ref model.ApplicationRef) (*model.Process, error) {
	a, err := c.Application(ref)
	if err != nil {
		return nil, err
	}

	p := &model.Process{
		ID:          newProcessID(),
		Name:        a.Name,
		Application: ref,
		Start:       model.Command{Executable: a.Executable},
		Control: model.ProcessControl{
			StartType:   a.StartType,
			KeepAlive:   a.KeepAlive,
			NoOfRetries: a.NoOfRetries,
			GracePeriod: a.GracePeriod,
		},
	}
	if p.Control.StartType == "" {
		p.Control.StartType = model.StartManual
	}

	for _, d := range a.Parameters {
		if !d.Mandatory && d.Default == "" {
			continue
		}
		p.Start.Parameters = append(p.Start.Parameters, model.Parameter{
			ID:    d.ID,
			Value: valueOf(d.Default),
		})
	}
	for _, d := range a.Endpoints {
		p.Endpoints = append(p.Endpoints, model.Endpoint{
			ID:     d.ID,
			Path:   d.Path,
			Port:   valueOf(d.Port),
			Secure: d.Secure,
			Type:   d.Type,
		})
	}
	return p, nil
}

func valueOf(s string) model.LinkedValue {
	if strings.Contains(s, "{{") {
		return model.Expression(s)
	}
	return model.Literal(s)
}
