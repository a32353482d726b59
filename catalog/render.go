package catalog

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/brunoga/confedit/model"
)

// maxLinkDepth bounds the expansion of links pointing at other links.
const maxLinkDepth = 8

var linkPattern = regexp.MustCompile(`\{\{([A-Z]):([^}]+)\}\}`)

func newProcessID() string {
	return uuid.NewString()
}

// Render computes the pre-rendered command line tokens of every start
// parameter of p, which must live on the named node of doc.
//
// Link expressions are expanded before rendering:
//
//	{{V:id}}    instance variable
//	{{P:id}}    another parameter of the same process
//	{{I:NAME}}  instance name
//	{{I:ID}}    instance id
//	{{N:NAME}}  node name
//
// Unresolvable links are left as they are.
func (c *Catalog) Render(doc *model.Document, node string, p *model.Process) error {
	a, err := c.Application(p.Application)
	if err != nil {
		return err
	}

	r := resolver{doc: doc, node: node, process: p}
	for i := range p.Start.Parameters {
		param := &p.Start.Parameters[i]
		value := r.expand(param.Value, 0)
		param.PreRendered = renderParameter(a.Parameter(param.ID), value)
	}
	return nil
}

// Expand resolves the links of v in the context of process p on node.
func Expand(doc *model.Document, node string, p *model.Process, v model.LinkedValue) string {
	r := resolver{doc: doc, node: node, process: p}
	return r.expand(v, 0)
}

func renderParameter(d *ParameterDescriptor, value string) []string {
	if d == nil || d.Parameter == "" {
		if value == "" {
			return nil
		}
		return []string{value}
	}

	switch {
	case d.Type == TypeBoolean && !d.ValueAsSeparateArg:
		if value == "true" {
			return []string{d.Parameter}
		}
		return nil
	case d.ValueAsSeparateArg:
		return []string{d.Parameter, value}
	}

	sep := d.ValueSeparator
	if sep == "" {
		sep = "="
	}
	return []string{d.Parameter + sep + value}
}

type resolver struct {
	doc     *model.Document
	node    string
	process *model.Process
}

func (r resolver) expand(v model.LinkedValue, depth int) string {
	if !v.IsLinked() {
		return v.Literal
	}
	if depth >= maxLinkDepth {
		return v.Expression
	}
	return linkPattern.ReplaceAllStringFunc(v.Expression, func(m string) string {
		sub := linkPattern.FindStringSubmatch(m)
		kind, name := sub[1], strings.TrimSpace(sub[2])
		switch kind {
		case "V":
			if vr := r.doc.Variable(name); vr != nil {
				return r.expand(vr.Value, depth+1)
			}
		case "P":
			if r.process != nil {
				if p := r.process.Parameter(name); p != nil {
					return r.expand(p.Value, depth+1)
				}
			}
		case "I":
			if r.doc != nil {
				switch name {
				case "NAME":
					return r.doc.Name
				case "ID":
					return r.doc.ID
				}
			}
		case "N":
			if name == "NAME" {
				return r.node
			}
		}
		return m
	})
}
