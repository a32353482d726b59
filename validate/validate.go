// Package validate checks configuration documents against the application
// catalog and the structural rules of an instance.
package validate

import (
	"fmt"
	"strconv"

	"github.com/brunoga/confedit/catalog"
	"github.com/brunoga/confedit/model"
)

// Rule inspects doc and reports its findings. cat may be nil.
type Rule func(doc *model.Document, cat *catalog.Catalog) []model.ValidationIssue

// DefaultRules are the rules a Validator runs when none are given.
var DefaultRules = []Rule{
	KnownApplications,
	MandatoryParameters,
	ParameterTypes,
	UniqueProcessIDs,
	ControlGroupMembership,
	PortConflicts,
}

// Validator runs a fixed set of rules.
type Validator struct {
	cat   *catalog.Catalog
	rules []Rule
}

// New returns a Validator using cat. Without rules it runs DefaultRules.
func New(cat *catalog.Catalog, rules ...Rule) *Validator {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Validator{cat: cat, rules: rules}
}

// Validate runs every rule against doc and returns the concatenated issues.
func (v *Validator) Validate(doc *model.Document) []model.ValidationIssue {
	if doc == nil {
		return nil
	}
	var issues []model.ValidationIssue
	for _, r := range v.rules {
		issues = append(issues, r(doc, v.cat)...)
	}
	return issues
}

// HasErrors reports whether issues contains an issue of error severity.
func HasErrors(issues []model.ValidationIssue) bool {
	for _, i := range issues {
		if i.Severity == model.SeverityError {
			return true
		}
	}
	return false
}

func errorf(processID, parameterID, format string, args ...any) model.ValidationIssue {
	return model.ValidationIssue{
		ProcessID:   processID,
		ParameterID: parameterID,
		Severity:    model.SeverityError,
		Message:     fmt.Sprintf(format, args...),
	}
}

func warnf(processID, parameterID, format string, args ...any) model.ValidationIssue {
	i := errorf(processID, parameterID, format, args...)
	i.Severity = model.SeverityWarning
	return i
}

func eachProcess(doc *model.Document, fn func(n *model.Node, p *model.Process)) {
	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		for j := range n.Processes {
			fn(n, &n.Processes[j])
		}
	}
}

// KnownApplications reports processes whose application is not in the
// catalog. It is skipped without a catalog.
func KnownApplications(doc *model.Document, cat *catalog.Catalog) []model.ValidationIssue {
	if cat == nil {
		return nil
	}
	var issues []model.ValidationIssue
	eachProcess(doc, func(_ *model.Node, p *model.Process) {
		if _, err := cat.Application(p.Application); err != nil {
			issues = append(issues, errorf(p.ID, "", "process %s uses unknown application %s", p.Name, p.Application))
		}
	})
	return issues
}

// MandatoryParameters reports mandatory parameters that are missing or
// empty.
func MandatoryParameters(doc *model.Document, cat *catalog.Catalog) []model.ValidationIssue {
	if cat == nil {
		return nil
	}
	var issues []model.ValidationIssue
	eachProcess(doc, func(_ *model.Node, p *model.Process) {
		app, err := cat.Application(p.Application)
		if err != nil {
			return
		}
		for _, d := range app.Parameters {
			if !d.Mandatory {
				continue
			}
			if param := p.Parameter(d.ID); param == nil || param.Value.Raw() == "" {
				issues = append(issues, errorf(p.ID, d.ID, "mandatory parameter %s of %s is not set", d.ID, p.Name))
			}
		}
	})
	return issues
}

// ParameterTypes checks literal values of numeric, boolean and port typed
// parameters. Linked values are not checked.
func ParameterTypes(doc *model.Document, cat *catalog.Catalog) []model.ValidationIssue {
	if cat == nil {
		return nil
	}
	var issues []model.ValidationIssue
	eachProcess(doc, func(_ *model.Node, p *model.Process) {
		for _, param := range p.Start.Parameters {
			if param.Value.IsLinked() || param.Value.Literal == "" {
				continue
			}
			v := param.Value.Literal
			switch cat.ParameterType(p.Application, param.ID) {
			case catalog.TypeNumeric:
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					issues = append(issues, errorf(p.ID, param.ID, "%q is not a number", v))
				}
			case catalog.TypeBoolean:
				if _, err := strconv.ParseBool(v); err != nil {
					issues = append(issues, errorf(p.ID, param.ID, "%q is not a boolean", v))
				}
			case catalog.TypeServerPort, catalog.TypeClientPort:
				if n, err := strconv.Atoi(v); err != nil || n < 0 || n > 65535 {
					issues = append(issues, errorf(p.ID, param.ID, "%q is not a valid port", v))
				}
			}
		}
	})
	return issues
}

// UniqueProcessIDs reports process ids used more than once in doc.
func UniqueProcessIDs(doc *model.Document, _ *catalog.Catalog) []model.ValidationIssue {
	seen := make(map[string]bool)
	var issues []model.ValidationIssue
	eachProcess(doc, func(n *model.Node, p *model.Process) {
		if seen[p.ID] {
			issues = append(issues, errorf(p.ID, "", "process id %s is used more than once (node %s)", p.ID, n.Name))
		}
		seen[p.ID] = true
	})
	return issues
}

// ControlGroupMembership checks that every process id of a node appears in
// at most one control group of that node, that control groups reference
// only processes of their node, and warns about processes in no group.
func ControlGroupMembership(doc *model.Document, _ *catalog.Catalog) []model.ValidationIssue {
	var issues []model.ValidationIssue
	for _, n := range doc.Nodes {
		if len(n.ControlGroups) == 0 {
			continue
		}
		owner := make(map[string]string)
		for _, g := range n.ControlGroups {
			for _, id := range g.ProcessOrder {
				if n.Process(id) == nil {
					issues = append(issues, errorf(id, "", "control group %s of node %s references unknown process %s", g.Name, n.Name, id))
					continue
				}
				if prev, ok := owner[id]; ok {
					issues = append(issues, errorf(id, "", "process %s is in control groups %s and %s", id, prev, g.Name))
					continue
				}
				owner[id] = g.Name
			}
		}
		for _, p := range n.Processes {
			if _, ok := owner[p.ID]; !ok {
				issues = append(issues, warnf(p.ID, "", "process %s is not in any control group of node %s", p.Name, n.Name))
			}
		}
	}
	return issues
}

// PortConflicts reports server ports used by more than one parameter on
// the same node.
func PortConflicts(doc *model.Document, cat *catalog.Catalog) []model.ValidationIssue {
	if cat == nil {
		return nil
	}
	var issues []model.ValidationIssue
	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		used := make(map[string]string)
		for j := range n.Processes {
			p := &n.Processes[j]
			for _, param := range p.Start.Parameters {
				if cat.ParameterType(p.Application, param.ID) != catalog.TypeServerPort {
					continue
				}
				port := catalog.Expand(doc, n.Name, p, param.Value)
				if port == "" {
					continue
				}
				if prev, ok := used[port]; ok {
					issues = append(issues, errorf(p.ID, param.ID, "port %s on node %s is already used by %s", port, n.Name, prev))
					continue
				}
				used[port] = p.Name + "/" + param.ID
			}
		}
	}
	return issues
}
