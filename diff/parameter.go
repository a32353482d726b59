package diff

import (
	"strings"
	"unicode/utf8"

	"github.com/brunoga/confedit/model"
)

// ParameterDiff compares two values of the same parameter.
type ParameterDiff struct {
	ID             string
	Classification Classification
	// Sensitive is set when both Value and PreRendered are masked.
	Sensitive   bool
	Value       Node[string]
	PreRendered []Node[string]
	Pinned      Node[bool]
}

// Parameter compares two values of a parameter of app. A nil side is
// absent.
func Parameter(app model.ApplicationRef, base, compare *model.Parameter, opts ...Option) ParameterDiff {
	return newOptions(opts).parameter(app, base, compare)
}

// Parameters compares two parameter lists of app, matching entries by id.
func Parameters(app model.ApplicationRef, base, compare []model.Parameter, opts ...Option) []ParameterDiff {
	return newOptions(opts).parameters(app, base, compare)
}

func (o *options) parameters(app model.ApplicationRef, base, compare []model.Parameter) []ParameterDiff {
	var out []ParameterDiff
	for _, p := range match(base, compare) {
		out = append(out, o.parameter(app, p.base, p.compare))
	}
	return out
}

func (o *options) parameter(app model.ApplicationRef, base, compare *model.Parameter) ParameterDiff {
	var b, c model.Parameter
	if base != nil {
		b = *base
	}
	if compare != nil {
		c = *compare
	}
	id := b.ID
	if id == "" {
		id = c.ID
	}

	d := ParameterDiff{
		ID:          id,
		Sensitive:   o.isSensitive(app, id),
		Value:       linked(b.Value, c.Value),
		PreRendered: preRendered(b.PreRendered, c.PreRendered),
		Pinned:      member(base != nil, compare != nil, b.Pinned, c.Pinned),
	}
	if d.Sensitive {
		d.Value = mask(d.Value)
		for i := range d.PreRendered {
			d.PreRendered[i] = mask(d.PreRendered[i])
		}
	}

	children := []Classification{d.Value.Classification, d.Pinned.Classification}
	for _, n := range d.PreRendered {
		children = append(children, n.Classification)
	}
	d.Classification = entity(base != nil, compare != nil, children...)
	return d
}

// linked compares two linked values and displays their raw form.
func linked(base, compare model.LinkedValue) Node[string] {
	return Node[string]{
		Base:           base.Raw(),
		Compare:        compare.Raw(),
		Classification: Classify(base, compare),
	}
}

// preRendered compares two pre-rendered token lists. Lists of equal length
// are compared position by position. Otherwise every base token is
// compared against the whole compare list collapsed into one value, since
// aligning tokens of lists with different lengths yields meaningless
// partial differences.
func preRendered(base, compare []string) []Node[string] {
	if len(base) == len(compare) {
		var out []Node[string]
		for i := range base {
			out = append(out, Field(base[i], compare[i]))
		}
		return out
	}

	collapsed := strings.Join(compare, " ")
	if len(base) == 0 {
		return []Node[string]{Field("", collapsed)}
	}
	out := make([]Node[string], len(base))
	for i, b := range base {
		out[i] = Field(b, collapsed)
	}
	return out
}

// mask replaces both sides of n by a run of '*' as long as the base value,
// or the compare value when base is absent. Absent sides stay empty.
func mask(n Node[string]) Node[string] {
	length := utf8.RuneCountInString(n.Base)
	if n.Base == "" {
		length = utf8.RuneCountInString(n.Compare)
	}
	m := strings.Repeat("*", length)
	if n.Base != "" {
		n.Base = m
	}
	if n.Compare != "" {
		n.Compare = m
	}
	return n
}
