package variant

import (
	"slices"
	"strings"
)

// NoticeConfigurationUnavailable is shown when a complete selection does not
// resolve to exactly one variant.
const NoticeConfigurationUnavailable = "configuration unavailable"

// ValueState is the UI-ready state of one candidate value.
type ValueState struct {
	Descriptor ValueDescriptor
	Selected   bool
	Availability
}

// AttributeState groups the value states of one attribute.
type AttributeState struct {
	Attribute string
	// Selected is the chosen value, empty when nothing is chosen.
	Selected string
	Values   []ValueState
}

// Payload is everything a presentation layer needs after a selection change.
type Payload struct {
	Selection  Selection
	State      State
	Attributes []AttributeState
	Match      MatchResult
	Missing    []string
	Prompt     string
	Notice     string
}

// MatchedVariant returns the resolved variant or nil.
func (p Payload) MatchedVariant() *Variant {
	return p.Match.Variant
}

// Value returns the state of attribute=value, if the catalog has it.
func (p Payload) Value(attribute, value string) (ValueState, bool) {
	for _, a := range p.Attributes {
		if a.Attribute != attribute {
			continue
		}
		for _, v := range a.Values {
			if v.Descriptor.Value == value {
				return v, true
			}
		}
	}
	return ValueState{}, false
}

// Clone returns a deep copy of the payload.
func (p Payload) Clone() Payload {
	out := p
	out.Selection = p.Selection.Clone()
	out.Match = p.Match.clone()
	out.Missing = slices.Clone(p.Missing)
	out.Attributes = make([]AttributeState, len(p.Attributes))
	for i, a := range p.Attributes {
		values := make([]ValueState, len(a.Values))
		for j, v := range a.Values {
			v.Reasons = slices.Clone(v.Reasons)
			values[j] = v
		}
		a.Values = values
		out.Attributes[i] = a
	}
	return out
}

// Explainer turns resolver and matcher output into payloads.
type Explainer struct {
	catalog  *Catalog
	resolver *Resolver
}

// NewExplainer returns an Explainer for catalog.
func NewExplainer(catalog *Catalog, resolver *Resolver) *Explainer {
	return &Explainer{catalog: catalog, resolver: resolver}
}

// Explain resolves every value of every attribute under sel and packages the
// result with the match outcome. Descriptors sharing a value are resolved once.
func (e *Explainer) Explain(sel Selection, match MatchResult) Payload {
	p := Payload{
		Selection:  sel.Clone(),
		State:      stateOf(len(sel), len(e.catalog.groups)),
		Attributes: make([]AttributeState, len(e.catalog.groups)),
		Match:      match,
		Missing:    e.Missing(sel),
	}
	p.Prompt = Prompt(p.Missing)
	if match.Status.IntegrityViolation() {
		p.Notice = NoticeConfigurationUnavailable
	}

	for i, group := range e.catalog.groups {
		chosen, isChosen := sel[group.Attribute]
		resolved := make(map[string]Availability, len(group.Values))
		values := make([]ValueState, len(group.Values))
		for j, d := range group.Values {
			av, ok := resolved[d.Value]
			if !ok {
				av = e.resolver.Resolve(group.Attribute, d.Value, sel)
				resolved[d.Value] = av
			}
			av.Reasons = slices.Clone(av.Reasons)
			values[j] = ValueState{
				Descriptor:   d,
				Selected:     isChosen && chosen == d.Value,
				Availability: av,
			}
		}
		p.Attributes[i] = AttributeState{
			Attribute: group.Attribute,
			Selected:  chosen,
			Values:    values,
		}
	}
	return p
}

// Missing returns the attributes sel has no value for, in catalog order.
func (e *Explainer) Missing(sel Selection) []string {
	missing := make([]string, 0, len(e.catalog.groups))
	for _, group := range e.catalog.groups {
		if _, ok := sel[group.Attribute]; !ok {
			missing = append(missing, group.Attribute)
		}
	}
	return missing
}

// Prompt renders the "please choose" hint for missing attributes.
func Prompt(missing []string) string {
	if len(missing) == 0 {
		return ""
	}
	return "Please choose: " + strings.Join(missing, ", ")
}
