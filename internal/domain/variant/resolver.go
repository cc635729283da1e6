package variant

import "fmt"

// Reasons reported for an unavailable value.
const (
	ReasonNotInCombination = "not available in this combination"
	ReasonOutOfStock       = "out of stock"
)

// ConflictReason names a selected value that makes a candidate unreachable.
func ConflictReason(attribute, value string) string {
	return fmt.Sprintf("not available with %s %s", value, attribute)
}

// Availability is the resolution of one candidate value under a selection.
type Availability struct {
	Attribute      string
	Value          string
	Available      bool
	AvailableStock int
	Reasons        []string
}

// Resolver computes availability of candidate values against a catalog.
type Resolver struct {
	catalog *Catalog
}

// NewResolver returns a Resolver over catalog.
func NewResolver(catalog *Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve reports whether attribute=value is selectable given sel. Any entry
// of sel for attribute itself is ignored, so the caller may pass the full
// selection.
//
// A value is available when at least one in-stock variant agrees with it and
// with every other selected value. When no variant agrees at all, each
// selected entry whose removal alone would make the value reachable is named
// in a conflict reason, in attribute order.
func (r *Resolver) Resolve(attribute, value string, sel Selection) Availability {
	res := Availability{Attribute: attribute, Value: value}

	matching := r.matching(attribute, value, sel, "")
	for _, pos := range matching {
		if stock := r.catalog.variants[pos].Stock; stock > 0 {
			res.AvailableStock += stock
		}
	}
	res.Available = res.AvailableStock > 0

	switch {
	case len(matching) == 0:
		res.Reasons = append(res.Reasons, ReasonNotInCombination)
		res.Reasons = append(res.Reasons, r.conflicts(attribute, value, sel)...)
	case !res.Available:
		res.Reasons = append(res.Reasons, ReasonOutOfStock)
	}
	return res
}

// Reachable reports whether any variant, in stock or not, has attribute=value
// and agrees with sel.
func (r *Resolver) Reachable(attribute, value string, sel Selection) bool {
	return len(r.matching(attribute, value, sel, "")) > 0
}

func (r *Resolver) conflicts(attribute, value string, sel Selection) []string {
	var out []string
	for _, group := range r.catalog.groups {
		a := group.Attribute
		if a == attribute {
			continue
		}
		v, ok := sel[a]
		if !ok {
			continue
		}
		if len(r.matching(attribute, value, sel, a)) > 0 {
			out = append(out, ConflictReason(a, v))
		}
	}
	return out
}

// matching returns positions of variants with attribute=value that agree with
// sel, ignoring attribute and drop.
func (r *Resolver) matching(attribute, value string, sel Selection, drop string) []int {
	postings := r.catalog.postings[valueKey{attribute: attribute, value: value}]
	if len(postings) == 0 {
		return nil
	}
	for a, v := range sel {
		if a == attribute || a == drop {
			continue
		}
		if !r.catalog.mayCooccur(attribute, value, a, v) {
			return nil
		}
	}

	var out []int
	for _, pos := range postings {
		if r.catalog.satisfies(pos, sel, attribute, drop) {
			out = append(out, pos)
		}
	}
	return out
}
