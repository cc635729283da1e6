// Package variant implements variant selection and availability resolution
// for a single product: attribute grouping, per-value availability with
// conflict attribution, exact variant matching and the selection state
// machine that drives them.
//
// Everything in this package is synchronous and performs no I/O. A Catalog
// is immutable once built; a Selector owns the only mutable state (the
// current selection) and must not be used concurrently.
package variant

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// Assignment binds one attribute of a variant to a concrete value.
type Assignment struct {
	Attribute string
	Value     string
	HexColor  string
	ImageRef  string
}

// Descriptor returns the selectable value described by the assignment.
func (a Assignment) Descriptor() ValueDescriptor {
	return ValueDescriptor(a)
}

// Variant is one purchasable SKU with a full attribute assignment.
type Variant struct {
	ID          string
	SKU         string
	Stock       int
	Price       decimal.Decimal
	Assignments []Assignment
}

// ValueOf returns the value the variant assigns to attribute. When an
// attribute is assigned more than once the first assignment wins.
func (v *Variant) ValueOf(attribute string) (string, bool) {
	for _, a := range v.Assignments {
		if a.Attribute == attribute {
			return a.Value, true
		}
	}
	return "", false
}

// InStock reports whether the variant can be purchased right now.
func (v *Variant) InStock() bool {
	return v.Stock > 0
}

// Clone returns a deep copy of the variant.
func (v Variant) Clone() Variant {
	v.Assignments = slices.Clone(v.Assignments)
	return v
}

// ValueDescriptor is one selectable value of an attribute together with its
// display metadata. It is comparable: two descriptors are the same value iff
// all four fields are equal, which is what deduplication relies on.
type ValueDescriptor struct {
	Attribute string
	Value     string
	HexColor  string
	ImageRef  string
}

// Selection maps attribute name to the chosen value. It may be partial.
type Selection map[string]string

// Clone returns an independent copy. The copy of a nil selection is empty,
// never nil.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	maps.Copy(out, s)
	return out
}

// Without returns a copy of the selection with attribute removed.
func (s Selection) Without(attribute string) Selection {
	out := s.Clone()
	delete(out, attribute)
	return out
}

// Attributes returns the selected attribute names in lexical order.
func (s Selection) Attributes() []string {
	return slices.Sorted(maps.Keys(s))
}
