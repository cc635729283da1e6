package variant

import (
	"fmt"

	"github.com/bits-and-blooms/bloom/v3"
)

// pairFPR is the false positive rate of the co-occurrence filter. False
// positives only cost a posting scan, never a wrong answer.
const pairFPR = 0.01

// AttributeGroup lists the distinct values of one attribute in the order
// they were first seen.
type AttributeGroup struct {
	Attribute string
	Values    []ValueDescriptor
}

// AttributeGroups is the normalized attribute view of a catalog, ordered by
// first appearance of each attribute.
type AttributeGroups []AttributeGroup

// Attributes returns the attribute names in group order.
func (g AttributeGroups) Attributes() []string {
	out := make([]string, len(g))
	for i, group := range g {
		out[i] = group.Attribute
	}
	return out
}

// Lookup returns the first descriptor of attribute carrying value.
func (g AttributeGroups) Lookup(attribute, value string) (ValueDescriptor, bool) {
	for _, group := range g {
		if group.Attribute != attribute {
			continue
		}
		for _, d := range group.Values {
			if d.Value == value {
				return d, true
			}
		}
	}
	return ValueDescriptor{}, false
}

func (g AttributeGroups) clone() AttributeGroups {
	out := make(AttributeGroups, len(g))
	for i, group := range g {
		out[i] = AttributeGroup{
			Attribute: group.Attribute,
			Values:    append([]ValueDescriptor(nil), group.Values...),
		}
	}
	return out
}

// IssueKind classifies a data problem found while building a catalog.
type IssueKind string

const (
	// IssueMissingAttribute marks a variant without a value for an attribute
	// other variants define. Such a variant never matches a complete selection.
	IssueMissingAttribute IssueKind = "missing_attribute"
	// IssueDuplicateAttribute marks a variant assigning the same attribute twice.
	IssueDuplicateAttribute IssueKind = "duplicate_attribute"
	// IssueNegativeStock marks a variant whose stock was clamped to zero.
	IssueNegativeStock IssueKind = "negative_stock"
	// IssueDuplicateCombination marks a variant whose full assignment equals
	// an earlier variant's, which makes matching ambiguous.
	IssueDuplicateCombination IssueKind = "duplicate_combination"
)

// Issue describes one data-integrity problem in the variant list.
type Issue struct {
	Kind      IssueKind
	VariantID string
	Attribute string
}

func (i Issue) String() string {
	if i.Attribute == "" {
		return fmt.Sprintf("variant %s: %s", i.VariantID, i.Kind)
	}
	return fmt.Sprintf("variant %s: %s %q", i.VariantID, i.Kind, i.Attribute)
}

type valueKey struct {
	attribute string
	value     string
}

// Catalog is the immutable, indexed form of one product's variant list.
type Catalog struct {
	variants []Variant
	values   []map[string]string
	groups   AttributeGroups
	attrPos  map[string]int
	postings map[valueKey][]int
	pairs    *bloom.BloomFilter
	issues   []Issue
	print    uint64
}

// NewCatalog builds the attribute groups and lookup indexes for variants.
// The input is copied; later changes to it do not affect the catalog.
func NewCatalog(variants []Variant) *Catalog {
	c := &Catalog{
		variants: make([]Variant, len(variants)),
		values:   make([]map[string]string, len(variants)),
		attrPos:  make(map[string]int),
		postings: make(map[valueKey][]int),
	}

	seen := make(map[ValueDescriptor]struct{})
	for i, v := range variants {
		v = v.Clone()
		if v.Stock < 0 {
			c.issues = append(c.issues, Issue{Kind: IssueNegativeStock, VariantID: v.ID})
			v.Stock = 0
		}
		c.variants[i] = v

		values := make(map[string]string, len(v.Assignments))
		for _, a := range v.Assignments {
			if _, dup := values[a.Attribute]; dup {
				c.issues = append(c.issues, Issue{Kind: IssueDuplicateAttribute, VariantID: v.ID, Attribute: a.Attribute})
				continue
			}
			values[a.Attribute] = a.Value

			pos, ok := c.attrPos[a.Attribute]
			if !ok {
				pos = len(c.groups)
				c.attrPos[a.Attribute] = pos
				c.groups = append(c.groups, AttributeGroup{Attribute: a.Attribute})
			}
			d := a.Descriptor()
			if _, ok := seen[d]; !ok {
				seen[d] = struct{}{}
				c.groups[pos].Values = append(c.groups[pos].Values, d)
			}

			k := valueKey{attribute: a.Attribute, value: a.Value}
			c.postings[k] = append(c.postings[k], i)
		}
		c.values[i] = values
	}

	c.checkCompleteness()
	c.buildPairs()
	c.print = catalogFingerprint(c.variants)
	return c
}

func (c *Catalog) checkCompleteness() {
	combos := make(map[string]string, len(c.variants))
	for i, v := range c.variants {
		for _, group := range c.groups {
			if _, ok := c.values[i][group.Attribute]; !ok {
				c.issues = append(c.issues, Issue{Kind: IssueMissingAttribute, VariantID: v.ID, Attribute: group.Attribute})
			}
		}
		key := comboKey(c.groups, c.values[i])
		if _, dup := combos[key]; dup {
			c.issues = append(c.issues, Issue{Kind: IssueDuplicateCombination, VariantID: v.ID})
			continue
		}
		combos[key] = v.ID
	}
}

func (c *Catalog) buildPairs() {
	n := 0
	for i := range c.values {
		k := len(c.values[i])
		n += k * (k - 1) / 2
	}
	c.pairs = bloom.NewWithEstimates(uint(max(n, 1)), pairFPR)

	for i := range c.values {
		for a, va := range c.values[i] {
			for b, vb := range c.values[i] {
				if c.attrPos[a] < c.attrPos[b] {
					c.pairs.AddString(c.pairKey(a, va, b, vb))
				}
			}
		}
	}
}

// pairKey canonicalizes two attribute assignments by attribute position.
func (c *Catalog) pairKey(a, va, b, vb string) string {
	if c.attrPos[a] > c.attrPos[b] {
		a, va, b, vb = b, vb, a, va
	}
	return a + "\x00" + va + "\x00" + b + "\x00" + vb
}

// mayCooccur reports whether some variant might assign both a=va and b=vb.
// A false result is definitive.
func (c *Catalog) mayCooccur(a, va, b, vb string) bool {
	if _, ok := c.attrPos[b]; !ok {
		return false
	}
	return c.pairs.TestString(c.pairKey(a, va, b, vb))
}

// satisfies reports whether variant pos agrees with every entry of sel
// except the attributes listed in skip.
func (c *Catalog) satisfies(pos int, sel Selection, skip ...string) bool {
next:
	for a, want := range sel {
		for _, s := range skip {
			if a == s {
				continue next
			}
		}
		if got, ok := c.values[pos][a]; !ok || got != want {
			return false
		}
	}
	return true
}

// Groups returns a copy of the attribute groups.
func (c *Catalog) Groups() AttributeGroups {
	return c.groups.clone()
}

// Attributes returns the attribute names in group order.
func (c *Catalog) Attributes() []string {
	return c.groups.Attributes()
}

// HasAttribute reports whether attribute is defined by any variant.
func (c *Catalog) HasAttribute(attribute string) bool {
	_, ok := c.attrPos[attribute]
	return ok
}

// Len returns the number of variants.
func (c *Catalog) Len() int {
	return len(c.variants)
}

// Variant returns a copy of the variant at position pos.
func (c *Catalog) Variant(pos int) Variant {
	return c.variants[pos].Clone()
}

// Variants returns copies of all variants in input order.
func (c *Catalog) Variants() []Variant {
	out := make([]Variant, len(c.variants))
	for i := range c.variants {
		out[i] = c.variants[i].Clone()
	}
	return out
}

// Issues returns the data-integrity problems found while building.
func (c *Catalog) Issues() []Issue {
	return append([]Issue(nil), c.issues...)
}

// Fingerprint identifies the catalog contents for memoization.
func (c *Catalog) Fingerprint() uint64 {
	return c.print
}

// descriptorFor resolves the catalog descriptor a toggle refers to. An exact
// structural match wins; otherwise the first descriptor with the same value.
func (c *Catalog) descriptorFor(attribute string, d ValueDescriptor) (ValueDescriptor, bool) {
	pos, ok := c.attrPos[attribute]
	if !ok {
		return ValueDescriptor{}, false
	}
	d.Attribute = attribute
	var (
		first ValueDescriptor
		found bool
	)
	for _, candidate := range c.groups[pos].Values {
		if candidate == d {
			return candidate, true
		}
		if !found && candidate.Value == d.Value {
			first, found = candidate, true
		}
	}
	return first, found
}

func comboKey(groups AttributeGroups, values map[string]string) string {
	var key []byte
	for _, group := range groups {
		v, ok := values[group.Attribute]
		if !ok {
			key = append(key, 0x01)
		} else {
			key = append(key, v...)
		}
		key = append(key, 0x00)
	}
	return string(key)
}
