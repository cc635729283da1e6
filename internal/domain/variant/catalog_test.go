package variant

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Helpers ---

func newTestVariant(id string, stock int, pairs ...string) Variant {
	v := Variant{
		ID:    id,
		SKU:   "SKU-" + id,
		Stock: stock,
		Price: decimal.RequireFromString("19.99"),
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Assignments = append(v.Assignments, Assignment{Attribute: pairs[i], Value: pairs[i+1]})
	}
	return v
}

// colorSizeVariants is the Color×Size catalog used across the package tests.
func colorSizeVariants() []Variant {
	return []Variant{
		newTestVariant("black-s", 5, "color", "Black", "size", "S"),
		newTestVariant("black-m", 0, "color", "Black", "size", "M"),
		newTestVariant("white-s", 3, "color", "White", "size", "S"),
	}
}

func values(group AttributeGroup) []string {
	out := make([]string, len(group.Values))
	for i, d := range group.Values {
		out[i] = d.Value
	}
	return out
}

// --- Tests ---

func TestNewCatalog_Groups(t *testing.T) {
	c := NewCatalog(colorSizeVariants())

	groups := c.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"color", "size"}, groups.Attributes())
	assert.Equal(t, []string{"Black", "White"}, values(groups[0]))
	assert.Equal(t, []string{"S", "M"}, values(groups[1]))
	assert.Empty(t, c.Issues())
	assert.Equal(t, 3, c.Len())
}

func TestNewCatalog_DeduplicatesStructurally(t *testing.T) {
	withSwatch := func(id, size, hex, img string) Variant {
		return Variant{
			ID:    id,
			Stock: 1,
			Assignments: []Assignment{
				{Attribute: "color", Value: "Red", HexColor: hex, ImageRef: img},
				{Attribute: "size", Value: size},
			},
		}
	}

	c := NewCatalog([]Variant{
		withSwatch("1", "S", "#ff0000", "red.jpg"),
		withSwatch("2", "M", "#ff0000", "red.jpg"),
		withSwatch("3", "L", "#ee0000", "red.jpg"),
	})

	groups := c.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, []ValueDescriptor{
		{Attribute: "color", Value: "Red", HexColor: "#ff0000", ImageRef: "red.jpg"},
		{Attribute: "color", Value: "Red", HexColor: "#ee0000", ImageRef: "red.jpg"},
	}, groups[0].Values)
}

func TestNewCatalog_CopiesInput(t *testing.T) {
	in := colorSizeVariants()
	c := NewCatalog(in)

	in[0].Assignments[0].Value = "Green"
	in[0].Stock = 100

	v := c.Variant(0)
	assert.Equal(t, "Black", v.Assignments[0].Value)
	assert.Equal(t, 5, v.Stock)

	groups := c.Groups()
	groups[0].Values[0].Value = "Purple"
	assert.Equal(t, "Black", c.Groups()[0].Values[0].Value)
}

func TestNewCatalog_Issues(t *testing.T) {
	tests := []struct {
		name     string
		variants []Variant
		want     []Issue
	}{
		{
			name: "missing attribute",
			variants: []Variant{
				newTestVariant("1", 1, "color", "Black", "size", "S"),
				newTestVariant("2", 1, "color", "White"),
			},
			want: []Issue{{Kind: IssueMissingAttribute, VariantID: "2", Attribute: "size"}},
		},
		{
			name: "negative stock clamped",
			variants: []Variant{
				newTestVariant("1", -4, "color", "Black"),
			},
			want: []Issue{{Kind: IssueNegativeStock, VariantID: "1"}},
		},
		{
			name: "duplicate attribute keeps first",
			variants: []Variant{
				newTestVariant("1", 1, "color", "Black", "color", "White"),
			},
			want: []Issue{{Kind: IssueDuplicateAttribute, VariantID: "1", Attribute: "color"}},
		},
		{
			name: "duplicate combination",
			variants: []Variant{
				newTestVariant("1", 1, "color", "Black", "size", "S"),
				newTestVariant("2", 4, "color", "Black", "size", "S"),
			},
			want: []Issue{{Kind: IssueDuplicateCombination, VariantID: "2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCatalog(tt.variants)
			assert.Equal(t, tt.want, c.Issues())
		})
	}
}

func TestNewCatalog_NegativeStockIsZero(t *testing.T) {
	c := NewCatalog([]Variant{newTestVariant("1", -4, "color", "Black")})
	assert.Equal(t, 0, c.Variant(0).Stock)
}

func TestNewCatalog_Empty(t *testing.T) {
	c := NewCatalog(nil)

	assert.Empty(t, c.Groups())
	assert.Empty(t, c.Attributes())
	assert.False(t, c.HasAttribute("color"))
	assert.Zero(t, c.Len())
}

func TestAttributeGroups_Lookup(t *testing.T) {
	groups := NewCatalog(colorSizeVariants()).Groups()

	d, ok := groups.Lookup("size", "M")
	require.True(t, ok)
	assert.Equal(t, ValueDescriptor{Attribute: "size", Value: "M"}, d)

	_, ok = groups.Lookup("size", "XL")
	assert.False(t, ok)
	_, ok = groups.Lookup("material", "M")
	assert.False(t, ok)
}

func TestCatalog_Fingerprint(t *testing.T) {
	a := NewCatalog(colorSizeVariants())
	b := NewCatalog(colorSizeVariants())
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	changed := colorSizeVariants()
	changed[1].Stock = 7
	assert.NotEqual(t, a.Fingerprint(), NewCatalog(changed).Fingerprint())
}

func TestSelectionFingerprint_OrderIndependent(t *testing.T) {
	a := Selection{"color": "Black", "size": "S"}
	b := make(Selection)
	b["size"] = "S"
	b["color"] = "Black"

	assert.Equal(t, selectionFingerprint(1, a), selectionFingerprint(1, b))
	assert.NotEqual(t, selectionFingerprint(1, a), selectionFingerprint(2, a))
	assert.NotEqual(t, selectionFingerprint(1, a), selectionFingerprint(1, Selection{"color": "Black"}))
}
