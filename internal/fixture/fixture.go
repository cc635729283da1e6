// Package fixture reads catalog files used to seed the database and to run
// the selector offline. Files are YAML; JSON is accepted as a YAML subset.
package fixture

import (
	"os"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/xenking/kart-variants/internal/domain/product"
	"github.com/xenking/kart-variants/internal/domain/variant"
)

// File is a catalog fixture.
type File struct {
	Products []Product `yaml:"products"`
}

// Product is one fixture product.
type Product struct {
	ID           string            `yaml:"id"`
	Slug         string            `yaml:"slug"`
	Name         string            `yaml:"name"`
	Translations map[string]string `yaml:"translations"`
	Variants     []Variant         `yaml:"variants"`
}

// Variant is one fixture variant. Options keep their file order.
type Variant struct {
	ID      string                     `yaml:"id"`
	SKU     string                     `yaml:"sku"`
	Stock   int                        `yaml:"stock"`
	Prices  map[string]decimal.Decimal `yaml:"prices"`
	Options []Option                   `yaml:"options"`
}

// Option is one attribute assignment.
type Option struct {
	Attribute string `yaml:"attribute"`
	Value     string `yaml:"value"`
	HexColor  string `yaml:"hexColor"`
	ImageRef  string `yaml:"imageRef"`
}

// Load reads and parses the fixture at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read fixture")
	}
	f, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return f, nil
}

// Parse decodes a fixture and checks that products have ids and unique slugs.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	slugs := make(map[string]struct{}, len(f.Products))
	for i, p := range f.Products {
		if p.ID == "" || p.Slug == "" {
			return nil, errors.Errorf("product %d: id and slug are required", i)
		}
		if _, dup := slugs[p.Slug]; dup {
			return nil, errors.Errorf("product %s: duplicate slug %q", p.ID, p.Slug)
		}
		slugs[p.Slug] = struct{}{}
		for j, v := range p.Variants {
			if v.ID == "" || v.SKU == "" {
				return nil, errors.Errorf("product %s variant %d: id and sku are required", p.ID, j)
			}
		}
	}
	return &f, nil
}

// Find returns the product with slug.
func (f *File) Find(slug string) (*Product, bool) {
	for i := range f.Products {
		if f.Products[i].Slug == slug {
			return &f.Products[i], true
		}
	}
	return nil, false
}

// Product converts the fixture product into the priced domain view. Locale
// picks a translated name when one exists; variants without a price in
// currency get a zero price, as the database view does.
func (p *Product) Product(q product.Query) *product.Product {
	q = q.WithDefaults()
	name := p.Name
	if t, ok := p.Translations[q.Locale]; ok {
		name = t
	}

	out := &product.Product{
		ID:       p.ID,
		Slug:     p.Slug,
		Name:     name,
		Currency: q.Currency,
		Variants: make([]variant.Variant, len(p.Variants)),
	}
	for i, v := range p.Variants {
		out.Variants[i] = variant.Variant{
			ID:          v.ID,
			SKU:         v.SKU,
			Stock:       v.Stock,
			Price:       v.Prices[q.Currency],
			Assignments: v.Assignments(),
		}
	}
	return out
}

// Assignments returns the options as domain assignments.
func (v Variant) Assignments() []variant.Assignment {
	out := make([]variant.Assignment, len(v.Options))
	for i, o := range v.Options {
		out[i] = variant.Assignment{
			Attribute: o.Attribute,
			Value:     o.Value,
			HexColor:  o.HexColor,
			ImageRef:  o.ImageRef,
		}
	}
	return out
}
