package fixture

import (
	"context"

	"github.com/xenking/kart-variants/internal/domain/product"
)

var _ product.Repository = (*Repository)(nil)

// Repository serves a fixture file through product.Repository.
type Repository struct {
	file *File
}

// NewRepository returns a Repository over f.
func NewRepository(f *File) *Repository {
	return &Repository{file: f}
}

// List returns the products in file order.
func (r *Repository) List(_ context.Context, locale string) ([]product.Summary, error) {
	out := make([]product.Summary, 0, len(r.file.Products))
	for i := range r.file.Products {
		p := r.file.Products[i].Product(product.Query{Locale: locale})
		out = append(out, product.Summary{
			ID:           p.ID,
			Slug:         p.Slug,
			Name:         p.Name,
			VariantCount: len(p.Variants),
		})
	}
	return out, nil
}

// Variants returns the product with q.Slug or product.ErrNotFound.
func (r *Repository) Variants(_ context.Context, q product.Query) (*product.Product, error) {
	p, ok := r.file.Find(q.Slug)
	if !ok {
		return nil, product.ErrNotFound
	}
	return p.Product(q), nil
}
