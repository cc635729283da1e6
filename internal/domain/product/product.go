package product

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-variants/internal/domain/variant"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// DefaultLocale and DefaultCurrency apply when a query leaves them empty.
const (
	DefaultLocale   = "en"
	DefaultCurrency = "USD"
)

// Product is a catalog entry with the variants that can be purchased.
type Product struct {
	ID       string
	Slug     string
	Name     string
	Currency string
	Variants []variant.Variant
}

// Summary is the list view of a product.
type Summary struct {
	ID           string
	Slug         string
	Name         string
	VariantCount int
}

// Query selects the localized, priced view of one product.
type Query struct {
	Slug     string
	Locale   string
	Currency string
}

// WithDefaults fills empty locale and currency.
func (q Query) WithDefaults() Query {
	if q.Locale == "" {
		q.Locale = DefaultLocale
	}
	if q.Currency == "" {
		q.Currency = DefaultCurrency
	}
	return q
}

// Repository is the read side of the product catalog. Variants is the source
// the selection engine is initialized from.
type Repository interface {
	List(ctx context.Context, locale string) ([]Summary, error)
	Variants(ctx context.Context, q Query) (*Product, error)
}
