package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-variants/internal/domain/product"
	"github.com/xenking/kart-variants/internal/domain/variant"
)

const (
	listProductsSQL = `SELECT p.id, p.slug, COALESCE(t.name, p.name), count(v.id)
		FROM products p
		LEFT JOIN product_translations t ON t.product_id = p.id AND t.locale = $1
		LEFT JOIN variants v ON v.product_id = p.id
		GROUP BY p.id, p.slug, t.name, p.name
		ORDER BY p.slug`

	getProductBySlugSQL = `SELECT p.id, p.slug, COALESCE(t.name, p.name)
		FROM products p
		LEFT JOIN product_translations t ON t.product_id = p.id AND t.locale = $2
		WHERE p.slug = $1`

	listVariantsSQL = `SELECT v.id, v.sku, v.stock, COALESCE(pr.amount, 0)
		FROM variants v
		LEFT JOIN variant_prices pr ON pr.variant_id = v.id AND pr.currency = $2
		WHERE v.product_id = $1
		ORDER BY v.position, v.id`

	listOptionsSQL = `SELECT o.variant_id, o.attribute, o.value, o.hex_color, o.image_ref
		FROM variant_options o
		JOIN variants v ON v.id = o.variant_id
		WHERE v.product_id = $1
		ORDER BY o.variant_id, o.position`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns every product ordered by slug, with names in locale where a
// translation exists.
func (r *ProductRepository) List(ctx context.Context, locale string) ([]product.Summary, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, locale)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.Summary, error) {
		var s product.Summary
		err := row.Scan(&s.ID, &s.Slug, &s.Name, &s.VariantCount)
		return s, err
	})
}

// Variants returns the product identified by q.Slug with all of its variants
// priced in q.Currency. Variants without a price in that currency carry a
// zero price. It returns product.ErrNotFound for an unknown slug.
func (r *ProductRepository) Variants(ctx context.Context, q product.Query) (*product.Product, error) {
	q = q.WithDefaults()

	rows, err := r.pool.Query(ctx, getProductBySlugSQL, q.Slug, q.Locale)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", q.Slug, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (product.Product, error) {
		var p product.Product
		err := row.Scan(&p.ID, &p.Slug, &p.Name)
		return p, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", q.Slug, err)
	}
	p.Currency = q.Currency

	rows, err = r.pool.Query(ctx, listVariantsSQL, p.ID, q.Currency)
	if err != nil {
		return nil, fmt.Errorf("listing variants of %q: %w", p.ID, err)
	}
	variants, err := pgx.CollectRows(rows, scanVariant)
	if err != nil {
		return nil, fmt.Errorf("listing variants of %q: %w", p.ID, err)
	}

	rows, err = r.pool.Query(ctx, listOptionsSQL, p.ID)
	if err != nil {
		return nil, fmt.Errorf("listing options of %q: %w", p.ID, err)
	}
	options, err := pgx.CollectRows(rows, scanOption)
	if err != nil {
		return nil, fmt.Errorf("listing options of %q: %w", p.ID, err)
	}

	p.Variants = attachOptions(variants, options)
	return &p, nil
}

type optionRow struct {
	variantID string
	variant.Assignment
}

func scanVariant(row pgx.CollectableRow) (variant.Variant, error) {
	var (
		v     variant.Variant
		price decimal.Decimal
	)
	err := row.Scan(&v.ID, &v.SKU, &v.Stock, &price)
	v.Price = price
	return v, err
}

func scanOption(row pgx.CollectableRow) (optionRow, error) {
	var o optionRow
	err := row.Scan(&o.variantID, &o.Attribute, &o.Value, &o.HexColor, &o.ImageRef)
	return o, err
}

// attachOptions distributes option rows onto their variants, keeping the
// per-variant option order of the query.
func attachOptions(variants []variant.Variant, options []optionRow) []variant.Variant {
	byID := make(map[string]int, len(variants))
	for i, v := range variants {
		byID[v.ID] = i
	}
	for _, o := range options {
		if i, ok := byID[o.variantID]; ok {
			variants[i].Assignments = append(variants[i].Assignments, o.Assignment)
		}
	}
	return variants
}

const (
	upsertProductSQL = `INSERT INTO products (id, slug, name) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET slug = EXCLUDED.slug, name = EXCLUDED.name`

	upsertTranslationSQL = `INSERT INTO product_translations (product_id, locale, name) VALUES ($1, $2, $3)
		ON CONFLICT (product_id, locale) DO UPDATE SET name = EXCLUDED.name`

	upsertVariantSQL = `INSERT INTO variants (id, product_id, sku, stock, position) VALUES ($1, $2, $3, GREATEST($4, 0), $5)
		ON CONFLICT (id) DO UPDATE SET product_id = EXCLUDED.product_id, sku = EXCLUDED.sku,
			stock = EXCLUDED.stock, position = EXCLUDED.position`

	upsertPriceSQL = `INSERT INTO variant_prices (variant_id, currency, amount) VALUES ($1, $2, $3)
		ON CONFLICT (variant_id, currency) DO UPDATE SET amount = EXCLUDED.amount`

	deleteOptionsSQL = `DELETE FROM variant_options WHERE variant_id = $1`

	insertOptionSQL = `INSERT INTO variant_options (variant_id, position, attribute, value, hex_color, image_ref)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

// ProductRecord is the write model of a product, carrying every translation
// and every price.
type ProductRecord struct {
	ID           string
	Slug         string
	Name         string
	Translations map[string]string
	Variants     []VariantRecord
}

// VariantRecord is the write model of a variant. Prices are keyed by
// currency code.
type VariantRecord struct {
	ID          string
	SKU         string
	Stock       int
	Prices      map[string]decimal.Decimal
	Assignments []variant.Assignment
}

// Upsert writes the product and all of its variants in one transaction.
// Options are replaced wholesale so their order follows the record.
func (r *ProductRepository) Upsert(ctx context.Context, p ProductRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	batch.Queue(upsertProductSQL, p.ID, p.Slug, p.Name)
	for locale, name := range p.Translations {
		batch.Queue(upsertTranslationSQL, p.ID, locale, name)
	}
	for pos, v := range p.Variants {
		batch.Queue(upsertVariantSQL, v.ID, p.ID, v.SKU, v.Stock, pos)
		for currency, amount := range v.Prices {
			batch.Queue(upsertPriceSQL, v.ID, currency, amount)
		}
		batch.Queue(deleteOptionsSQL, v.ID)
		for i, a := range v.Assignments {
			batch.Queue(insertOptionSQL, v.ID, i, a.Attribute, a.Value, a.HexColor, a.ImageRef)
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrapf(err, "upsert product %s", p.ID)
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}
