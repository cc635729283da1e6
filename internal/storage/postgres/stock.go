package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	listSKUsSQL = `SELECT sku FROM variants`

	updateStockSQL = `UPDATE variants SET stock = GREATEST($2, 0) WHERE sku = $1`
)

// StockLevel is an absolute stock count for one SKU.
type StockLevel struct {
	SKU   string
	Stock int
}

// StockRepository reads catalog SKUs and applies stock levels.
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository returns a StockRepository that uses the given pool.
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// SKUs returns every SKU in the catalog.
func (r *StockRepository) SKUs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listSKUsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing skus: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// UpdateStock applies levels in a single batch and returns how many rows
// changed. Negative levels are stored as zero; unknown SKUs are ignored.
func (r *StockRepository) UpdateStock(ctx context.Context, levels []StockLevel) (int64, error) {
	if len(levels) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, l := range levels {
		batch.Queue(updateStockSQL, l.SKU, l.Stock)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()

	var updated int64
	for _, l := range levels {
		tag, err := br.Exec()
		if err != nil {
			return updated, errors.Wrapf(err, "update stock for %s", l.SKU)
		}
		updated += tag.RowsAffected()
	}
	return updated, nil
}
