package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"

	"github.com/xenking/kart-variants/internal/storage/postgres"
)

const (
	bloomFPR  = 0.001
	batchSize = 500
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing stock files")
	flag.StringVar(&pattern, "pattern", "stock*.csv.gz", "glob of gzip-compressed sku,stock files inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, pattern, databaseURL); err != nil {
		slog.Error("stock import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("stock import completed successfully")
}

func run(ctx context.Context, dataDir, pattern, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil {
		return errors.Wrap(err, "glob stock files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s in %s", pattern, dataDir)
	}
	// Later files override earlier ones, so the order must be stable.
	sort.Strings(files)

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := postgres.NewStockRepository(pool)

	skus, err := repo.SKUs(ctx)
	if err != nil {
		return errors.Wrap(err, "load catalog skus")
	}
	slog.Info("catalog loaded", slog.Int("skus", len(skus)))

	known := bloom.NewWithEstimates(uint(len(skus)+1), bloomFPR)
	for _, sku := range skus {
		known.AddString(sku)
	}

	levels, err := collectLevels(ctx, files, known.TestString)
	if err != nil {
		return errors.Wrap(err, "read stock files")
	}

	slog.Info("stock levels collected", slog.Int("count", len(levels)))

	return writeLevels(ctx, repo, levels)
}

func writeLevels(ctx context.Context, repo *postgres.StockRepository, levels []postgres.StockLevel) error {
	var updated int64
	for start := 0; start < len(levels); start += batchSize {
		end := min(start+batchSize, len(levels))
		n, err := repo.UpdateStock(ctx, levels[start:end])
		if err != nil {
			return errors.Wrap(err, "update stock")
		}
		updated += n
		slog.Info("write progress",
			slog.Int("written", end),
			slog.Int("total", len(levels)),
			slog.Int64("updated", updated),
		)
	}
	return nil
}
