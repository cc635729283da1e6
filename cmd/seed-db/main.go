package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-variants/internal/fixture"
	"github.com/xenking/kart-variants/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to the catalog fixture (YAML or JSON)")
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

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("reading catalog fixture", slog.String("path", productsFile))

	f, err := fixture.Load(productsFile)
	if err != nil {
		return errors.Wrap(err, "load fixture")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewProductRepository(pool)
	for _, p := range f.Products {
		if err := repo.Upsert(ctx, record(p)); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product",
			slog.String("slug", p.Slug),
			slog.Int("variants", len(p.Variants)),
		)
	}

	return nil
}

func record(p fixture.Product) postgres.ProductRecord {
	rec := postgres.ProductRecord{
		ID:           p.ID,
		Slug:         p.Slug,
		Name:         p.Name,
		Translations: p.Translations,
		Variants:     make([]postgres.VariantRecord, len(p.Variants)),
	}
	for i, v := range p.Variants {
		rec.Variants[i] = postgres.VariantRecord{
			ID:          v.ID,
			SKU:         v.SKU,
			Stock:       v.Stock,
			Prices:      v.Prices,
			Assignments: v.Assignments(),
		}
	}
	return rec
}
