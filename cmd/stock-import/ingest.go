package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-variants/internal/storage/postgres"
)

const progressEvery = 100_000

// fileStats counts what happened to the lines of one file.
type fileStats struct {
	lines   int
	unknown int
	invalid int
}

// collectLevels reads every file concurrently and merges the results. A SKU
// seen in several files takes its level from the last file in files.
func collectLevels(ctx context.Context, files []string, known func(string) bool) ([]postgres.StockLevel, error) {
	results := make([]map[string]int, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			levels, stats, err := readFile(ctx, path, known)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			slog.Info("file complete",
				slog.String("file", path),
				slog.Int("lines", stats.lines),
				slog.Int("levels", len(levels)),
				slog.Int("unknown", stats.unknown),
				slog.Int("invalid", stats.invalid),
			)
			results[i] = levels
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]int)
	for _, r := range results {
		for sku, stock := range r {
			merged[sku] = stock
		}
	}

	out := make([]postgres.StockLevel, 0, len(merged))
	for sku, stock := range merged {
		out = append(out, postgres.StockLevel{SKU: sku, Stock: stock})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func readFile(ctx context.Context, path string, known func(string) bool) (map[string]int, fileStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fileStats{}, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, fileStats{}, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	return scanLevels(ctx, gz, known)
}

// scanLevels reads "sku,stock" lines. Blank lines, comments and a header row
// are skipped; rows that fail to parse are counted as invalid. Within one
// stream the last row for a SKU wins.
func scanLevels(ctx context.Context, r io.Reader, known func(string) bool) (map[string]int, fileStats, error) {
	var (
		stats  fileStats
		levels = make(map[string]int)
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		stats.lines++
		if stats.lines%progressEvery == 0 {
			slog.Info("scan progress", slog.Int("lines", stats.lines))
		}

		sku, stock, ok := parseLine(scanner.Text())
		switch {
		case !ok:
			stats.invalid++
		case sku == "":
			// Skipped line.
		case !known(sku):
			stats.unknown++
		default:
			levels[sku] = stock
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, errors.Wrap(err, "scan")
	}
	return levels, stats, nil
}

// parseLine returns an empty sku with ok set for lines that carry no data.
func parseLine(line string) (sku string, stock int, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", 0, true
	}

	rawSKU, rawStock, found := strings.Cut(line, ",")
	if !found {
		return "", 0, false
	}
	sku = strings.TrimSpace(rawSKU)
	rawStock = strings.TrimSpace(rawStock)
	if strings.EqualFold(sku, "sku") && strings.EqualFold(rawStock, "stock") {
		return "", 0, true
	}

	stock, err := strconv.Atoi(rawStock)
	if err != nil || sku == "" {
		return "", 0, false
	}
	return sku, max(stock, 0), true
}
