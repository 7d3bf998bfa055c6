package stub

import (
	"bufio"
	"context"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	minCodeLen    = 4
	maxCodeLen    = 16
)

// LoadCodePack streams the gzipped promo-code files concurrently and builds
// a single bloom filter covering every well-formed code. One code per line;
// lines outside the length bounds are skipped.
func LoadCodePack(ctx context.Context, lg *zap.Logger, paths []string) (*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(buildFilterForFile(ctx, lg, i, path, filters))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	for _, f := range filters {
		if err := merged.Merge(f); err != nil {
			return nil, errors.Wrap(err, "merge filters")
		}
	}
	return merged, nil
}

func buildFilterForFile(ctx context.Context, lg *zap.Logger, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(code string) {
			if len(code) >= minCodeLen && len(code) <= maxCodeLen {
				filter.AddString(code)
				count++
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for %s", path)
		}

		lg.Info("code pack file loaded",
			zap.String("path", path),
			zap.Uint64("codes", count),
		)
		filters[idx] = filter
		return nil
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
