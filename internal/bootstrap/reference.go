package bootstrap

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gmapartments/booking-api/internal/checkin"
)

// ImportReference loads every check-in reference category whose CSV file is
// present in dir. Files may be plain (<category>.csv) or gzip-compressed
// (<category>.csv.gz); missing files are skipped so partial reference sets
// are allowed.
func ImportReference(ctx context.Context, importer *checkin.Importer, dir string) error {
	for _, category := range checkin.Categories {
		path, ok := findReferenceFile(dir, string(category))
		if !ok {
			zctx.From(ctx).Warn("Reference file missing, skipping category",
				zap.String("category", string(category)),
			)
			continue
		}
		if err := importer.ImportFile(ctx, category, path); err != nil {
			return err
		}
	}
	return nil
}

func findReferenceFile(dir, name string) (string, bool) {
	for _, candidate := range []string{name + ".csv", name + ".csv.gz"} {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
