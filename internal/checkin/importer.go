package checkin

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
)

// Importer loads reference CSV files into the repository. Imports are
// idempotent: a category that already has rows is skipped, so re-running the
// bootstrap does not duplicate data.
type Importer struct {
	repo Repository
	lg   *zap.Logger
}

// NewImporter creates an Importer.
func NewImporter(repo Repository, lg *zap.Logger) *Importer {
	return &Importer{repo: repo, lg: lg}
}

// ImportFile reads one CSV source (plain or gzip-compressed, detected by the
// .gz suffix) and stores its rows under the given category.
func (im *Importer) ImportFile(ctx context.Context, category Category, path string) error {
	if !category.Valid() {
		return errors.Wrapf(ErrUnknownCategory, "%q", category)
	}

	n, err := im.repo.CountByCategory(ctx, category)
	if err != nil {
		return errors.Wrap(err, "count existing choices")
	}
	if n > 0 {
		im.lg.Info("Category already imported, skipping",
			zap.String("category", string(category)),
			zap.Int("existing", n),
		)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		src = gz
	}

	choices, err := parseChoices(ctx, category, src)
	if err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	if len(choices) == 0 {
		im.lg.Warn("No entries found in reference file", zap.String("path", path))
		return nil
	}

	if err := im.repo.InsertBatch(ctx, choices); err != nil {
		return errors.Wrapf(err, "insert choices for %s", category)
	}

	im.lg.Info("Imported reference category",
		zap.String("category", string(category)),
		zap.String("path", path),
		zap.Int("count", len(choices)),
	)
	return nil
}

// parseChoices reads CSV rows with a Codice/Descrizione/Provincia header.
// When a Provincia column is present and non-empty, it is appended to the
// description, matching how the comune table distinguishes namesakes.
func parseChoices(ctx context.Context, category Category, src io.Reader) ([]Choice, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	descIdx, ok := cols["descrizione"]
	if !ok {
		return nil, errors.New("missing Descrizione column")
	}
	codeIdx, hasCode := cols["codice"]
	provIdx, hasProv := cols["provincia"]

	var choices []Choice
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read record")
		}
		if descIdx >= len(record) {
			continue
		}

		desc := strings.TrimSpace(record[descIdx])
		if desc == "" {
			continue
		}
		if hasProv && provIdx < len(record) {
			if prov := strings.TrimSpace(record[provIdx]); prov != "" {
				desc = desc + " - " + prov
			}
		}

		code := ""
		if hasCode && codeIdx < len(record) {
			code = strings.TrimSpace(record[codeIdx])
		}

		choices = append(choices, Choice{
			Category:    category,
			Code:        code,
			Description: desc,
		})
	}
	return choices, nil
}
