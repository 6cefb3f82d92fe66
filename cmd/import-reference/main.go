// Command import-reference loads the check-in reference CSV tables into the
// database. The bootstrap sequence runs the same import on startup; this
// binary exists for refreshing the tables out of band.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gmapartments/booking-api/internal/bootstrap"
	"github.com/gmapartments/booking-api/internal/checkin"
	"github.com/gmapartments/booking-api/internal/repository"
)

func main() {
	var (
		databaseURL  string
		referenceDir string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or BOOKING_DATABASE_URL / DATABASE_URL env)")
	flag.StringVar(&referenceDir, "reference-dir", "db/reference", "directory holding the reference CSV files")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("BOOKING_DATABASE_URL")
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or BOOKING_DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, referenceDir); err != nil {
		slog.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("import completed successfully")
}

func run(ctx context.Context, databaseURL, referenceDir string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return err
	}

	lg, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()
	ctx = zctx.Base(ctx, lg)

	importer := checkin.NewImporter(repository.NewCheckinRepository(pool), lg)
	return bootstrap.ImportReference(ctx, importer, referenceDir)
}
