// Command seed-admin creates (or resets) the administrator account. Deploys
// run it once against a fresh database so the management endpoints are
// reachable.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/gmapartments/booking-api/internal/auth"
	"github.com/gmapartments/booking-api/internal/domain/user"
	"github.com/gmapartments/booking-api/internal/repository"
)

func main() {
	var (
		databaseURL string
		email       string
		password    string
		pepper      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or BOOKING_DATABASE_URL / DATABASE_URL env)")
	flag.StringVar(&email, "email", "", "admin email (or BOOKING_ADMIN_EMAIL env)")
	flag.StringVar(&password, "password", "", "admin password (or BOOKING_ADMIN_PASSWORD env)")
	flag.StringVar(&pepper, "password-pepper", "", "password pepper (or BOOKING_AUTH_PASSWORD_PEPPER env)")
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
	if email == "" {
		email = os.Getenv("BOOKING_ADMIN_EMAIL")
	}
	if password == "" {
		password = os.Getenv("BOOKING_ADMIN_PASSWORD")
	}
	if email == "" || password == "" {
		slog.Error("admin credentials are required: set --email/--password or the BOOKING_ADMIN_* envs")
		os.Exit(1)
	}
	if pepper == "" {
		pepper = os.Getenv("BOOKING_AUTH_PASSWORD_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, email, password, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("admin account ready", slog.String("email", email))
}

func run(ctx context.Context, databaseURL, email, password, pepper string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return err
	}

	hash, err := auth.NewArgon2Hasher(pepper).Hash(password)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	users := repository.NewUserRepository(pool)

	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		// Reset the password and re-promote: reruns must be harmless.
		existing.PasswordHash = hash
		existing.Type = user.TypeAdmin
		existing.Status = user.StatusComplete
		existing.Active = true
		return users.Update(ctx, existing)
	case errors.Is(err, user.ErrNotFound):
		return users.Create(ctx, &user.User{
			ID:               uuid.New().String(),
			Email:            email,
			PasswordHash:     hash,
			Status:           user.StatusComplete,
			Type:             user.TypeAdmin,
			HasAcceptedTerms: true,
			Active:           true,
		})
	default:
		return errors.Wrap(err, "look up admin account")
	}
}
