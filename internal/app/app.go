// Package app wires configuration, storage, services, and transports into
// runnable binaries.
package app

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gmapartments/booking-api/internal/auth"
	"github.com/gmapartments/booking-api/internal/bootstrap"
	"github.com/gmapartments/booking-api/internal/checkin"
	"github.com/gmapartments/booking-api/internal/domain/discount"
	"github.com/gmapartments/booking-api/internal/domain/reservation"
	"github.com/gmapartments/booking-api/internal/domain/user"
	"github.com/gmapartments/booking-api/internal/handler"
	"github.com/gmapartments/booking-api/internal/notify"
	"github.com/gmapartments/booking-api/internal/repository"
	"github.com/gmapartments/booking-api/internal/tasks"
	"github.com/gmapartments/booking-api/pkg/health"
	"github.com/gmapartments/booking-api/pkg/httpmiddleware"
)

// Run starts the API server: bootstrap sequence, dependency wiring, HTTP
// serving, and graceful shutdown. It is the single wiring point for the
// api-server binary.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	dbAddr, err := databaseAddr(cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "parse database URL")
	}
	if err := bootstrap.WaitTCP(ctx, dbAddr, cfg.Bootstrap.WaitTimeout); err != nil {
		return errors.Wrap(err, "wait for database")
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	checkinRepo := repository.NewCheckinRepository(pool)
	importer := checkin.NewImporter(checkinRepo, lg.Named("import"))

	if err := bootstrap.Run(ctx,
		bootstrap.Step{Name: "migrate", Run: func(ctx context.Context) error {
			return repository.RunMigrations(ctx, pool)
		}},
		bootstrap.Step{Name: "collectstatic", Run: func(ctx context.Context) error {
			if cfg.Bootstrap.StaticDir == "" {
				return nil
			}
			n, err := bootstrap.CollectStatic(cfg.Bootstrap.StaticSrc, cfg.Bootstrap.StaticDir)
			if err != nil {
				return err
			}
			zctx.From(ctx).Info("Static assets collected", zap.Int("files", n))
			return nil
		}},
		bootstrap.Step{Name: "import-reference", Run: func(ctx context.Context) error {
			return bootstrap.ImportReference(ctx, importer, cfg.Bootstrap.ReferenceDir)
		}},
	); err != nil {
		return err
	}

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return errors.Wrap(err, "create redis client")
	}
	defer func() { _ = redisClient.Close() }()
	broker := tasks.NewBroker(redisClient, cfg.TaskQueue)

	// Health check service.
	healthSvc := health.New()
	healthSvc.Add(health.Readiness, "postgres", 5*time.Second, health.PostgresCheck(pool))
	healthSvc.Add(health.Readiness, "redis", 5*time.Second, health.RedisCheck(redisClient))
	healthSvc.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	userRepo := repository.NewUserRepository(pool)
	structureRepo := repository.NewStructureRepository(pool)
	roomRepo := repository.NewRoomRepository(pool)
	reservationRepo := repository.NewReservationRepository(pool)
	discountRepo := repository.NewDiscountRepository(pool)

	// Domain services.
	hasher := auth.NewArgon2Hasher(cfg.Auth.PasswordPepper)
	signer := auth.NewSigner(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	userService := user.NewService(userRepo, hasher)
	reservationService := reservation.NewService(roomRepo, reservationRepo, discount.NewRepoValidator(discountRepo))

	// HTTP handlers.
	authmw := auth.NewMiddleware(signer, userRepo)
	h := handler.New(
		handler.Config{
			WebhookSecret: cfg.Payments.WebhookSecret,
			MediaBaseURL:  cfg.MediaBaseURL,
		},
		userService,
		userRepo,
		structureRepo,
		roomRepo,
		reservationService,
		discountRepo,
		signer,
		authmw,
		broker,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Routes(mux)

	// otelhttp starts a server span per request; LogRequests picks the trace
	// ID up from the span context.
	traced := otelhttp.NewHandler(mux, "booking-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(traced,
			httpmiddleware.Recovery(),
			httpmiddleware.AllowedHosts(cfg.AllowedHosts),
			httpmiddleware.CSRFTrustedOrigins(cfg.CSRFTrustedOrigins),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("booking-api", m.MeterProvider().Meter("booking-api")),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// RunWorker starts the background task worker and the periodic scheduler.
func RunWorker(ctx context.Context, lg *zap.Logger, _ *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing worker", zap.Int("concurrency", cfg.Worker.Concurrency))

	dbAddr, err := databaseAddr(cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "parse database URL")
	}
	if err := bootstrap.WaitTCP(ctx, dbAddr, cfg.Bootstrap.WaitTimeout); err != nil {
		return errors.Wrap(err, "wait for database")
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return errors.Wrap(err, "create redis client")
	}
	defer func() { _ = redisClient.Close() }()
	broker := tasks.NewBroker(redisClient, cfg.TaskQueue)

	userRepo := repository.NewUserRepository(pool)
	roomRepo := repository.NewRoomRepository(pool)
	reservationRepo := repository.NewReservationRepository(pool)
	discountRepo := repository.NewDiscountRepository(pool)
	reservationService := reservation.NewService(roomRepo, reservationRepo, discount.NewRepoValidator(discountRepo))

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTP.Host != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.Sender)
	}
	var sms notify.SMSSender = notify.LogSender{}
	if cfg.SMS.AccountSID != "" {
		sms = notify.NewTwilioSender(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.From)
	}

	worker := tasks.NewWorker(broker, cfg.Worker.Concurrency)
	handlers := tasks.NewHandlers(reservationService, userRepo, mailer, sms, cfg.Worker.UnpaidTTL)
	handlers.RegisterAll(worker)

	scheduler := tasks.NewScheduler(broker)
	scheduler.Every(cfg.Worker.SweepInterval, tasks.KindExpireReservations)
	scheduler.Every(cfg.Worker.ReminderPeriod, tasks.KindCheckinReminders)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error { return scheduler.Run(ctx) })

	lg.Info("Worker running")
	return g.Wait()
}

func newRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("redis URL is required: set BOOKING_REDIS_URL or REDIS_URL")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis URL")
	}
	return redis.NewClient(opts), nil
}

// databaseAddr extracts the host:port part of a postgres URL for the
// TCP wait step.
func databaseAddr(databaseURL string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if host == "" {
		return "", errors.New("database URL has no host")
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	return net.JoinHostPort(host, port), nil
}
