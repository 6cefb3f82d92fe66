package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/gmapartments/booking-api/internal/proxy"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		cfg, err := proxy.LoadConfig()
		if err != nil {
			return err
		}
		srv, err := proxy.New(cfg, lg)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	})
}
