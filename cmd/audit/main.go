package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/brand-safety-audit/internal/app"
	"github.com/lueurxax/brand-safety-audit/internal/platform/config"
	db "github.com/lueurxax/brand-safety-audit/internal/storage"
)

func main() {
	mode := flag.String("mode", "", "Service mode (segmented, topic, stats, materializer, scheduler, ctl)")
	loop := flag.Bool("loop", false, "Keep running passes until stopped (for segmented mode)")
	op := flag.String("op", "", "Custom target list operation (create, update, delete, get, download, pause, resume, stop)")
	id := flag.Int64("id", 0, "Custom target list id (for ctl mode)")
	ttl := flag.Duration("ttl", 0, "Download link validity (for ctl download)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolOpts := db.PoolOptions{
		MaxConns:          cfg.DBMaxConns,
		MinConns:          cfg.DBMinConns,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
		MaxConnLifetime:   cfg.DBMaxConnLifetime,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
	}

	database, err := db.NewWithOptions(ctx, cfg.PostgresDSN, poolOpts, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application := app.New(cfg, database, &logger)

	if *mode == "ctl" {
		cmd := app.CTLCommand{Op: *op, ID: *id, TTL: *ttl, In: os.Stdin, Out: os.Stdout}
		if err := application.RunCTL(ctx, cmd); err != nil {
			logger.Fatal().Err(err).Msg("ctl operation failed")
		}

		return
	}

	// Start health server in background
	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	if err := runMode(ctx, application, *mode, *loop); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode string, loop bool) error {
	switch mode {
	case "segmented":
		return application.RunSegmented(ctx, loop)
	case "topic":
		return application.RunTopic(ctx)
	case "stats":
		return application.RunStats(ctx)
	case "materializer":
		return application.RunMaterializer(ctx)
	case "scheduler":
		return application.RunScheduler(ctx)
	default:
		log.Fatalf("Usage: %s --mode=[segmented|topic|stats|materializer|scheduler|ctl] [--loop] [--op=... --id=N]", os.Args[0])

		return nil
	}
}
