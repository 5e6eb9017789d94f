// Command sheetsync receives Stripe webhooks and keeps one spreadsheet row per
// customer up to date.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mihaimyh/sheetsync/pkg/api"
	"github.com/mihaimyh/sheetsync/pkg/billing"
	billingprom "github.com/mihaimyh/sheetsync/pkg/billing/metrics/prometheus"
	"github.com/mihaimyh/sheetsync/pkg/billing/stripe"
	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
	zerolog_adapter "github.com/mihaimyh/sheetsync/pkg/sheetsync/logger/zerolog"
	sheetsprom "github.com/mihaimyh/sheetsync/pkg/sheetsync/metrics/prometheus"
	"github.com/mihaimyh/sheetsync/storage/tiered"
)

const (
	metricsNamespace = "sheetsync"
	shutdownTimeout  = 10 * time.Second
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	flag.Parse()

	if err := run(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "sheetsync: %v\n", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	cfg, err := LoadConfig(envFile)
	if err != nil {
		return err
	}

	zlog, err := newZerolog(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	logger := zerolog_adapter.NewLogger(&zlog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		storeMetrics   sheetsync.Metrics = &sheetsync.NoopMetrics{}
		billingMetrics billing.Metrics   = &billing.NoopMetrics{}
		registry       *prometheus.Registry
	)
	if cfg.MetricsAddr != "" {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		storeMetrics = sheetsprom.NewMetrics(registry, metricsNamespace)
		billingMetrics = billingprom.NewMetrics(registry, metricsNamespace)
	}

	engine, closeStore, err := openEngine(ctx, cfg, cfg.StoreBackend, storeMetrics, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var upserter billing.Upserter = engine
	if cfg.MirrorBackend != "" {
		mirror, closeMirror, err := openEngine(ctx, cfg, cfg.MirrorBackend, storeMetrics, logger)
		if err != nil {
			return err
		}
		defer closeMirror()

		mirrored, err := tiered.New(tiered.Config{
			Primary:     engine,
			Mirror:      mirror,
			AsyncMirror: cfg.MirrorAsync,
			AsyncErrorHandler: func(err error) {
				logger.Error("mirror write failed",
					sheetsync.Field{Key: "backend", Value: cfg.MirrorBackend},
					sheetsync.Field{Key: "error", Value: err},
				)
			},
		})
		if err != nil {
			return err
		}
		defer mirrored.Close()
		upserter = mirrored
	}

	provider, err := stripe.NewProvider(stripe.Config{
		StripeWebhookSecret: cfg.StripeWebhookSecret,
		StripeAPIKey:        cfg.StripeAPIKey,
		SignatureTolerance:  cfg.SignatureTolerance,
		CustomerCacheTTL:    cfg.CustomerCacheTTL,
		CustomerCacheSize:   cfg.CustomerCacheSize,
		Upserter:            upserter,
		Metrics:             billingMetrics,
		Logger:              logger,
	})
	if err != nil {
		return err
	}

	handler, err := api.NewHandler(api.Config{
		Provider:        provider,
		SignatureHeader: stripe.SignatureHeader,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	servers := []*http.Server{newServer(cfg.ListenAddr, api.NewRouter(handler))}
	if registry != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		servers = append(servers, newServer(cfg.MetricsAddr, mux))
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		srv := srv
		zlog.Info().Str("addr", srv.Addr).Str("backend", cfg.StoreBackend).Msg("listening")
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s: %w", srv.Addr, err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		zlog.Info().Msg("shutting down")
	case err = <-errCh:
		zlog.Error().Err(err).Msg("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			zlog.Warn().Err(shutdownErr).Str("addr", srv.Addr).Msg("shutdown incomplete")
		}
	}
	return err
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
}
