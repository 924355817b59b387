package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/goProof/httpapi"
	promexport "github.com/MrEthical07/goProof/metrics/export/prometheus"
	"github.com/MrEthical07/goProof/notify"
	"github.com/prometheus/client_golang/prometheus"
)

func serve(ctx context.Context, cfg envConfig, logger *slog.Logger) error {
	engine, rdb, cleanup, err := openEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := httpapi.Options{
		ExposeTokens: cfg.ExposeTokens,
		TrustProxy:   cfg.TrustProxy,
		Logger:       logger,
	}
	if cfg.SMTPAddr != "" {
		send, err := notify.NewSMTPSender(notify.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			return err
		}
		channel, err := notify.NewMailChannel(send, nil, notify.MailConfig{})
		if err != nil {
			return err
		}
		opts.Channel = channel
	}
	if opts.Admin, err = newAdminManager(cfg); err != nil {
		return err
	}
	if cfg.Metrics {
		var extra []prometheus.Collector
		if rdb != nil {
			extra = append(extra, promexport.NewRedisPoolCollector(rdb))
		}
		if opts.Metrics, err = promexport.NewExporter(engine).Handler(extra...); err != nil {
			return err
		}
	}
	if cfg.ExposeTokens {
		logger.Warn("issued tokens are returned in HTTP responses", "component", "server")
	}
	for _, w := range engine.SecurityReport().Warnings {
		logger.Warn("security posture", "component", "server", "warning", w)
	}

	router, err := httpapi.NewRouter(engine, opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("goproof listening", "component", "server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "component", "server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
