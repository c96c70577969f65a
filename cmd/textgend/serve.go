package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"textgen/internal/httpapi"
	"textgen/internal/manager"
	"textgen/internal/textgen"
)

const shutdownGrace = 5 * time.Second

func runServeCmd(cmd *cobra.Command, opts *options) error {
	cfg, log, err := setup(cmd, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr := manager.NewWithConfig(manager.Config{
		Model:           cfg.Model,
		MaxConcurrent:   cfg.MaxConcurrent,
		MaxWait:         cfg.MaxWait.Std(),
		ConversationTTL: cfg.ConversationTTL.Std(),
		Logger:          log,
	})
	defer func() {
		if err := mgr.Close(); err != nil {
			log.Warn().Err(err).Msg("close model")
		}
	}()

	httpapi.SetLogger(log)
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetGenerateTimeout(cfg.GenerateTimeout.Std())
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)
	httpapi.SetBaseContext(ctx)

	mgr.LoadAsync(ctx, func(ctx context.Context) (*textgen.Pipeline, error) {
		return buildPipeline(ctx, cfg, log)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Addr).
			Str("model", cfg.Model).
			Str("backend", cfg.Backend).
			Str("model_dir", cfg.ModelDir).
			Msg("textgend listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
