package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmynk/ajoledger/internal/auth"
	"github.com/mmynk/ajoledger/internal/config"
	"github.com/mmynk/ajoledger/internal/server"
	"github.com/mmynk/ajoledger/internal/service"
	"github.com/mmynk/ajoledger/internal/storage/sqlite"
	"github.com/mmynk/ajoledger/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("storage initialized", "database", cfg.Database.Path)

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	authenticator := auth.NewPasswordAuthenticator(store)

	positions := service.NewPositionService(store)
	distributions, err := service.NewDistributionService(store, positions, service.CollectionPolicy{
		Mode:      service.PolicyMode(cfg.Distribution.Policy),
		Threshold: cfg.Distribution.Threshold,
	})
	if err != nil {
		return fmt.Errorf("invalid distribution policy: %w", err)
	}

	srv := server.New(server.Options{
		Authenticator:     authenticator,
		JWTManager:        jwtManager,
		Groups:            service.NewGroupService(store, positions),
		Members:           service.NewMembershipService(store, positions),
		Positions:         positions,
		Contributions:     service.NewContributionService(store),
		Distributions:     distributions,
		Summaries:         service.NewSummaryService(store),
		RateLimitRequests: cfg.RateLimit.Requests,
		RateLimitWindow:   cfg.RateLimit.Window,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
