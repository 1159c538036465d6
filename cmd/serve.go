package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"incident-dashboard/internal/config"
	"incident-dashboard/internal/db"
	apihttp "incident-dashboard/internal/http"
	"incident-dashboard/internal/repository"
	"incident-dashboard/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the incident API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return serve(ctx, cfg, appLog)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// newAPI builds the router over an open database.
func newAPI(gdb *gorm.DB, cfg *config.Config, log zerolog.Logger) http.Handler {
	repo := repository.NewIncidentRepository(gdb)
	svc := service.NewIncidentService(repo, log)
	h := apihttp.NewHandler(svc, func(ctx context.Context) error {
		return db.Ping(ctx, gdb)
	}, log)
	return apihttp.NewRouter(h, cfg.Server, cfg.Auth, log)
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	gdb, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}()

	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newAPI(gdb, cfg, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
