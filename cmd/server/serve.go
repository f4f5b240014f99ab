package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/variable-pay/api"
	"github.com/warp/variable-pay/config"
	"github.com/warp/variable-pay/store/sqlite"
)

var (
	servePort int
	serveDB   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := cfg.Server.Port
		if servePort > 0 {
			port = servePort
		}
		dbPath := cfg.DB.Path
		if serveDB != "" {
			dbPath = serveDB
		}

		store, err := sqlite.New(dbPath)
		if err != nil {
			return eris.Wrap(err, "open database")
		}
		defer store.Close()

		svc, err := newService(store)
		if err != nil {
			return err
		}
		if svc.PerTaskRate().IsZero() {
			zap.L().Warn("per-task rate not configured, task-counted calculations will fail")
		}

		handler := api.NewHandler(store, svc)
		router := api.NewRouter(handler, api.RouterOptions{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AccessLog:      cfg.Server.AccessLog,
		})

		if path := watchedConfig(); path != "" {
			go func() {
				if err := config.Watch(ctx, path, config.ApplyRate(svc)); err != nil {
					zap.L().Warn("config watch disabled", zap.String("path", path), zap.Error(err))
				}
			}()
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server forced to shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("server starting",
			zap.Int("port", port),
			zap.String("db", dbPath),
			zap.String("per_task_rate", svc.PerTaskRate().String()),
			zap.Int("claim_limit", svc.ClaimLimit),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server failed")
		}

		zap.L().Info("server stopped")
		return nil
	},
}

// watchedConfig returns the config file to watch for rate changes: the
// --config path, else ./config.yaml when it exists, else "".
func watchedConfig() string {
	if configPath != "" {
		return configPath
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "SQLite database path, \":memory:\" for in-memory (default from config)")
	rootCmd.AddCommand(serveCmd)
}
