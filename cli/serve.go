package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"projtrack/dao/query"
	"projtrack/logutils"
	"projtrack/service"
	"projtrack/storage"
	"projtrack/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const readHeaderTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the database and serve the REST API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		gin.SetMode(cfg.Server.Mode)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := query.Open(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := query.Close(db); err != nil {
				logutils.Log.WithError(err).Warn("failed to close database")
			}
		}()
		if err := query.Migrate(db); err != nil {
			return err
		}

		store, err := storage.New(ctx, cfg)
		if err != nil {
			return err
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		router := service.NewRouter(service.Deps{
			Config:   cfg,
			DB:       db,
			Store:    store,
			Tokens:   util.NewTokenManager(cfg.Auth.JWTSecret, cfg.TokenTTL()),
			Registry: registry,
		})
		srv := &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			logutils.Log.WithField("addr", srv.Addr).Info("server listening")
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

		logutils.Log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	},
}
