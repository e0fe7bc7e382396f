package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistant/internal/handler"
	"github.com/ashwinyue/next-assistant/internal/router"
	"github.com/ashwinyue/next-assistant/internal/service/auth"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if migrate {
				if err := a.db.Migrate(ctx); err != nil {
					return err
				}
			}
			return serve(ctx, a)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run AutoMigrate before serving")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	gin.SetMode(a.cfg.Server.Mode)

	routerOpts := router.Options{Logger: a.log, Gatherer: a.registry}
	if a.cfg.Auth.Enabled {
		issuer, err := auth.NewService(a.cfg.Auth.JWTSecret, time.Duration(a.cfg.Auth.TokenTTL)*time.Hour)
		if err != nil {
			return err
		}
		routerOpts.Auth = issuer
	}
	r := router.SetupRouter(handler.NewHandlers(a.services), routerOpts)

	srv := &http.Server{
		Addr:         a.cfg.Server.GetAddr(),
		Handler:      r,
		ReadTimeout:  time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server starting", zap.String("addr", srv.Addr))
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

	a.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.log.Info("server exited")
	return nil
}
