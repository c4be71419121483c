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

	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cleanpath/cleanpath-api/api"
	"github.com/cleanpath/cleanpath-api/api/handlers"
	"github.com/cleanpath/cleanpath-api/config"
	"github.com/cleanpath/cleanpath-api/databases"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	conf := config.New()
	defer func() { _ = zap.L().Sync() }()
	api.QueryTimeout = conf.QueryTimeout

	if err := run(conf); err != nil {
		zap.S().Fatalw("cleanpath-api stopped", "error", err)
	}
}

func run(conf *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := databases.NewClient(conf)
	if err != nil {
		return fmt.Errorf("failed to create database client: %w", err)
	}
	connectCtx, cancel := context.WithTimeout(ctx, conf.QueryTimeout)
	err = client.Connect(connectCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			zap.S().Errorw("failed to disconnect from database", "error", err)
		}
	}()
	zap.S().Info("cleanpath-api has connected to the database")

	a := handlers.App{Config: *conf}
	if err := a.Initialize(ctx, client); err != nil {
		return err
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   conf.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	var h http.Handler = a.Router
	h = api.TimeoutMiddleware(conf.RequestTimeout)(h)
	h = api.LoggingMiddleware(h)
	h = corsHandler(h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", conf.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("cleanpath-api is up and running",
			"port", conf.Port,
			"url", conf.BaseURL,
		)
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

	zap.S().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.RequestTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
