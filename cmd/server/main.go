package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calsift/calsift/internal/api"
	appauth "github.com/calsift/calsift/internal/auth"
	"github.com/calsift/calsift/internal/config"
	"github.com/calsift/calsift/internal/feed"
	httpserver "github.com/calsift/calsift/internal/http"
	"github.com/calsift/calsift/internal/refresh"
	"github.com/calsift/calsift/internal/store"
)

func main() {
	log.Println("Starting CalSift server...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("failed to create db pool: %v", err)
	}
	defer pool.Close()

	if err := store.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	stor := store.New(pool)

	feeds := feed.NewService(feed.NewFetcher(), cfg.Feed.ExpandPast, cfg.Feed.ExpandAhead)
	refresher, err := refresh.New(cfg.Feed.RefreshSpec, stor.Calendars, feeds)
	if err != nil {
		log.Fatalf("failed to schedule feed refresh: %v", err)
	}
	refresher.Start()

	sessionManager := appauth.NewSessionManager(cfg)
	authService, err := appauth.NewService(ctx, cfg, stor, sessionManager)
	if err != nil {
		log.Fatalf("failed to initialize auth service: %v", err)
	}

	apiHandler := api.NewHandler(cfg, stor, feeds)
	r := httpserver.NewRouter(cfg, stor, authService, apiHandler)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	// Let an in-flight refresh finish before exiting.
	<-refresher.Stop().Done()
}
