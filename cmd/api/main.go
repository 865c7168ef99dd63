package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"huddle/api/internal/app"
	"huddle/api/internal/attach"
	"huddle/api/internal/authpw"
	"huddle/api/internal/config"
	"huddle/api/internal/search"
	"huddle/api/internal/session"
	"huddle/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	authService := authpw.NewService(dataStore)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)
	searchService.ReindexAllFromPG(ctx)

	var attachService *attach.Service
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		attachService, err = attach.New(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("object storage connection failed: %v", err)
		}
		log.Printf("Attachments stored in bucket %q at %s", cfg.MinioBucket, cfg.MinioEndpoint)
	} else {
		log.Printf("No object storage configured; attachment uploads disabled")
	}

	var sessions *session.RedisStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		sessions, err = session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer sessions.Close()
		log.Printf("Using Redis for refresh token storage")
	} else {
		log.Printf("Using PostgreSQL for refresh token storage")
	}

	var service *app.Service
	if sessions != nil {
		service = app.New(cfg, dataStore, sessions, authService, searchService, attachService)
	} else {
		service = app.New(cfg, dataStore, nil, authService, searchService, attachService)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Huddle API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
