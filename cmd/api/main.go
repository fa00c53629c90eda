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

	"disputedesk/api/internal/ai"
	"disputedesk/api/internal/app"
	"disputedesk/api/internal/authpw"
	"disputedesk/api/internal/config"
	"disputedesk/api/internal/dispute"
	"disputedesk/api/internal/export"
	"disputedesk/api/internal/generation"
	"disputedesk/api/internal/objstore"
	"disputedesk/api/internal/ocr"
	"disputedesk/api/internal/search"
	"disputedesk/api/internal/session"
	"disputedesk/api/internal/store"
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

	sessions, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer sessions.Close()

	authn := authpw.NewService(dataStore, dataStore, sessions)
	tracker := session.NewTracker(sessions, authn, dataStore, cfg.TokenSecret, cfg.SessionTTL)

	if cfg.GenerationURL == "" {
		log.Fatalf("DISPUTEDESK_GENERATION_URL is required")
	}
	generator := generation.New(cfg.GenerationURL)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)

	var uploads *objstore.Store
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		uploads, err = objstore.New(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Printf("WARNING: object storage unavailable, direct uploads disabled: %v", err)
			uploads = nil
		}
	}

	exportService := export.NewService(dataStore)

	service := app.NewService(dataStore, tracker, generator, searchService, uploads, exportService)
	service.ReindexSearch(ctx)

	// Letter completion for direct uploads needs both AI collaborators.
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if cfg.VisionAPIKey != "" && cfg.GeminiAPIKey != "" {
		completer := dispute.NewCompleter(
			dataStore,
			ocr.NewClient(cfg.VisionAPIKey),
			ai.NewLetterClient(cfg.GeminiAPIKey, cfg.GeminiModel),
			time.Minute,
		)
		go completer.Run(workerCtx)
	} else {
		log.Printf("letter completion disabled: VISION_API_KEY and GEMINI_API_KEY not configured")
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("DisputeDesk API listening on %s", cfg.Addr)
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
