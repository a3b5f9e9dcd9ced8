package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kairos_go/internal/ai"
	"kairos_go/internal/config"
	"kairos_go/internal/escalation"
	"kairos_go/internal/httpserver"
	"kairos_go/internal/security"
	"kairos_go/internal/service"
	"kairos_go/internal/store/mongo"
	"kairos_go/internal/ws"
)

// @title           Kairos Wellness API
// @version         1.0
// @description     Backend API for the Kairos mental-wellness companion.

// @host            localhost:8000
// @BasePath        /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize database
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := mongo.Open(ctx, cfg.MongoURL, cfg.MongoDB)
	cancel()
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Client().Disconnect(disconnectCtx)
	}()

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	err = mongo.EnsureIndexes(ctx, db)
	cancel()
	if err != nil {
		log.Fatalf("failed to ensure indexes: %v", err)
	}

	// Security components
	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	passwordHasher := security.NewPasswordHasher(0)

	encryptor, err := security.NewEncryptor([]byte(cfg.FernetKey), cfg.LegacyFernetKeys)
	if err != nil {
		log.Fatalf("failed to initialize encryptor: %v", err)
	}

	// Crisis escalation queue; optional, disabled when REDIS_URL is unset.
	notifier, err := escalation.NewNotifier(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer notifier.Close()

	// Model client with conversation history for reply context.
	history := service.NewHistoryProvider(mongo.NewMessageRepo(db), encryptor)
	responder := ai.New(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, history)
	defer responder.Close()

	// Initialize WebSocket hub
	hub := ws.NewHub()

	// Build HTTP router
	router := httpserver.NewRouter(cfg, db, hub, tokenSvc, passwordHasher, encryptor, responder, notifier)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Starting %s server on %s\n", cfg.AppName, cfg.HTTPAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
