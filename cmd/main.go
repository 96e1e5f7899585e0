package main

import (
	"complaintdesk/backend/internal/api"
	"complaintdesk/backend/internal/api/handler"
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/eventhub"
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"complaintdesk/backend/internal/telegram"
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// backend is the storage plus the event source the hub listens to.
type backend interface {
	storage.Storage
	storage.EventSource
}

func setupStorage(ctx context.Context, cfg config.Config) backend {
	if cfg.StorageDriver == config.DriverMemory {
		log.Println("WARNING: Using in-memory storage, data is lost on restart.")
		mem := storage.NewMemoryStorage()
		seedDemoUsers(ctx, mem, auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL))
		return mem
	}

	db, err := storage.OpenPostgres(cfg.PostgresDSN(), cfg.DBLogLevel)
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatalf("Failed to connect Redis: %v", err)
		}
	} else {
		log.Println("WARNING: REDIS_ADDR not set, events stay inside this process.")
	}

	log.Println("INFO: Database connection established, migrations complete.")
	return storage.NewStorageService(db, rdb)
}

// seedDemoUsers creates one admin and one client in the memory store and logs
// their tokens, since there is no other way to get accounts into it.
func seedDemoUsers(ctx context.Context, s storage.Storage, tokens *auth.Tokens) {
	for _, u := range []*models.User{
		{Username: "admin", Role: models.RoleAdmin},
		{Username: "client", Role: models.RoleClient},
	} {
		if err := s.SaveUser(ctx, u); err != nil {
			log.Fatalf("Failed to seed user %s: %v", u.Username, err)
		}
		token, err := tokens.Generate(u.ID)
		if err != nil {
			log.Fatalf("Failed to issue token for %s: %v", u.Username, err)
		}
		log.Printf("INFO: Demo %s %q token: %s", u.Role, u.Username, token)
	}
}

func main() {
	log.Println("Starting complaint desk backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Error loading .env file")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Залежності
	s := setupStorage(ctx, cfg)
	complaints := complaint.NewService(s)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	// 2. Event hub
	hub := eventhub.NewManagerService(s)
	go func() {
		if err := hub.Run(ctx); err != nil {
			log.Printf("ERROR: Event hub stopped: %v", err)
		}
	}()

	// 3. Telegram (необов'язково)
	if cfg.TelegramEnabled() {
		localizer, err := localization.NewLocalizer(cfg.LocalizationDir)
		if err != nil {
			log.Fatalf("Failed to load translations: %v", err)
		}
		botService, err := telegram.NewBotService(cfg.TelegramBotToken, cfg.TelegramAdminChatID, cfg.TelegramLanguage, hub, s, localizer)
		if err != nil {
			log.Fatalf("Failed to start Telegram bot: %v", err)
		}
		go botService.Run(ctx)
	}

	// 4. HTTP
	h := handler.NewHandler(complaints, s, tokens, hub)
	server := &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        api.NewRouter(cfg, h),
		ReadTimeout:    cfg.HTTPReadTimeout,
		WriteTimeout:   cfg.HTTPWriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("INFO: Listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("INFO: Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Graceful shutdown failed: %v", err)
	}
}
