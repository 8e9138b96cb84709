package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/kamalsharma29/crm-dashboard/internal/ai"
	"github.com/kamalsharma29/crm-dashboard/internal/analytics"
	"github.com/kamalsharma29/crm-dashboard/internal/api"
	"github.com/kamalsharma29/crm-dashboard/internal/api/validation"
	"github.com/kamalsharma29/crm-dashboard/internal/attachments"
	"github.com/kamalsharma29/crm-dashboard/internal/auth"
	"github.com/kamalsharma29/crm-dashboard/internal/database"
	"github.com/kamalsharma29/crm-dashboard/internal/leads"
	"github.com/kamalsharma29/crm-dashboard/internal/security"
	"github.com/kamalsharma29/crm-dashboard/internal/tasks"
	"github.com/kamalsharma29/crm-dashboard/internal/users"
	"github.com/kamalsharma29/crm-dashboard/pkg/config"
	"github.com/kamalsharma29/crm-dashboard/pkg/crypto"
	"github.com/kamalsharma29/crm-dashboard/pkg/queue"
	"github.com/kamalsharma29/crm-dashboard/pkg/util"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting CRM server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, background notifications disabled", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	// Lead assignment notices go through the worker queue when Redis is up.
	var (
		asynqClient *asynq.Client
		notifier    leads.Notifier
	)
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		notifier = tasks.NewEnqueuer(asynqClient)
	}

	var limiterStore security.Store
	switch {
	case cfg.RateLimit.Store == "redis" && redisClient != nil:
		limiterStore = security.NewRedisStore(redisClient, "crm:ratelimit:")
	default:
		if cfg.RateLimit.Store == "redis" {
			logger.Warn("RATE_LIMIT_STORE=redis but Redis is unavailable, using memory store")
		}
		limiterStore = security.NewMemoryStore()
	}
	limiter := security.NewRateLimiter(limiterStore, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())
	lockout := security.NewLockout(cfg.Lockout.MaxAttempts, cfg.Lockout.Duration())

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	if encryptor.Ephemeral() {
		logger.Warn("ENCRYPTION_KEY not set, using generated key - attachments will be unreadable after restart")
	}

	store, err := attachments.NewStorage(context.Background(), cfg.Storage)
	if err != nil {
		logger.Error("failed to initialise attachment storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	if store == nil {
		logger.Info("attachment storage disabled")
	}

	if cfg.Session.Secret == "change-me-in-production" && !cfg.Server.IsDevelopment() {
		logger.Warn("JWT_SECRET is the default value")
	}

	jwtService := auth.NewJWTService(cfg.Session.Secret, cfg.Session.MaxAge())
	authService := auth.NewService(db, jwtService, lockout, auth.PasswordPolicy{
		MinLength:        cfg.Password.MinLength,
		RequireUppercase: cfg.Password.RequireUppercase,
		RequireLowercase: cfg.Password.RequireLowercase,
		RequireNumbers:   cfg.Password.RequireNumbers,
		RequireSymbols:   cfg.Password.RequireSymbols,
	})
	uploadRules := validation.UploadRules{
		MaxSize:      cfg.Upload.MaxFileSize,
		AllowedTypes: cfg.Upload.AllowedTypes,
	}

	router := api.NewRouter(api.RouterConfig{
		DB:                db,
		Redis:             redisClient,
		Logger:            logger,
		JWTService:        jwtService,
		AuthService:       authService,
		LeadService:       leads.NewService(db, notifier, logger),
		UserService:       users.NewService(db),
		AnalyticsService:  analytics.NewService(db),
		AIService:         ai.NewService(ai.NewGeminiGenerator(cfg.AI.GeminiAPIKey, cfg.AI.Model)),
		AttachmentService: attachments.NewService(db, store, encryptor, uploadRules, logger),
		RateLimiter:       limiter,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		CookieSecure:      cfg.Session.CookieSecure,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if c, ok := limiterStore.(io.Closer); ok {
		c.Close()
	}
	lockout.Close()

	if c, ok := store.(io.Closer); ok {
		c.Close()
	}

	if asynqClient != nil {
		asynqClient.Close()
	}

	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.Close()
	}

	logger.Info("server stopped")
}
