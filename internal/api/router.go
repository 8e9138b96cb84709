package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kamalsharma29/crm-dashboard/internal/ai"
	"github.com/kamalsharma29/crm-dashboard/internal/analytics"
	"github.com/kamalsharma29/crm-dashboard/internal/api/handlers"
	"github.com/kamalsharma29/crm-dashboard/internal/api/middleware"
	"github.com/kamalsharma29/crm-dashboard/internal/attachments"
	"github.com/kamalsharma29/crm-dashboard/internal/auth"
	"github.com/kamalsharma29/crm-dashboard/internal/authz"
	"github.com/kamalsharma29/crm-dashboard/internal/leads"
	"github.com/kamalsharma29/crm-dashboard/internal/security"
	"github.com/kamalsharma29/crm-dashboard/internal/users"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Logger *slog.Logger

	JWTService        *auth.JWTService
	AuthService       *auth.Service
	LeadService       *leads.Service
	UserService       *users.Service
	AnalyticsService  *analytics.Service
	AIService         *ai.Service
	AttachmentService *attachments.Service
	RateLimiter       *security.RateLimiter
	GatewayPolicy     *middleware.GatewayPolicy // nil uses the default policy
	AllowedOrigins    []string
	CookieSecure      bool
	TrustProxyHeaders bool
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	policy := middleware.DefaultGatewayPolicy()
	if cfg.GatewayPolicy != nil {
		policy = *cfg.GatewayPolicy
	}
	gateway := middleware.NewGateway(policy, cfg.RateLimiter, cfg.JWTService, cfg.Logger)

	// Global middleware
	r.Use(chimw.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics)

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(gateway.Handler)

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.CookieSecure, cfg.Logger)
	leadHandler := handlers.NewLeadHandler(cfg.LeadService, cfg.Logger)
	userHandler := handlers.NewUserHandler(cfg.UserService, cfg.AuthService, cfg.Logger)
	analyticsHandler := handlers.NewAnalyticsHandler(cfg.AnalyticsService, cfg.Logger)
	aiHandler := handlers.NewAIHandler(cfg.AIService, cfg.Logger)
	attachmentHandler := handlers.NewAttachmentHandler(cfg.AttachmentService, cfg.Logger)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		r.Get("/me", userHandler.Me)
		r.Put("/me", userHandler.UpdateMe)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", leadHandler.List)
			r.Post("/", leadHandler.Create)
			r.Get("/{id}", leadHandler.Get)
			r.Put("/{id}", leadHandler.Update)
			r.Delete("/{id}", leadHandler.Delete)

			r.Get("/{id}/attachments", attachmentHandler.List)
			r.Post("/{id}/attachments", attachmentHandler.Upload)
			r.Get("/{id}/attachments/{attachmentId}", attachmentHandler.Download)
			r.Delete("/{id}/attachments/{attachmentId}", attachmentHandler.Delete)
		})

		r.Route("/users", func(r chi.Router) {
			// Self-or-admin reads and updates are checked by the users service.
			r.Get("/{id}", userHandler.Get)
			r.Put("/{id}", userHandler.Update)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(authz.ManageUsers))
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
				r.Delete("/{id}", userHandler.Delete)
			})
		})

		r.Get("/analytics", analyticsHandler.Get)
		r.Post("/ai/generate-email", aiHandler.GenerateEmail)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`))
	})

	return &Router{r}
}
