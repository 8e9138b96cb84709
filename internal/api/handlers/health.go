package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const healthTimeout = 2 * time.Second

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

type dependency struct {
	name     string
	required bool
	ping     func(ctx context.Context) error
}

// HealthHandler reports dependency reachability. The database is required.
// Redis is optional because rate limiting and notifications fall back
// without it, so losing it only degrades the service.
type HealthHandler struct {
	deps []dependency
}

func NewHealthHandler(db *gorm.DB, rdb *redis.Client) *HealthHandler {
	h := &HealthHandler{}
	h.deps = append(h.deps, dependency{
		name:     "database",
		required: true,
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})
	if rdb != nil {
		h.deps = append(h.deps, dependency{
			name: "redis",
			ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return h
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

func (h *HealthHandler) check(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: statusHealthy, Services: make(map[string]string, len(h.deps))}
	for _, dep := range h.deps {
		if err := dep.ping(ctx); err != nil {
			resp.Services[dep.name] = statusUnhealthy
			if dep.required {
				resp.Status = statusUnhealthy
			} else if resp.Status == statusHealthy {
				resp.Status = statusDegraded
			}
			continue
		}
		resp.Services[dep.name] = statusHealthy
	}
	return resp
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := h.check(r.Context())

	code := http.StatusOK
	if resp.Status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// Ready answers plain text for load balancers: "ok" unless a required
// dependency is down.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.check(r.Context()).Status == statusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
