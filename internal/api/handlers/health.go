package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const checkTimeout = 2 * time.Second

type HealthHandler struct {
	health healthcheck.Handler
}

// NewHealthHandler wires liveness and readiness checks. rdb may be nil when the
// in-process cache is used.
func NewHealthHandler(db *sqlx.DB, rdb *redis.Client) *HealthHandler {
	h := healthcheck.NewHandler()

	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))
	h.AddReadinessCheck("database", healthcheck.DatabasePingCheck(db.DB, checkTimeout))
	if rdb != nil {
		h.AddReadinessCheck("redis", healthcheck.Timeout(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
			defer cancel()
			return rdb.Ping(ctx).Err()
		}, checkTimeout))
	}

	return &HealthHandler{health: h}
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.health.LiveEndpoint(w, r)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	h.health.ReadyEndpoint(w, r)
}
