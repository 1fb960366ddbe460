// Package healthcheck reports whether the service and its backing stores are
// reachable.
package healthcheck

import (
	"context"
	"database/sql"
	"encoding/json"
	"eventers-ticketing-backend/logger"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 2 * time.Second

type Status struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Self answers as long as the process is serving.
func Self(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(Status{Status: "ok"})
}

// Dependencies pings mysql and redis and reports 503 when either is down.
func Dependencies(db *sql.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		st := Status{Status: "ok", Checks: map[string]string{"mysql": "ok", "redis": "ok"}}
		if err := db.PingContext(ctx); err != nil {
			logger.Errorf(ctx, "healthcheck: mysql ping failed: %+v", err)
			st.Status, st.Checks["mysql"] = "unavailable", err.Error()
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Errorf(ctx, "healthcheck: redis ping failed: %+v", err)
			st.Status, st.Checks["redis"] = "unavailable", err.Error()
		}

		code := http.StatusOK
		if st.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(st)
	}
}
