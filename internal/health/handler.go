package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/microburbs/lead-intake/pkg/logging"
)

// Pinger reports whether the datastore is reachable. A nil Pinger means
// the service runs without a database and the check is skipped.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves GET /health for monitoring and deploy verification.
type Handler struct {
	db     Pinger
	logger *logging.Logger
}

// NewHandler creates a health handler.
func NewHandler(db Pinger, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{db: db, logger: logger}
}

// Check reports per-dependency health. 200 when everything passes,
// 503 when any check fails.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	checks := map[string]bool{
		"server":   true,
		"database": false,
	}

	if h.db == nil {
		delete(checks, "database")
	} else if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("database health check failed", "error", err)
	} else {
		checks["database"] = true
	}

	healthy := true
	for _, ok := range checks {
		if !ok {
			healthy = false
			break
		}
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
