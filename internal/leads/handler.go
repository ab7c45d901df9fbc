package leads

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/microburbs/lead-intake/pkg/logging"
)

// maxBodyBytes bounds lead form payloads; anything larger is not a
// browser form post.
const maxBodyBytes = 64 << 10

// Handler handles HTTP requests for lead submissions
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Submit handles POST /lead requests
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request body"})
		return
	}

	meta := RequestMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}

	result, err := h.service.Submit(r.Context(), body, meta)
	if err != nil {
		var verr *ValidationError
		var rerr *RateLimitError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":   "Invalid form data",
				"details": verr.Fields,
			})
		case errors.As(err, &rerr):
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rerr.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rerr.Remaining))
			w.Header().Set("X-RateLimit-Reset", rerr.Reset.UTC().Format(time.RFC3339))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error": "Too many requests. Please try again later.",
			})
		default:
			h.logger.Error("lead submission failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error": "Internal server error. Please try again.",
			})
		}
		return
	}

	if result.Spam {
		// Indistinguishable from success so bots learn nothing.
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"leadId":  result.LeadID,
	})
}

// Preflight handles OPTIONS /lead requests
func (h *Handler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// clientIP resolves the submitting client's address, preferring proxy
// headers over the socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
