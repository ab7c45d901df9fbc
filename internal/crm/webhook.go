package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/microburbs/lead-intake/internal/leads"
)

// Config describes how to reach the CRM webhook target.
type Config struct {
	WebhookURL string
	Timeout    time.Duration
}

// WebhookForwarder POSTs accepted leads to an external CRM endpoint.
// The response body is opaque to this service; anything non-2xx counts
// as a failure for the caller to log.
type WebhookForwarder struct {
	url  string
	http *http.Client
}

// NewWebhookForwarder validates the configuration and returns a
// ready-to-use forwarder.
func NewWebhookForwarder(cfg Config) (*WebhookForwarder, error) {
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		return nil, errors.New("crm: webhook URL required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookForwarder{
		url: cfg.WebhookURL,
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type webhookPayload struct {
	LeadID    string `json:"leadId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
	Message   string `json:"message,omitempty"`
	Source    string `json:"source"`
	Variant   string `json:"variant,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Forward sends the normalized lead as JSON.
func (f *WebhookForwarder) Forward(ctx context.Context, lead *leads.Lead) error {
	payload := webhookPayload{
		LeadID:    lead.ID,
		Name:      lead.Name,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Role:      lead.Role,
		Message:   lead.Message,
		Source:    lead.Source,
		Variant:   lead.Variant,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("crm: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("crm: webhook request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("crm: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
