package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microburbs/lead-intake/internal/leads"
)

func testLead() *leads.Lead {
	return &leads.Lead{
		ID:      "lead-123",
		Name:    "Jo Chen",
		Email:   "jo@example.com",
		Phone:   "0412345678",
		Role:    leads.RoleInvestor,
		Message: "Keen on the Newcastle data",
		Source:  "pricing",
		Variant: "b",
		Status:  leads.StatusNew,
	}
}

func TestForwardSendsJSONPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f, err := NewWebhookForwarder(Config{WebhookURL: srv.URL})
	require.NoError(t, err)

	require.NoError(t, f.Forward(context.Background(), testLead()))

	assert.Equal(t, "lead-123", got["leadId"])
	assert.Equal(t, "jo@example.com", got["email"])
	assert.Equal(t, "investor", got["role"])
	assert.Equal(t, "pricing", got["source"])
	assert.NotEmpty(t, got["timestamp"])
}

func TestForwardNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	f, err := NewWebhookForwarder(Config{WebhookURL: srv.URL})
	require.NoError(t, err)

	err = f.Forward(context.Background(), testLead())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestForwardNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	f, err := NewWebhookForwarder(Config{WebhookURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	require.Error(t, f.Forward(context.Background(), testLead()))
}

func TestNewWebhookForwarderRequiresURL(t *testing.T) {
	_, err := NewWebhookForwarder(Config{})
	require.Error(t, err)
}
