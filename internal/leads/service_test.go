package leads

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/microburbs/lead-intake/internal/ratelimit"
	"github.com/microburbs/lead-intake/pkg/logging"
)

type mockRepo struct {
	created []*Lead
	err     error
}

func (m *mockRepo) Create(_ context.Context, lead *Lead) (*Lead, error) {
	if m.err != nil {
		return nil, m.err
	}
	stored := *lead
	stored.ID = "lead-1"
	stored.Status = StatusNew
	stored.CreatedAt = time.Now().UTC()
	m.created = append(m.created, &stored)
	return &stored, nil
}

func (m *mockRepo) GetByID(context.Context, string) (*Lead, error) {
	return nil, ErrLeadNotFound
}

type stubLimiter struct {
	res ratelimit.Result
	err error
}

func (s *stubLimiter) Check(context.Context, string) (ratelimit.Result, error) {
	return s.res, s.err
}

func allowAll() *stubLimiter {
	return &stubLimiter{res: ratelimit.Result{Allowed: true, Limit: 5, Remaining: 4, Reset: time.Now().Add(time.Minute)}}
}

type mockForwarder struct {
	calls int
	last  *Lead
	err   error
}

func (m *mockForwarder) Forward(_ context.Context, lead *Lead) error {
	m.calls++
	m.last = lead
	return m.err
}

type mockConfirmer struct {
	calls int
	err   error
}

func (m *mockConfirmer) SendConfirmation(_ context.Context, _ *Lead) error {
	m.calls++
	return m.err
}

func newTestService(t *testing.T, cfg ServiceConfig) (*Service, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	if cfg.Logger == nil {
		cfg.Logger = logging.NewWithWriter(&buf, "debug")
	}
	if cfg.Repo == nil {
		cfg.Repo = &mockRepo{}
	}
	if cfg.Limiter == nil {
		cfg.Limiter = allowAll()
	}
	return NewService(cfg), &buf
}

func meta() RequestMeta {
	return RequestMeta{IPAddress: "203.0.113.9", UserAgent: "go-test", Referrer: "https://microburbs.com.au/pricing"}
}

func TestSubmitValidPayload(t *testing.T) {
	repo := &mockRepo{}
	svc, _ := newTestService(t, ServiceConfig{Repo: repo})

	payload := []byte(`{"email": "a@b.com", "role": "investor", "website_url": ""}`)
	result, err := svc.Submit(context.Background(), payload, meta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Spam {
		t.Fatal("valid submission flagged as spam")
	}
	if result.LeadID != "lead-1" {
		t.Fatalf("expected generated lead id, got %q", result.LeadID)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 record created, got %d", len(repo.created))
	}

	lead := repo.created[0]
	if lead.Status != StatusNew {
		t.Errorf("expected status %q, got %q", StatusNew, lead.Status)
	}
	if lead.IPAddress != "203.0.113.9" || lead.UserAgent != "go-test" {
		t.Errorf("request metadata not captured: %+v", lead)
	}
	if lead.Source != "unknown" {
		t.Errorf("expected source defaulted to unknown, got %q", lead.Source)
	}
	if lead.MarketingConsent {
		t.Error("expected marketing consent defaulted to false")
	}
}

func TestSubmitValidationListsEveryField(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})

	payload := []byte(`{"message": "hello"}`)
	_, err := svc.Submit(context.Background(), payload, meta())

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields["email"]) == 0 || len(verr.Fields["role"]) == 0 {
		t.Fatalf("expected email and role violations, got %v", verr.Fields)
	}
}

func TestSubmitMalformedEmail(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})

	payload := []byte(`{"email": "not-an-email", "role": "investor"}`)
	_, err := svc.Submit(context.Background(), payload, meta())

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields["email"]) == 0 {
		t.Fatalf("expected email violation, got %v", verr.Fields)
	}
}

func TestSubmitInvalidJSON(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})

	_, err := svc.Submit(context.Background(), []byte(`{"email":`), meta())

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for malformed JSON, got %v", err)
	}
}

func TestSubmitHoneypotDisguisedSuccess(t *testing.T) {
	repo := &mockRepo{}
	forwarder := &mockForwarder{}
	confirmer := &mockConfirmer{}
	svc, _ := newTestService(t, ServiceConfig{Repo: repo, Forwarder: forwarder, Confirmer: confirmer})

	payload := []byte(`{"email": "a@b.com", "role": "investor", "website_url": "http://spam.example"}`)
	result, err := svc.Submit(context.Background(), payload, meta())
	if err != nil {
		t.Fatalf("honeypot must not surface an error: %v", err)
	}
	if !result.Spam {
		t.Fatal("expected spam verdict")
	}
	if len(repo.created) != 0 {
		t.Fatal("spam submission must not be persisted")
	}
	if forwarder.calls != 0 {
		t.Fatal("spam submission must not be forwarded")
	}
	if confirmer.calls != 0 {
		t.Fatal("spam submission must not trigger email")
	}
}

func TestSubmitHoneypotCustomFieldName(t *testing.T) {
	repo := &mockRepo{}
	svc, _ := newTestService(t, ServiceConfig{Repo: repo, HoneypotField: "company_site"})

	payload := []byte(`{"email": "a@b.com", "role": "other", "company_site": "x"}`)
	result, err := svc.Submit(context.Background(), payload, meta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Spam {
		t.Fatal("expected renamed trap field to trigger")
	}

	// The default field name is ignored once renamed.
	payload = []byte(`{"email": "a@b.com", "role": "other", "website_url": "x"}`)
	result, err = svc.Submit(context.Background(), payload, meta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Spam {
		t.Fatal("default trap field should not trigger after rename")
	}
}

func TestSubmitRateLimited(t *testing.T) {
	reset := time.Now().Add(30 * time.Second)
	limiter := &stubLimiter{res: ratelimit.Result{Allowed: false, Limit: 5, Remaining: 0, Reset: reset}}
	repo := &mockRepo{}
	svc, _ := newTestService(t, ServiceConfig{Repo: repo, Limiter: limiter})

	_, err := svc.Submit(context.Background(), []byte(`{"email": "a@b.com", "role": "investor"}`), meta())

	var rerr *RateLimitError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if rerr.Limit != 5 || rerr.Remaining != 0 || !rerr.Reset.Equal(reset) {
		t.Fatalf("expected window metadata propagated, got %+v", rerr)
	}
	if len(repo.created) != 0 {
		t.Fatal("rate-limited submission must not be persisted")
	}
}

func TestSubmitLimiterStoreFailureAllowsRequest(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("redis: connection refused")}
	repo := &mockRepo{}
	svc, buf := newTestService(t, ServiceConfig{Repo: repo, Limiter: limiter})

	result, err := svc.Submit(context.Background(), []byte(`{"email": "a@b.com", "role": "investor"}`), meta())
	if err != nil {
		t.Fatalf("broken limiter store must not reject leads: %v", err)
	}
	if result.LeadID == "" {
		t.Fatal("expected a lead id")
	}
	if !strings.Contains(buf.String(), "rate limit store unavailable") {
		t.Error("expected degraded limiter logged")
	}
}

func TestSubmitEmailNormalizationIdempotent(t *testing.T) {
	repo := &mockRepo{}
	svc, _ := newTestService(t, ServiceConfig{Repo: repo})

	for _, raw := range []string{`"  John@EXAMPLE.com "`, `"john@example.com"`} {
		payload := []byte(`{"email": ` + raw + `, "role": "investor"}`)
		if _, err := svc.Submit(context.Background(), payload, meta()); err != nil {
			t.Fatalf("unexpected error for %s: %v", raw, err)
		}
	}

	if len(repo.created) != 2 {
		t.Fatalf("expected 2 records, got %d", len(repo.created))
	}
	if repo.created[0].Email != "john@example.com" || repo.created[1].Email != "john@example.com" {
		t.Fatalf("expected normalized emails, got %q and %q", repo.created[0].Email, repo.created[1].Email)
	}
}

func TestSubmitDatastoreFailureDowngraded(t *testing.T) {
	repo := &mockRepo{err: errors.New("connection refused")}
	svc, buf := newTestService(t, ServiceConfig{Repo: repo})

	result, err := svc.Submit(context.Background(), []byte(`{"email": "a@b.com", "role": "investor"}`), meta())
	if err != nil {
		t.Fatalf("datastore failure must not fail the request: %v", err)
	}
	if result.LeadID != PendingLeadID {
		t.Fatalf("expected pending placeholder, got %q", result.LeadID)
	}

	// Nothing silently lost: the payload lands in the log.
	out := buf.String()
	if !strings.Contains(out, "database unavailable") || !strings.Contains(out, "a@b.com") {
		t.Errorf("expected full submission logged, got %s", out)
	}
}

func TestSubmitCRMFailureIsAbsorbed(t *testing.T) {
	forwarder := &mockForwarder{err: errors.New("dial tcp: i/o timeout")}
	svc, buf := newTestService(t, ServiceConfig{Forwarder: forwarder})

	result, err := svc.Submit(context.Background(), []byte(`{"email": "a@b.com", "role": "investor"}`), meta())
	if err != nil {
		t.Fatalf("CRM failure must not fail the request: %v", err)
	}
	if result.LeadID != "lead-1" {
		t.Fatalf("expected stored lead id, got %q", result.LeadID)
	}
	if forwarder.calls != 1 {
		t.Fatalf("expected 1 forward attempt, got %d", forwarder.calls)
	}
	if !strings.Contains(buf.String(), "CRM webhook forward failed") {
		t.Error("expected forward failure logged")
	}
}

func TestSubmitForwardsNormalizedLead(t *testing.T) {
	forwarder := &mockForwarder{}
	svc, _ := newTestService(t, ServiceConfig{Forwarder: forwarder})

	payload := []byte(`{"email": " UPPER@Case.Com ", "role": "buyers_agent", "source": "pricing", "variant": "b"}`)
	if _, err := svc.Submit(context.Background(), payload, meta()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if forwarder.last == nil {
		t.Fatal("expected lead forwarded")
	}
	if forwarder.last.Email != "upper@case.com" {
		t.Errorf("forwarded email not normalized: %q", forwarder.last.Email)
	}
	if forwarder.last.Source != "pricing" || forwarder.last.Variant != "b" {
		t.Errorf("attribution not forwarded: %+v", forwarder.last)
	}
}

func TestSubmitEmailFailureIsAbsorbed(t *testing.T) {
	confirmer := &mockConfirmer{err: errors.New("sendgrid 503")}
	svc, buf := newTestService(t, ServiceConfig{Confirmer: confirmer})

	_, err := svc.Submit(context.Background(), []byte(`{"email": "a@b.com", "role": "other"}`), meta())
	if err != nil {
		t.Fatalf("email failure must not fail the request: %v", err)
	}
	if confirmer.calls != 1 {
		t.Fatalf("expected 1 email attempt, got %d", confirmer.calls)
	}
	if !strings.Contains(buf.String(), "confirmation email failed") {
		t.Error("expected email failure logged")
	}
}

func TestSubmitPendingLeadStillForwarded(t *testing.T) {
	repo := &mockRepo{err: errors.New("db down")}
	forwarder := &mockForwarder{}
	svc, _ := newTestService(t, ServiceConfig{Repo: repo, Forwarder: forwarder})

	result, err := svc.Submit(context.Background(), []byte(`{"email": "a@b.com", "role": "investor"}`), meta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.LeadID != PendingLeadID {
		t.Fatalf("expected pending id, got %q", result.LeadID)
	}
	if forwarder.calls != 1 {
		t.Fatal("forwarding should still run when persistence degraded")
	}
	if forwarder.last.ID != PendingLeadID {
		t.Fatalf("expected pending placeholder forwarded, got %q", forwarder.last.ID)
	}
}

func TestSubmitStripsMarkupFromFreeText(t *testing.T) {
	repo := &mockRepo{}
	svc, _ := newTestService(t, ServiceConfig{Repo: repo})

	payload := []byte(`{"email": "a@b.com", "role": "other", "name": "<b>Sam</b>", "message": "hello <script>alert(1)</script>world"}`)
	if _, err := svc.Submit(context.Background(), payload, meta()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lead := repo.created[0]
	if lead.Name != "Sam" {
		t.Errorf("expected markup stripped from name, got %q", lead.Name)
	}
	if strings.Contains(lead.Message, "<script>") {
		t.Errorf("expected script stripped from message, got %q", lead.Message)
	}
}
