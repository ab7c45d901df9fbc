package leads

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/microburbs/lead-intake/internal/observability/metrics"
	"github.com/microburbs/lead-intake/internal/ratelimit"
	"github.com/microburbs/lead-intake/pkg/logging"
)

// Forwarder pushes an accepted lead to an external CRM.
type Forwarder interface {
	Forward(ctx context.Context, lead *Lead) error
}

// ConfirmationSender sends the submitter a confirmation email.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, lead *Lead) error
}

// ServiceConfig wires the pipeline's collaborators. Repo and Limiter
// are required; Forwarder, Confirmer and Metrics are optional side
// channels whose failures never reach the caller.
type ServiceConfig struct {
	Repo          Repository
	Limiter       ratelimit.Store
	Forwarder     Forwarder
	Confirmer     ConfirmationSender
	Metrics       *metrics.LeadMetrics
	Logger        *logging.Logger
	HoneypotField string
}

// Service runs the lead intake pipeline: rate limit, validate,
// honeypot, normalize, persist, forward, confirm. Each call is an
// independent unit of work; the rate-limit store is the only shared
// state.
type Service struct {
	repo          Repository
	limiter       ratelimit.Store
	forwarder     Forwarder
	confirmer     ConfirmationSender
	metrics       *metrics.LeadMetrics
	logger        *logging.Logger
	honeypotField string
	sanitizer     *bluemonday.Policy
}

// NewService creates the pipeline service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Repo == nil {
		panic("leads: repository required")
	}
	if cfg.Limiter == nil {
		panic("leads: rate limit store required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	honeypotField := cfg.HoneypotField
	if honeypotField == "" {
		honeypotField = "website_url"
	}
	return &Service{
		repo:          cfg.Repo,
		limiter:       cfg.Limiter,
		forwarder:     cfg.Forwarder,
		confirmer:     cfg.Confirmer,
		metrics:       cfg.Metrics,
		logger:        logger,
		honeypotField: honeypotField,
		sanitizer:     bluemonday.StrictPolicy(),
	}
}

// Submit runs one raw payload through the pipeline.
//
// It returns exactly one of: a *RateLimitError, a *ValidationError, or
// a SubmitResult. Honeypot-triggered spam comes back as a success-shaped
// result with no side effects. Datastore, CRM and email failures are
// absorbed: they are logged with full context and the caller still gets
// a success result, with PendingLeadID standing in when nothing was
// stored.
func (s *Service) Submit(ctx context.Context, rawPayload []byte, meta RequestMeta) (*SubmitResult, error) {
	start := time.Now()

	key := meta.IPAddress
	if key == "" {
		key = "unknown"
	}
	res, err := s.limiter.Check(ctx, key)
	if err != nil {
		// A broken limiter store is a degraded dependency, not a
		// reason to drop leads.
		s.logger.Warn("rate limit store unavailable, allowing request", "error", err, "ip", key)
	} else if !res.Allowed {
		s.logger.Warn("rate limit exceeded for lead submission", "ip", key)
		s.observe("rate_limited", start)
		return nil, &RateLimitError{Limit: res.Limit, Remaining: res.Remaining, Reset: res.Reset}
	}

	var sub Submission
	if err := json.Unmarshal(rawPayload, &sub); err != nil {
		verr := newValidationError()
		verr.add("body", "invalid JSON payload")
		s.observe("invalid", start)
		return nil, verr
	}

	if verr := Validate(&sub); verr != nil {
		s.logger.Warn("invalid lead form data", "fields", fieldNames(verr), "ip", key)
		s.observe("invalid", start)
		return nil, verr
	}

	if s.honeypotTriggered(rawPayload) {
		// Return success to avoid tipping off bots.
		s.logger.Warn("honeypot triggered, likely spam", "ip", key, "source", sub.Source)
		s.observe("spam", start)
		return &SubmitResult{Spam: true}, nil
	}

	s.normalize(&sub)
	lead := &Lead{
		Name:             sub.Name,
		Email:            sub.Email,
		Phone:            sub.Phone,
		Role:             sub.Role,
		Message:          sub.Message,
		MarketingConsent: sub.MarketingConsent,
		Source:           sub.Source,
		Variant:          sub.Variant,
		UserAgent:        meta.UserAgent,
		IPAddress:        meta.IPAddress,
		Referrer:         meta.Referrer,
	}

	leadID := PendingLeadID
	stored, err := s.repo.Create(ctx, lead)
	if err != nil {
		// Degraded-durability mode: the full submission goes to the
		// log so nothing is silently lost.
		s.logger.Warn("database unavailable, lead captured in logs",
			"error", err,
			"name", lead.Name,
			"email", lead.Email,
			"phone", lead.Phone,
			"role", lead.Role,
			"source", lead.Source,
			"variant", lead.Variant,
		)
	} else {
		leadID = stored.ID
		lead = stored
		s.logger.Info("lead created",
			"lead_id", stored.ID,
			"email", stored.Email,
			"role", stored.Role,
			"source", stored.Source,
		)
	}
	lead.ID = leadID

	if s.forwarder != nil {
		if err := s.forwarder.Forward(ctx, lead); err != nil {
			s.logger.Error("CRM webhook forward failed", "error", err, "lead_id", leadID)
			s.observeSideEffect("crm", "error")
		} else {
			s.logger.Info("lead forwarded to CRM", "lead_id", leadID)
			s.observeSideEffect("crm", "ok")
		}
	}

	if s.confirmer != nil {
		if err := s.confirmer.SendConfirmation(ctx, lead); err != nil {
			s.logger.Error("confirmation email failed", "error", err, "lead_id", leadID)
			s.observeSideEffect("email", "error")
		} else {
			s.observeSideEffect("email", "ok")
		}
	}

	s.observe("accepted", start)
	s.logger.Info("lead submission completed", "lead_id", leadID, "duration_ms", time.Since(start).Milliseconds())
	return &SubmitResult{LeadID: leadID}, nil
}

// honeypotTriggered reads the configured trap field straight from the
// raw body, so the field can be renamed without touching Submission.
func (s *Service) honeypotTriggered(rawPayload []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rawPayload, &fields); err != nil {
		return false
	}
	raw, ok := fields[s.honeypotField]
	if !ok {
		return false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		// Non-string garbage in the trap field is still not human.
		return true
	}
	return value != ""
}

func (s *Service) normalize(sub *Submission) {
	sub.Email = strings.ToLower(strings.TrimSpace(sub.Email))
	sub.Name = strings.TrimSpace(s.sanitizer.Sanitize(sub.Name))
	sub.Message = s.sanitizer.Sanitize(sub.Message)
	sub.Phone = strings.TrimSpace(sub.Phone)
	if sub.Source == "" {
		sub.Source = "unknown"
	}
}

func (s *Service) observe(outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSubmission(outcome, time.Since(start).Seconds())
	}
}

func (s *Service) observeSideEffect(effect, status string) {
	if s.metrics != nil {
		s.metrics.ObserveSideEffect(effect, status)
	}
}

func fieldNames(verr *ValidationError) []string {
	names := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		names = append(names, f)
	}
	return names
}
