package leads

import "time"

// Roles accepted on a lead submission.
const (
	RoleBuyersAgent = "buyers_agent"
	RoleInvestor    = "investor"
	RoleOther       = "other"
)

// StatusNew is the status every lead carries at creation. Nothing in
// this service mutates a lead after it is stored.
const StatusNew = "new"

// PendingLeadID is returned to the caller when the datastore was
// unavailable and the submission was captured in logs only.
const PendingLeadID = "pending"

// Submission is the transient, request-scoped payload posted by a
// marketing-site lead form.
type Submission struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Role             string `json:"role"`
	Message          string `json:"message"`
	MarketingConsent bool   `json:"marketingConsent"`
	Source           string `json:"source"`
	Variant          string `json:"variant"`
}

// Lead is the durable record created for an accepted submission.
type Lead struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Role             string    `json:"role"`
	Message          string    `json:"message"`
	MarketingConsent bool      `json:"marketing_consent"`
	Source           string    `json:"source"`
	Variant          string    `json:"variant"`
	UserAgent        string    `json:"user_agent"`
	IPAddress        string    `json:"ip_address"`
	Referrer         string    `json:"referrer"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// RequestMeta carries the client network context captured by the HTTP
// layer alongside the raw payload.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	Referrer  string
}

// SubmitResult is the outcome of an accepted submission. Spam carries
// the honeypot verdict so the HTTP layer can shape its disguised
// success response; callers outside tests never see the difference.
type SubmitResult struct {
	LeadID string
	Spam   bool
}
