package notify

import (
	"context"
	"fmt"

	"github.com/microburbs/lead-intake/internal/leads"
	"github.com/microburbs/lead-intake/pkg/logging"
)

// LeadConfirmer emails a submitter a confirmation that their enquiry
// was received. It satisfies the pipeline's ConfirmationSender.
type LeadConfirmer struct {
	sender EmailSender
	logger *logging.Logger
}

// NewLeadConfirmer creates a confirmer on top of any EmailSender.
// Returns nil when no sender is configured so the pipeline skips the
// step entirely.
func NewLeadConfirmer(sender EmailSender, logger *logging.Logger) *LeadConfirmer {
	if sender == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadConfirmer{sender: sender, logger: logger}
}

// SendConfirmation sends the thank-you email for an accepted lead.
func (c *LeadConfirmer) SendConfirmation(ctx context.Context, lead *leads.Lead) error {
	greeting := "Hi"
	if lead.Name != "" {
		greeting = "Hi " + lead.Name
	}

	msg := EmailMessage{
		To:      lead.Email,
		ToName:  lead.Name,
		Subject: "Thanks for your interest in Microburbs",
		Body: fmt.Sprintf(
			"%s,\n\nThanks for getting in touch. We've received your enquiry and one of the team will be back to you within one business day.\n\nThe Microburbs team\n",
			greeting,
		),
	}

	if err := c.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: confirmation email: %w", err)
	}
	c.logger.Info("confirmation email queued", "lead_id", lead.ID, "email", lead.Email)
	return nil
}
