// Package adapters contains thin glue types that connect modules without
// introducing direct dependencies between them.
package adapters

import (
	"context"
	"time"

	"builderportal_backend/internal/email"
	"builderportal_backend/internal/leads/repository"
	"builderportal_backend/platform/logger"
)

// AssignmentNotifier delivers builder-assignment email off the request path.
// Delivery is fire and forget: a failed send is logged, never surfaced.
type AssignmentNotifier struct {
	sender email.Sender
	log    *logger.Logger
}

func NewAssignmentNotifier(sender email.Sender, log *logger.Logger) *AssignmentNotifier {
	return &AssignmentNotifier{sender: sender, log: log}
}

func (n *AssignmentNotifier) LeadAssigned(ctx context.Context, lead repository.Lead, builder string) {
	// Detach from the request context so an early HTTP response does not
	// cancel the SMTP dial.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	go func() {
		defer cancel()
		if err := n.sender.SendLeadAssignedEmail(sendCtx, lead, builder); err != nil {
			n.log.Error("assignment notification failed",
				"lead_id", lead.ID, "builder", builder, "error", err)
		}
	}()
}
