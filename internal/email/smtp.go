package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"builderportal_backend/internal/leads/repository"
	"builderportal_backend/platform/logger"
)

const subjectLeadAssignedFmt = "New lead assigned to %s"

// Sender delivers outbound notification email.
type Sender interface {
	SendLeadAssignedEmail(ctx context.Context, lead repository.Lead, builder string) error
}

// SMTPSender delivers email over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	toEmail   string
}

// NewSMTPSender creates a sender that delivers assignment notifications to
// the configured team inbox.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName, toEmail string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
		toEmail:   toEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// SendLeadAssignedEmail notifies the team inbox about a builder assignment.
func (s *SMTPSender) SendLeadAssignedEmail(ctx context.Context, lead repository.Lead, builder string) error {
	content, err := renderEmailTemplate("lead_assigned.html", leadAssignedEmailData{
		Title:        "Lead Assigned",
		Heading:      "Lead Assigned",
		BuilderName:  builder,
		FullName:     lead.FullName,
		PhoneNumber:  lead.PhoneNumber,
		City:         displayValue(lead.City),
		WorkRequired: displayValue(lead.WorkRequired),
		Budget:       displayValue(lead.Budget),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, s.toEmail, fmt.Sprintf(subjectLeadAssignedFmt, builder), content)
}

func displayValue(v string) string {
	if v == "N/A" {
		return ""
	}
	return v
}

// NoopSender drops all mail. Used when SMTP is not configured.
type NoopSender struct {
	log *logger.Logger
}

func NewNoopSender(log *logger.Logger) *NoopSender {
	return &NoopSender{log: log}
}

func (s *NoopSender) SendLeadAssignedEmail(_ context.Context, lead repository.Lead, builder string) error {
	s.log.Debug("email disabled; dropping assignment notification",
		"lead_id", lead.ID, "builder", builder)
	return nil
}

var (
	_ Sender = (*SMTPSender)(nil)
	_ Sender = (*NoopSender)(nil)
)
