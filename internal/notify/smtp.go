package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/store"
	"gopkg.in/gomail.v2"
)

// ErrNoAddress is returned when the recipient has no email address.
var ErrNoAddress = errors.New("recipient has no email address")

var subjects = map[string]string{
	TemplateRequestAccess:   "New access request",
	TemplateRequestApproved: "Your access request was approved",
	TemplateRequestRejected: "Your access request was rejected",
}

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Validate checks that the configuration is usable.
func (c SMTPConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("smtp host is required")
	}
	if c.Port <= 0 {
		return fmt.Errorf("smtp port must be positive")
	}
	if c.From == "" {
		return fmt.Errorf("smtp from address is required")
	}
	return nil
}

type mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender emails notifications to the recipient's stored address.
type SMTPSender struct {
	principals store.PrincipalStore
	mailer     mailer
	from       string
}

// NewSMTPSender creates an SMTPSender. Recipient addresses are looked up in principals.
func NewSMTPSender(cfg SMTPConfig, principals store.PrincipalStore) *SMTPSender {
	return &SMTPSender{
		principals: principals,
		mailer:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:       cfg.From,
	}
}

// Send emails the notification.
func (s *SMTPSender) Send(ctx context.Context, template string, recipient uuid.UUID, data map[string]any) error {
	principal, err := s.principals.Get(ctx, recipient)
	if err != nil {
		return fmt.Errorf("failed to look up recipient: %w", err)
	}
	if principal.Email == nil || *principal.Email == "" {
		return ErrNoAddress
	}

	subject, ok := subjects[template]
	if !ok {
		return fmt.Errorf("unknown notification template %q", template)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetAddressHeader("To", *principal.Email, principal.Name)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", renderBody(principal.Name, subject, data))

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}

	return nil
}

// renderBody lists the notification data as key: value lines.
func renderBody(name, subject string, data map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n%s.\n\n", name, subject)

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, data[k])
	}

	return b.String()
}
