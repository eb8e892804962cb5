package email

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	mail "github.com/wneessen/go-mail"

	"github.com/watchops/incident-console/pkg/config"
	"github.com/watchops/incident-console/pkg/models"
	"github.com/watchops/incident-console/pkg/state"
)

const sendTimeout = 10 * time.Second

// Deliverer sends one message to the given recipients. Factored out so tests
// can capture outgoing mail without an SMTP relay.
type Deliverer func(cfg config.SMTPConfig, recipients []string, subject, body string) error

// Sender delivers action-status notifications to every registered
// recipient. Delivery is fail-open: a missing relay or a send failure is
// logged and never fails the originating call.
type Sender struct {
	store   *state.Store
	cfg     config.SMTPConfig
	deliver Deliverer
	logger  *slog.Logger
}

// NewSender creates an SMTP notification sender.
func NewSender(store *state.Store, cfg config.SMTPConfig) *Sender {
	return &Sender{
		store:   store,
		cfg:     cfg,
		deliver: smtpDeliver,
		logger:  slog.Default().With("component", "email"),
	}
}

// SendActionStatus emails the given status transition to all recipients.
func (s *Sender) SendActionStatus(execution models.ActionExecution, status string) {
	recipients := s.store.Recipients()
	if len(recipients) == 0 {
		s.logger.Info("Skipping email notification, no recipients configured")
		return
	}
	addresses := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		if recipient.Email != "" {
			addresses = append(addresses, recipient.Email)
		}
	}
	if len(addresses) == 0 {
		return
	}
	if s.cfg.Host == "" {
		s.logger.Info("Email SMTP host missing, notification skipped")
		return
	}

	statusLabel := capitalize(status)
	subject := fmt.Sprintf("[Incident] %s - %s", execution.ScenarioTitle, statusLabel)
	body := buildActionEmailBody(execution, statusLabel)

	if err := s.deliver(s.cfg, addresses, subject, body); err != nil {
		s.logger.Error("Failed to send email notification", "error", err)
		return
	}
	s.store.AppendFeed(fmt.Sprintf("Action status emailed to %d recipient(s)", len(addresses)))
}

func smtpDeliver(cfg config.SMTPConfig, recipients []string, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(recipients...); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(sendTimeout),
	}
	if cfg.UseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	return client.DialAndSend(msg)
}

func buildActionEmailBody(execution models.ActionExecution, statusLabel string) string {
	lines := []string{
		"Incident Action Update",
		"",
		fmt.Sprintf("Scenario: %s (%s)", execution.ScenarioTitle, execution.ScenarioCode),
		"Status: " + statusLabel,
		"Requested: " + execution.CreatedAt,
	}
	if execution.ExecutedAt != "" {
		lines = append(lines, "Updated: "+execution.ExecutedAt)
	}
	lines = append(lines, "", "Actions:")
	for _, action := range execution.Actions {
		lines = append(lines, "- "+action)
	}
	if len(execution.Results) > 0 {
		lines = append(lines, "", "Results:")
		for _, result := range execution.Results {
			detail := ""
			if result.Detail != "" {
				detail = fmt.Sprintf(" (%s)", result.Detail)
			}
			lines = append(lines, fmt.Sprintf("- %s: %s%s", result.Action, result.Status, detail))
		}
	}
	lines = append(lines, "", "Sent via Incident Response Console notifications.")
	return strings.Join(lines, "\n")
}

func capitalize(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
