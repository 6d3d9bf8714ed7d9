// internal/infra/mailer/smtp_mailer.go
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"outreach_automation/internal/domain/delivery"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// New returns an SMTP-backed mailer, or a log-only mailer when no SMTP host is
// configured so development setups still exercise the full delivery path.
func New(host, port, user, pass, from string, logger *logrus.Logger) delivery.Mailer {
	if host == "" {
		logger.Warn("mailer: SMTP not configured, emails will only be logged")
		return &LogMailer{from: from, logger: logger}
	}
	return &SMTPMailer{host: host, port: port, user: user, pass: pass, from: from}
}

// SMTPMailer sends HTML mail over plain SMTP.
type SMTPMailer struct {
	host string
	port string
	user string
	pass string
	from string
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, bodyHTML string) (string, error) {
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), m.host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Message-ID: %s\r\n", messageID)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(bodyHTML)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return "", fmt.Errorf("smtp send to %s failed: %w", to, err)
	}
	return messageID, nil
}

// LogMailer records sends in the log without transmitting anything.
type LogMailer struct {
	from   string
	logger *logrus.Logger
}

func (m *LogMailer) Send(_ context.Context, to, subject, _ string) (string, error) {
	messageID := uuid.NewString()
	m.logger.Infof("mailer: [log-only] from=%s to=%s subject=%q message_id=%s", m.from, to, subject, messageID)
	return messageID, nil
}
