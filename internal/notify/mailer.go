package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"demobook/internal/config"
	"demobook/internal/metrics"
	"demobook/internal/models"

	"github.com/rs/zerolog"
)

const createdSubject = "New Booking Submitted"

// Mailer delivers the booking-created notification. Delivery is
// best-effort: one attempt per creation, failures are logged and dropped.
type Mailer struct {
	cfg    config.MailConfig
	logger *zerolog.Logger
	send   sendFunc
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// New returns nil when mail coordinates are missing; a nil Mailer is a
// silent no-op.
func New(cfg config.MailConfig, logger *zerolog.Logger) *Mailer {
	if !cfg.Enabled() {
		logger.Info().Msg("mail notification disabled: no transport configured")
		return nil
	}
	return &Mailer{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// BookingCreated sends the human-readable summary of a new record.
func (m *Mailer) BookingCreated(booking models.Booking) {
	if m == nil {
		return
	}

	msg := m.compose(booking)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	// smtp.SendMail negotiates STARTTLS when the server offers it.
	if err := m.send(addr, auth, m.cfg.Sender, []string{m.cfg.Recipient}, msg); err != nil {
		metrics.IncMailSend("failed")
		m.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("notification mail failed")
		return
	}

	metrics.IncMailSend("ok")
	m.logger.Info().Int64("booking_id", booking.ID).Str("to", m.cfg.Recipient).Msg("notification mail sent")
}

func (m *Mailer) compose(b models.Booking) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", m.cfg.Sender)
	fmt.Fprintf(&sb, "To: %s\r\n", m.cfg.Recipient)
	fmt.Fprintf(&sb, "Subject: %s\r\n", createdSubject)
	sb.WriteString("\r\n")
	sb.WriteString(Body(b))
	return []byte(sb.String())
}

// Body renders the plain-text summary of a new booking.
func Body(b models.Booking) string {
	var sb strings.Builder
	sb.WriteString("A new booking has been submitted:\n\n")
	fmt.Fprintf(&sb, "Customer: %s\n", b.CustomerName)
	fmt.Fprintf(&sb, "Country: %s\n", b.Country)
	fmt.Fprintf(&sb, "Product: %s\n", b.ProductName)
	fmt.Fprintf(&sb, "Purpose: %s\n", b.Purpose)
	fmt.Fprintf(&sb, "Date: %s\n", b.DateOfEvent)
	fmt.Fprintf(&sb, "User: %s\n", b.User)
	fmt.Fprintf(&sb, "Competitor: %s\n", b.CompetitorName)
	fmt.Fprintf(&sb, "Submitted by: %s\n", b.SubmittedBy)
	fmt.Fprintf(&sb, "Submitted on: %s\n", b.SubmittedOn)
	return sb.String()
}
