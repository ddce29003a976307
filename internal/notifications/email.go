package notifications

import (
	"fmt"
	"net/smtp"
	"strings"

	"ticketry/internal/shared/config"
	"ticketry/pkg/logger"
)

// EmailSender delivers a rendered notification to its recipient.
type EmailSender interface {
	Send(n *Notification) error
}

type smtpSender struct {
	cfg config.EmailConfig
}

// NewEmailSender returns an SMTP-backed sender, or a log-only sender
// when no SMTP host is configured (local development).
func NewEmailSender(cfg config.EmailConfig, log *logger.Logger) EmailSender {
	if cfg.SMTPHost == "" {
		return &logSender{log: log}
	}
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(n *Notification) error {
	subject, body := render(n)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", s.cfg.FromName, s.cfg.FromEmail)
	fmt.Fprintf(&msg, "To: %s\r\n", n.RecipientEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, s.cfg.FromEmail, []string{n.RecipientEmail}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", n.RecipientEmail, err)
	}
	return nil
}

type logSender struct {
	log *logger.Logger
}

func (s *logSender) Send(n *Notification) error {
	subject, _ := render(n)
	s.log.Info("email delivery skipped, no SMTP configured",
		"type", string(n.Type),
		"recipient", n.RecipientEmail,
		"subject", subject,
	)
	return nil
}

func render(n *Notification) (subject, body string) {
	name := n.RecipientName
	if name == "" {
		name = "there"
	}

	switch n.Type {
	case TypeBookingConfirmed:
		subject = "Your booking is confirmed"
		if title, ok := n.Data["eventTitle"].(string); ok && title != "" {
			subject = fmt.Sprintf("Booking confirmed for %s", title)
		}
		body = fmt.Sprintf("Hi %s,\n\nYour booking %s is confirmed.", name, n.BookingID)
		if seats, ok := n.Data["seats"].(string); ok && seats != "" {
			body += fmt.Sprintf("\nSeats: %s", seats)
		}
		body += "\n\nSee you at the event!\n"
	case TypeBookingCancelled:
		subject = "Your booking has been cancelled"
		body = fmt.Sprintf("Hi %s,\n\nYour booking %s has been cancelled.\n", name, n.BookingID)
	case TypeReservationExpired:
		subject = "Your reservation has expired"
		body = fmt.Sprintf("Hi %s,\n\nYour reservation %s expired before checkout completed. The seats have been released; please reserve again.\n", name, n.ReservationID)
	default:
		subject = n.Subject
		body = fmt.Sprintf("Hi %s,\n\nYou have a new notification.\n", name)
	}
	if n.Subject != "" {
		subject = n.Subject
	}
	return subject, body
}
