package notify

import (
	"context"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/rickgao/bankrates/internal/config"
)

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSink sends plain-text mail through an SMTP relay.
type SMTPSink struct {
	addr     string
	from     string
	auth     smtp.Auth
	sendMail sendMailFunc
}

// NewSMTPSink creates an SMTPSink. PLAIN auth is used when a username is set.
func NewSMTPSink(cfg config.SMTPConfig) *SMTPSink {
	s := &SMTPSink{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		from:     cfg.From,
		sendMail: smtp.SendMail,
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return s
}

// Send delivers one message to all recipients. net/smtp has no context
// support, so ctx is only checked before dialing.
func (s *SMTPSink) Send(ctx context.Context, subject, body string, recipients []string) error {
	if err := checkRecipients(SinkSMTP, recipients); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &SendError{Sink: SinkSMTP, Err: err}
	}

	if err := s.sendMail(s.addr, s.auth, s.from, recipients, s.compose(subject, body, recipients)); err != nil {
		return &SendError{Sink: SinkSMTP, Err: err}
	}
	return nil
}

func (s *SMTPSink) compose(subject, body string, recipients []string) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.from + "\r\n")
	b.WriteString("To: " + strings.Join(recipients, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", headerSafe(subject)) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// headerSafe folds line breaks so a value cannot start a new header.
func headerSafe(v string) string {
	return strings.Join(strings.Fields(v), " ")
}
