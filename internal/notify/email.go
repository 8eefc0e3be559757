package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/wneessen/go-mail"
)

// ErrMissingCredentials is returned when the mailer lacks a username,
// password or recipient.
var ErrMissingCredentials = errors.New("email username, password and recipient are required")

// MailSettings configure the SMTP relay used for the run summary.
type MailSettings struct {
	Host     string
	Port     int
	SSL      bool
	Username string
	Password string
	From     string
	To       []string
	Timeout  time.Duration
}

// Mailer sends the run summary with the result files attached.
type Mailer struct {
	settings MailSettings
	logger   *slog.Logger
	deliver  func(ctx context.Context, s MailSettings, msg *mail.Msg) error
}

// NewMailer returns a Mailer for the given settings. Host defaults to
// smtp.gmail.com, port to 587 and From to Username.
func NewMailer(s MailSettings, logger *slog.Logger) *Mailer {
	if s.Host == "" {
		s.Host = "smtp.gmail.com"
	}
	if s.Port == 0 {
		s.Port = 587
	}
	if s.From == "" {
		s.From = s.Username
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{settings: s, logger: logger, deliver: dialAndSend}
}

// Send builds a plain-text UTF-8 message and delivers it. Attachments that
// do not exist are skipped.
func (m *Mailer) Send(ctx context.Context, subject, body string, attachments []string) error {
	msg, err := m.buildMessage(subject, body, attachments)
	if err != nil {
		return err
	}
	if err := m.deliver(ctx, m.settings, msg); err != nil {
		return fmt.Errorf("sending email via %s:%d: %w", m.settings.Host, m.settings.Port, err)
	}
	m.logger.Info("email sent", "to", m.settings.To, "attachments", len(msg.GetAttachments()))
	return nil
}

func (m *Mailer) buildMessage(subject, body string, attachments []string) (*mail.Msg, error) {
	s := m.settings
	if s.Username == "" || s.Password == "" || len(s.To) == 0 {
		return nil, ErrMissingCredentials
	}

	msg := mail.NewMsg()
	if err := msg.From(s.From); err != nil {
		return nil, fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(s.To...); err != nil {
		return nil, fmt.Errorf("setting recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	files := existingFiles(attachments)
	for _, p := range files {
		msg.AttachFile(p)
	}
	if skipped := len(attachments) - len(files); skipped > 0 {
		m.logger.Debug("skipped missing attachments", "count", skipped)
	}
	return msg, nil
}

func dialAndSend(ctx context.Context, s MailSettings, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(s.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.Username),
		mail.WithPassword(s.Password),
		mail.WithTimeout(s.Timeout),
	}
	if s.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(s.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// existingFiles returns the regular files among paths, in order.
func existingFiles(paths []string) []string {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, p)
	}
	return out
}
