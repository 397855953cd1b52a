package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

type mailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPSender sends multipart/alternative emails. PLAIN auth is used when a
// username is configured, and STARTTLS when the server offers it.
type SMTPSender struct {
	client mailClient
	from   string
}

func NewSMTPSender(config *SMTPConfig, from string) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client for %s: %w", config.Host, err)
	}
	return &SMTPSender{client: client, from: from}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody, plainBody string) error {
	msg, err := newEmail(s.from, to, subject, htmlBody, plainBody).message()
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// message builds the plain part first so clients prefer the html one.
func (e *Email) message() (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(e.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", e.From, err)
	}
	if err := m.To(e.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", e.To, err)
	}
	m.Subject(e.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, e.Plain)
	m.AddAlternativeString(mail.TypeTextHTML, e.HTML)
	return m, nil
}
