// Package notify delivers emails through a configurable transport.
package notify

import (
	"context"
	"strings"

	"github.com/jaytaylor/html2text"
	"github.com/rs/zerolog/log"
)

var (
	logger = log.With().Str("component", "notify").Logger()
)

// Sender delivers one email. An empty plainBody is derived from htmlBody.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody, plainBody string) error
}

// Email is the transport-neutral form of one message.
type Email struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Plain   string `json:"plain"`
}

func newEmail(from, to, subject, htmlBody, plainBody string) *Email {
	if plainBody == "" {
		plainBody = PlainFromHTML(htmlBody)
	}
	return &Email{
		From:    from,
		To:      to,
		Subject: subject,
		HTML:    htmlBody,
		Plain:   plainBody,
	}
}

// PlainFromHTML renders body as text. Links keep their target so the
// invitation url survives in the plain part.
func PlainFromHTML(body string) string {
	text, err := html2text.FromString(body)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to render plain text body")
		return ""
	}
	return strings.TrimSpace(text)
}

// LogSender writes emails to the log instead of delivering them.
type LogSender struct {
	from string
}

func NewLogSender(from string) *LogSender {
	return &LogSender{from: from}
}

func (s *LogSender) Send(_ context.Context, to, subject, htmlBody, plainBody string) error {
	e := newEmail(s.from, to, subject, htmlBody, plainBody)
	logger.Info().
		Str("from", e.From).
		Str("to", e.To).
		Str("subject", e.Subject).
		Str("body", e.Plain).
		Msg("Email not delivered, log sender in use")
	return nil
}
