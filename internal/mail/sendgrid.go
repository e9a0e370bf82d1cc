// Package mail delivers support email through SendGrid.
package mail

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/xenking/dream-snack/internal/domain/contact"
)

// Config configures a SendGrid sender.
type Config struct {
	APIKey string
	// From is the verified sender address.
	From string
	// To is the support mailbox.
	To string
	// Host overrides the API host, e.g. for tests.
	Host string
}

var _ contact.Sender = (*SendGrid)(nil)

// SendGrid implements contact.Sender.
type SendGrid struct {
	client *sendgrid.Client
	from   string
	to     string
}

// NewSendGrid returns a SendGrid sender.
func NewSendGrid(cfg Config) *SendGrid {
	client := sendgrid.NewSendClient(cfg.APIKey)
	if cfg.Host != "" {
		client.BaseURL = cfg.Host + "/v3/mail/send"
	}
	return &SendGrid{client: client, from: cfg.From, to: cfg.To}
}

// Send delivers m to the support mailbox with the customer as reply-to.
func (s *SendGrid) Send(ctx context.Context, m contact.Message) error {
	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail("Dream Snack Help Center", s.from),
		m.Subject,
		sgmail.NewEmail("Dream Snack Support", s.to),
		m.PlainText,
		"",
	)
	msg.SetReplyTo(sgmail.NewEmail(m.FromName, m.ReplyTo))

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return errors.Wrap(err, "sendgrid request")
	}
	if resp.StatusCode >= 300 {
		return errors.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// Discard drops messages. It is used when no API key is configured.
type Discard struct{}

func (Discard) Send(context.Context, contact.Message) error { return nil }
