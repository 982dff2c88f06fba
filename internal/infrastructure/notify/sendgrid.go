// Package notify e-mails the school about new contact submissions.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/topautomaat/gallery-backend/internal/entity"
)

const (
	DefaultHost = "https://api.sendgrid.com"
	sendPath    = "/v3/mail/send"
)

// SendGrid delivers contact notifications through the SendGrid v3 API.
// Replies go to the visitor.
type SendGrid struct {
	apiKey string
	host   string
	from   *mail.Email
	to     *mail.Email
}

func NewSendGrid(apiKey, from, to, host string) *SendGrid {
	if host == "" {
		host = DefaultHost
	}

	return &SendGrid{
		apiKey: apiKey,
		host:   host,
		from:   mail.NewEmail("Topautomaat", from),
		to:     mail.NewEmail("", to),
	}
}

func (s *SendGrid) NotifyContact(ctx context.Context, c entity.ContactSubmission) error {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)

	m := mail.NewSingleEmail(s.from, "New Contact Form Submission - "+name, s.to, body(c), "")
	m.SetReplyTo(mail.NewEmail(name, c.Email))

	req := sendgrid.GetRequest(s.apiKey, sendPath, s.host)
	req.Method = http.MethodPost
	req.Body = mail.GetRequestBody(m)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("SendGrid - NotifyContact - sendgrid.MakeRequestWithContext: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("SendGrid - NotifyContact - status %d: %s", resp.StatusCode, resp.Body)
	}

	return nil
}

func body(c entity.ContactSubmission) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Name: %s %s\n", c.FirstName, c.LastName)
	fmt.Fprintf(&b, "Email: %s\n", c.Email)
	if c.Phone != nil {
		fmt.Fprintf(&b, "Phone: %s\n", *c.Phone)
	}
	if c.Service != nil {
		fmt.Fprintf(&b, "Service: %s\n", *c.Service)
	}
	fmt.Fprintf(&b, "Language: %s\n\n", c.Language)
	b.WriteString(c.Message)
	b.WriteString("\n")

	return b.String()
}
