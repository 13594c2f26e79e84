package backup

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Defaults for the HTTP email provider.
const (
	DefaultEndpoint = "https://api.sendgrid.com/v3/mail/send"
	DefaultTimeout  = 15 * time.Second
)

// ErrNotAccepted is returned when the provider answers with anything other
// than 202 Accepted.
var ErrNotAccepted = errors.New("email not accepted by provider")

// Attachment is a file attached to an outbound message.
type Attachment struct {
	Filename string
	Type     string
	Content  []byte
}

// Message is a single outbound email.
type Message struct {
	From        string
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MailerConfig configures an HTTPMailer.
type MailerConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// HTTPMailer submits messages to a SendGrid-compatible v3 mail/send endpoint.
type HTTPMailer struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewHTTPMailer creates a mailer. Zero Endpoint and Timeout fall back to the
// defaults.
func NewHTTPMailer(cfg MailerConfig) *HTTPMailer {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPMailer{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type sendgridAddress struct {
	Email string `json:"email"`
}

type sendgridPersonalization struct {
	To []sendgridAddress `json:"to"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendgridAttachment struct {
	Content     string `json:"content"`
	Filename    string `json:"filename"`
	Type        string `json:"type"`
	Disposition string `json:"disposition"`
}

type sendgridPayload struct {
	Personalizations []sendgridPersonalization `json:"personalizations"`
	From             sendgridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendgridContent         `json:"content"`
	Attachments      []sendgridAttachment      `json:"attachments,omitempty"`
}

func buildPayload(msg Message) sendgridPayload {
	p := sendgridPayload{
		Personalizations: []sendgridPersonalization{{To: []sendgridAddress{{Email: msg.To}}}},
		From:             sendgridAddress{Email: msg.From},
		Subject:          msg.Subject,
		Content:          []sendgridContent{{Type: "text/plain", Value: msg.Body}},
	}
	for _, a := range msg.Attachments {
		p.Attachments = append(p.Attachments, sendgridAttachment{
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			Filename:    a.Filename,
			Type:        a.Type,
			Disposition: "attachment",
		})
	}
	return p
}

// Send posts msg to the provider. Only 202 Accepted counts as delivered.
func (m *HTTPMailer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(buildPayload(msg))
	if err != nil {
		return fmt.Errorf("encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrNotAccepted, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
