// Package mailer delivers rendered notification emails through an external
// provider. SendGrid is reached over its v3 REST API with a resty client.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbourn/client-tracker-backend/internal/config"
)

// ErrMissingAPIKey is returned by Send when no API key is configured.
var ErrMissingAPIKey = errors.New("sendgrid: api key is not configured")

// Message is a single HTML email to one recipient.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a Message and returns the provider's HTTP status code.
type Sender interface {
	Send(ctx context.Context, msg Message) (int, error)
}

// ProviderError is a non-2xx answer from the provider.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("HTTP Error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// SendGrid sends mail through the SendGrid v3 Mail Send endpoint.
type SendGrid struct {
	client    *resty.Client
	apiKey    string
	fromEmail string
	fromName  string
}

// NewSendGrid builds a SendGrid sender from cfg. The client never retries.
func NewSendGrid(cfg config.SendGridConfig) *SendGrid {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(0)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &SendGrid{
		client:    client,
		apiKey:    strings.TrimSpace(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// Send posts msg to /v3/mail/send. A 2xx answer returns its status code; any
// other answer returns a *ProviderError.
func (s *SendGrid) Send(ctx context.Context, msg Message) (int, error) {
	ctx, span := otel.Tracer("mailer/SendGrid").Start(ctx, "sendgrid.send")
	defer span.End()

	if s.apiKey == "" {
		span.SetStatus(codes.Error, ErrMissingAPIKey.Error())
		return 0, ErrMissingAPIKey
	}

	payload := sgPayload{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: msg.To}}}},
		From:             sgAddress{Email: s.fromEmail, Name: s.fromName},
		Subject:          msg.Subject,
		Content:          []sgContent{{Type: "text/html", Value: msg.HTML}},
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.apiKey).
		SetBody(payload).
		Post("/v3/mail/send")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return 0, fmt.Errorf("sendgrid: %w", err)
	}

	code := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.response.status_code", code))
	if code < 200 || code > 299 {
		perr := &ProviderError{StatusCode: code, Body: resp.String()}
		span.SetStatus(codes.Error, perr.Error())
		return code, perr
	}
	return code, nil
}
