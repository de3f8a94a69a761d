// Package services – RelayService
//
// This file implements RelayService, which turns an EmailRequest into a
// branded HTML notification and hands it to the configured mail Sender.
// Provider failures are reported in the returned EmailResult rather than as
// errors; only missing input fields produce an error.
package services

import (
	"context"
	"errors"

	"github.com/osteele/liquid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tbourn/client-tracker-backend/internal/domain"
	"github.com/tbourn/client-tracker-backend/internal/mailer"
)

const defaultClientName = "Client"

// notificationHTML is the body of every relayed email. The message is
// inserted verbatim, so callers may include their own markup.
const notificationHTML = `<div style="font-family: Arial, sans-serif; color: #333;">
    <p>Dear {{ client_name }},</p>
    <p>{{ message }}</p>
    <br>
    <p>Best regards,<br>
    Your Legal Team</p>
</div>`

var (
	notificationTpl = mustParseTemplate(notificationHTML)

	emailRelayTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_relay_total",
			Help: "Notification emails handed to the provider, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(emailRelayTotal)
}

func mustParseTemplate(src string) *liquid.Template {
	tpl, err := liquid.NewEngine().ParseString(src)
	if err != nil {
		panic(err)
	}
	return tpl
}

// RelayService relays notification emails through a mailer.Sender.
type RelayService struct {
	Sender mailer.Sender
}

// NewRelayService constructs a RelayService.
func NewRelayService(s mailer.Sender) *RelayService {
	return &RelayService{Sender: s}
}

// RenderNotification produces the HTML body for a recipient name and message.
// A blank name falls back to "Client".
func RenderNotification(clientName, message string) (string, error) {
	if clientName == "" {
		clientName = defaultClientName
	}
	out, err := notificationTpl.RenderString(liquid.Bindings{
		"client_name": clientName,
		"message":     message,
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// SendUpdate validates req, renders the notification and sends it once.
//
// It returns a *ValidationError when email, subject or message is absent;
// no provider call is made in that case. Every other failure is folded into
// the result with Success=false.
func (s *RelayService) SendUpdate(ctx context.Context, req domain.EmailRequest) (domain.EmailResult, error) {
	if err := missingFields([]string{"email", "subject", "message"},
		req.ToEmail != nil, req.Subject != nil, req.Message != nil,
	); err != nil {
		return domain.EmailResult{}, err
	}

	name := ""
	if req.ClientName != nil {
		name = *req.ClientName
	}
	html, err := RenderNotification(name, *req.Message)
	if err != nil {
		return s.failed(ctx, err), nil
	}
	if s.Sender == nil {
		return s.failed(ctx, errors.New("no mail sender configured")), nil
	}

	code, err := s.Sender.Send(ctx, mailer.Message{
		To:      *req.ToEmail,
		Subject: *req.Subject,
		HTML:    html,
	})
	if err != nil {
		return s.failed(ctx, err), nil
	}

	emailRelayTotal.WithLabelValues("sent").Inc()
	return domain.EmailResult{Success: true, StatusCode: code}, nil
}

func (s *RelayService) failed(ctx context.Context, err error) domain.EmailResult {
	emailRelayTotal.WithLabelValues("failed").Inc()
	zerolog.Ctx(ctx).Warn().Err(err).Msg("email relay failed")
	return domain.EmailResult{Success: false, Error: err.Error()}
}
