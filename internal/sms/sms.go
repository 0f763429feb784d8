package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"WeatherUSSD/internal/backend"
	"WeatherUSSD/internal/config"
	"WeatherUSSD/internal/telemetry"
)

// ErrRejected is returned when the gateway accepted the call but no recipient was queued.
var ErrRejected = errors.New("sms rejected by gateway")

// Sender delivers a text message to a phone number. Delivery is best-effort.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSender only records the message in the log.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender for environments without an SMS gateway.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "sms")}
}

func (s *LogSender) Send(ctx context.Context, phone, message string) error {
	s.logger.InfoContext(ctx, "sending SMS",
		"phone", telemetry.MaskPhone(phone),
		"message", message,
	)
	return nil
}

// messagingResponse is the Africa's Talking bulk SMS reply.
type messagingResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			StatusCode int    `json:"statusCode"`
			Number     string `json:"number"`
			Status     string `json:"status"`
			Cost       string `json:"cost"`
			MessageID  string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// AfricasTalking sends SMS through the Africa's Talking messaging API.
type AfricasTalking struct {
	endpoint string
	username string
	apiKey   string
	senderID string
	client   *backend.Client
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewAfricasTalking creates a gateway sender from cfg.
func NewAfricasTalking(cfg config.SMSConfig, client *backend.Client, tracer trace.Tracer, logger *slog.Logger) *AfricasTalking {
	return &AfricasTalking{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/version1/messaging",
		username: cfg.Username,
		apiKey:   cfg.APIKey,
		senderID: cfg.SenderID,
		client:   client,
		tracer:   tracer,
		logger:   logger.With("component", "sms"),
	}
}

func (a *AfricasTalking) Send(ctx context.Context, phone, message string) error {
	ctx, span := a.tracer.Start(ctx, "sms.send")
	defer span.End()

	form := url.Values{}
	form.Set("username", a.username)
	form.Set("to", phone)
	form.Set("message", message)
	if a.senderID != "" {
		form.Set("from", a.senderID)
	}

	var resp messagingResponse
	headers := map[string]string{"apiKey": a.apiKey}
	if err := a.client.PostForm(ctx, "africastalking", a.endpoint, form, headers, &resp); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to send sms: %w", err)
	}

	for _, r := range resp.SMSMessageData.Recipients {
		if strings.EqualFold(r.Status, "Success") {
			span.SetAttributes(attribute.String("sms.message_id", r.MessageID))
			a.logger.InfoContext(ctx, "sms queued",
				"phone", telemetry.MaskPhone(phone),
				"message_id", r.MessageID,
				"cost", r.Cost,
			)
			return nil
		}
	}
	err := fmt.Errorf("%w: %s", ErrRejected, resp.SMSMessageData.Message)
	span.RecordError(err)
	return err
}
