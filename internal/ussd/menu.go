package ussd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"WeatherUSSD/internal/config"
	"WeatherUSSD/internal/ledger"
	"WeatherUSSD/internal/session"
	"WeatherUSSD/internal/sms"
	"WeatherUSSD/internal/speech"
	"WeatherUSSD/internal/telemetry"
	"WeatherUSSD/internal/translations"
	"WeatherUSSD/internal/weather"
)

// Synthesizer turns a sentence into an audio artifact keyed by session.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, key string) (speech.Artifact, error)
}

// Recorder persists the outcome of a terminal weather answer.
type Recorder interface {
	Record(ctx context.Context, n ledger.Notification) (ledger.Notification, error)
}

// errSynthesisDisabled marks notifications sent without any synthesizer configured.
var errSynthesisDisabled = errors.New("speech synthesis disabled")

// Options wires the menu's collaborators. Synthesizer and Ledger may be nil.
type Options struct {
	Weather     weather.Provider
	Synthesizer Synthesizer
	SMS         sms.Sender
	Ledger      Recorder
	Notify      config.NotifyConfig
	// SMSTemplate formats the audio link; it must contain one %s.
	SMSTemplate string

	Logger *slog.Logger
	Tracer trace.Tracer
	Meter  metric.Meter
}

// Menu answers gateway callbacks.
type Menu struct {
	weather     weather.Provider
	synthesizer Synthesizer
	sms         sms.Sender
	ledger      Recorder
	notify      config.NotifyConfig
	smsTemplate string

	logger   *slog.Logger
	tracer   trace.Tracer
	requests metric.Int64Counter

	wg sync.WaitGroup
}

// NewMenu validates opts and builds a Menu.
func NewMenu(opts Options) (*Menu, error) {
	if opts.Weather == nil {
		return nil, fmt.Errorf("weather provider is required")
	}
	if opts.SMS == nil {
		return nil, fmt.Errorf("sms sender is required")
	}
	if opts.Logger == nil || opts.Tracer == nil || opts.Meter == nil {
		return nil, fmt.Errorf("logger, tracer and meter are required")
	}
	if opts.SMSTemplate == "" {
		opts.SMSTemplate = "Listen to the weather update: %s"
	}
	if opts.Notify.Mode == "" {
		opts.Notify.Mode = config.NotifySync
	}
	if opts.Notify.Timeout <= 0 {
		opts.Notify.Timeout = 30 * time.Second
	}

	requests, err := opts.Meter.Int64Counter(
		"ussd.requests",
		metric.WithDescription("USSD callbacks by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	return &Menu{
		weather:     opts.Weather,
		synthesizer: opts.Synthesizer,
		sms:         opts.SMS,
		ledger:      opts.Ledger,
		notify:      opts.Notify,
		smsTemplate: opts.SMSTemplate,
		logger:      opts.Logger.With("component", "ussd"),
		tracer:      opts.Tracer,
		requests:    requests,
	}, nil
}

// Evaluate answers one callback. It never fails: every error becomes an END response.
func (m *Menu) Evaluate(ctx context.Context, cb session.Callback) Response {
	ctx, span := m.tracer.Start(ctx, "ussd.evaluate",
		trace.WithAttributes(attribute.String("ussd.session_id", cb.SessionID)),
	)
	defer span.End()

	step := Resolve(cb.Text)
	outcome := step.Kind.String()
	resp := step.Response

	if step.Kind == KindLookup {
		resp, outcome = m.answer(ctx, cb, step)
	}

	span.SetAttributes(
		attribute.Int("ussd.depth", step.Depth),
		attribute.String("ussd.language", string(step.Lang)),
		attribute.String("ussd.outcome", outcome),
	)
	m.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.logger.InfoContext(ctx, "menu evaluated",
		"rid", telemetry.RequestID(ctx),
		"session_id", cb.SessionID,
		"depth", step.Depth,
		"lang", step.Lang,
		"outcome", outcome,
		"tag", resp.Tag,
	)
	return resp
}

// answer runs the terminal step: lookup, sentence, then notifications.
func (m *Menu) answer(ctx context.Context, cb session.Callback, step Step) (Response, string) {
	strs := translations.For(step.Lang)

	report, err := m.weather.Lookup(ctx, step.Location)
	if err != nil {
		trace.SpanFromContext(ctx).SetStatus(codes.Error, "weather lookup failed")
		m.logger.WarnContext(ctx, "weather lookup failed",
			"rid", telemetry.RequestID(ctx),
			"session_id", cb.SessionID,
			"location", step.Location,
			"error", err,
		)
		return Final(strs.Error + " " + step.Location), "lookup_failed"
	}

	sentence := strs.Weather(step.Location, report.Description, report.Temperature)
	n := ledger.Notification{
		SessionID:   cb.SessionID,
		PhoneNumber: cb.PhoneNumber,
		Language:    string(step.Lang),
		Location:    step.Location,
		Message:     sentence,
	}

	// Notifications outlive the gateway request but not the configured timeout.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.notify.Timeout)
	if m.notify.Mode == config.NotifyAsync {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer cancel()
			m.deliver(notifyCtx, cb, n)
		}()
	} else {
		m.deliver(notifyCtx, cb, n)
		cancel()
	}

	return Final(sentence), "weather"
}

// deliver synthesizes the sentence, texts the caller and records the result.
// Failures are logged and recorded, never surfaced to the caller.
func (m *Menu) deliver(ctx context.Context, cb session.Callback, n ledger.Notification) {
	logger := m.logger.With(
		"rid", telemetry.RequestID(ctx),
		"session_id", cb.SessionID,
		"phone", telemetry.MaskPhone(cb.PhoneNumber),
	)

	var synthErr error
	if m.synthesizer == nil {
		synthErr = errSynthesisDisabled
		n.SynthesisStatus = ledger.StatusSkipped
	} else {
		artifact, err := m.synthesizer.Synthesize(ctx, n.Message, cb.SessionID)
		if err != nil {
			synthErr = err
			n.SynthesisStatus = ledger.StatusFailed
			n.Error = err.Error()
			logger.ErrorContext(ctx, "speech synthesis failed", "error", err)
		} else {
			n.SynthesisStatus = ledger.StatusOK
			n.AudioURL = artifact.URL
		}
	}

	var text string
	switch {
	case synthErr == nil:
		text = fmt.Sprintf(m.smsTemplate, n.AudioURL)
	case m.notify.SMSOnSynthesisFailure:
		text = n.Message
	default:
		n.SMSStatus = ledger.StatusSkipped
		logger.InfoContext(ctx, "sms skipped", "reason", synthErr.Error())
	}

	if n.SMSStatus == "" {
		if err := m.sms.Send(ctx, cb.PhoneNumber, text); err != nil {
			n.SMSStatus = ledger.StatusFailed
			if n.Error != "" {
				n.Error += "; "
			}
			n.Error += err.Error()
			logger.ErrorContext(ctx, "sms dispatch failed", "error", err)
		} else {
			n.SMSStatus = ledger.StatusOK
		}
	}

	if m.ledger == nil {
		return
	}
	if _, err := m.ledger.Record(ctx, n); err != nil {
		logger.ErrorContext(ctx, "failed to record notification", "error", err)
	}
}

// Wait blocks until background notifications have finished.
func (m *Menu) Wait() {
	m.wg.Wait()
}
