package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"WeatherUSSD/internal/config"
)

const audioEncoding = "MP3"

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Artifact is a synthesized audio file and the public URL it is announced under.
type Artifact struct {
	Path string
	URL  string
}

// Google synthesizes speech with Cloud Text-to-Speech and writes mp3 files to disk.
type Google struct {
	svc           *texttospeech.Service
	languageCode  string
	voiceGender   string
	audioDir      string
	publicBaseURL string
	tracer        trace.Tracer
	logger        *slog.Logger
}

// NewGoogle creates the Text-to-Speech client. Extra client options are
// appended after the ones derived from cfg.
func NewGoogle(ctx context.Context, cfg config.SpeechConfig, tracer trace.Tracer, logger *slog.Logger, extra ...option.ClientOption) (*Google, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, extra...)

	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}

	if err := os.MkdirAll(cfg.AudioDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}

	return &Google{
		svc:           svc,
		languageCode:  cfg.LanguageCode,
		voiceGender:   cfg.VoiceGender,
		audioDir:      cfg.AudioDir,
		publicBaseURL: cfg.PublicBaseURL,
		tracer:        tracer,
		logger:        logger.With("component", "speech"),
	}, nil
}

// FileName is the artifact name for a session key. Characters outside
// [a-zA-Z0-9_-] are replaced so the key cannot escape the audio directory.
func FileName(key string) string {
	return "output-" + unsafeKeyChars.ReplaceAllString(key, "_") + ".mp3"
}

// Synthesize converts text to mp3 audio stored under key.
func (g *Google) Synthesize(ctx context.Context, text, key string) (Artifact, error) {
	ctx, span := g.tracer.Start(ctx, "speech.synthesize",
		trace.WithAttributes(
			attribute.String("speech.key", key),
			attribute.Int("speech.text_length", len(text)),
		),
	)
	defer span.End()

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: g.languageCode,
			SsmlGender:   g.voiceGender,
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: audioEncoding},
	}

	resp, err := g.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesize failed")
		return Artifact{}, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		span.RecordError(err)
		return Artifact{}, fmt.Errorf("failed to decode audio content: %w", err)
	}

	name := FileName(key)
	path := filepath.Join(g.audioDir, name)
	if err := os.WriteFile(path, audio, 0644); err != nil {
		span.RecordError(err)
		return Artifact{}, fmt.Errorf("failed to write audio file: %w", err)
	}

	artifact := Artifact{
		Path: path,
		URL:  g.publicBaseURL + "/audio/" + url.PathEscape(name),
	}
	g.logger.Info("audio content written to file", "path", path, "bytes", len(audio))
	span.SetAttributes(attribute.String("speech.url", artifact.URL))
	return artifact, nil
}
