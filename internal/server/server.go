// Package server exposes the USSD callback endpoint over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/oklog/ulid/v2"

	"WeatherUSSD/internal/config"
	"WeatherUSSD/internal/session"
	"WeatherUSSD/internal/telemetry"
	"WeatherUSSD/internal/translations"
	"WeatherUSSD/internal/ussd"
)

// maxFormBytes bounds the callback body; gateway payloads are a few hundred bytes.
const maxFormBytes = 64 << 10

// Evaluator answers one gateway callback.
type Evaluator interface {
	Evaluate(ctx context.Context, cb session.Callback) ussd.Response
}

// Server is the gateway-facing HTTP server.
type Server struct {
	cfg     config.ServerConfig
	menu    Evaluator
	logger  *slog.Logger
	httpSrv *http.Server
}

// New creates a Server; call ListenAndServe or Serve to start it.
func New(cfg config.ServerConfig, menu Evaluator, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		menu:   menu,
		logger: logger.With("component", "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST "+cfg.Path, s.handleCallback)

	s.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.withRequestID(s.recoverPanics(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("listening", "addr", ln.Addr().String(), "path", s.cfg.Path)
	err := s.httpSrv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting callbacks and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.logger.WarnContext(r.Context(), "invalid callback form",
			"rid", telemetry.RequestID(r.Context()),
			"error", err,
		)
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	cb := session.Callback{
		SessionID:   r.PostFormValue("sessionId"),
		ServiceCode: r.PostFormValue("serviceCode"),
		PhoneNumber: r.PostFormValue("phoneNumber"),
		Text:        r.PostFormValue("text"),
	}
	s.logger.InfoContext(r.Context(), "callback received",
		"rid", telemetry.RequestID(r.Context()),
		"session_id", cb.SessionID,
		"service_code", cb.ServiceCode,
		"phone", telemetry.MaskPhone(cb.PhoneNumber),
		"text", cb.Text,
	)

	writeText(w, s.menu.Evaluate(r.Context(), cb))
}

func writeText(w http.ResponseWriter, resp ussd.Response) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(resp.String()))
}

// withRequestID tags every request with a ULID, echoed in X-Request-Id.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := ulid.Make().String()
		w.Header().Set("X-Request-Id", rid)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(telemetry.WithRequestID(r.Context(), rid)))
		s.logger.Debug("request served",
			"rid", rid,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}

// recoverPanics closes the USSD session instead of dropping the connection.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.logger.ErrorContext(r.Context(), "handler panic",
					"rid", telemetry.RequestID(r.Context()),
					"path", r.URL.Path,
					"panic", v,
					"stack", string(debug.Stack()),
				)
				writeText(w, ussd.Final(translations.For(translations.Default).InvalidOption))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
