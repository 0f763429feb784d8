// Package app builds the USSD weather service from configuration and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"WeatherUSSD/internal/backend"
	"WeatherUSSD/internal/buildinfo"
	"WeatherUSSD/internal/cache"
	"WeatherUSSD/internal/config"
	"WeatherUSSD/internal/ledger"
	"WeatherUSSD/internal/server"
	"WeatherUSSD/internal/sms"
	"WeatherUSSD/internal/speech"
	"WeatherUSSD/internal/telemetry"
	"WeatherUSSD/internal/ussd"
	"WeatherUSSD/internal/weather"
)

const shutdownTimeout = 15 * time.Second

// App owns every long-lived component of the service.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	closeLogs func() error
	providers telemetry.Providers
	ledger    *ledger.Ledger
	menu      *ussd.Menu
	server    *server.Server
}

// New wires the service from cfg. Collaborators receive their settings
// explicitly; nothing is read from globals after this point.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.Debug {
		cfg.Logging.Level = "debug"
	}
	logger, closeLogs, err := telemetry.InitLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, closeLogs: closeLogs, providers: telemetry.Noop()}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info("service initialized",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"addr", cfg.Server.Addr,
		"path", cfg.Server.Path,
		"sms_provider", cfg.SMS.Provider,
		"speech", cfg.Speech.Enabled,
		"notify_mode", cfg.Notify.Mode,
		"ledger", cfg.Ledger.Enabled,
	)
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.cfg

	providers, err := telemetry.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.providers = providers

	client, err := backend.NewClient(backend.BuildHTTPClient(cfg.Weather.Timeout), providers.Tracer, providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create http client: %w", err)
	}

	var provider weather.Provider = weather.NewOpenWeather(cfg.Weather, client, providers.Tracer)
	if cfg.Weather.CacheTTL > 0 {
		provider, err = weather.NewCached(provider, cache.New[weather.Report](cfg.Weather.CacheTTL), providers.Meter, a.logger)
		if err != nil {
			return err
		}
	}

	opts := ussd.Options{
		Weather:     provider,
		Notify:      cfg.Notify,
		SMSTemplate: cfg.SMS.Template,
		Logger:      a.logger,
		Tracer:      providers.Tracer,
		Meter:       providers.Meter,
	}

	if cfg.Speech.Enabled {
		synth, err := speech.NewGoogle(ctx, cfg.Speech, providers.Tracer, a.logger)
		if err != nil {
			// The menu still answers; notifications follow the synthesis failure policy.
			a.logger.Warn("speech synthesis unavailable, continuing without audio", "error", err)
		} else {
			opts.Synthesizer = synth
		}
	}

	switch cfg.SMS.Provider {
	case config.SMSProviderAfricasTalking:
		opts.SMS = sms.NewAfricasTalking(cfg.SMS, client, providers.Tracer, a.logger)
	default:
		opts.SMS = sms.NewLogSender(a.logger)
	}

	if cfg.Ledger.Enabled {
		l, err := ledger.Open(ctx, cfg.Ledger.Path, a.logger)
		if err != nil {
			return fmt.Errorf("failed to open ledger: %w", err)
		}
		a.ledger = l
		opts.Ledger = l
	}

	a.menu, err = ussd.NewMenu(opts)
	if err != nil {
		return fmt.Errorf("failed to create menu: %w", err)
	}
	a.server = server.New(cfg.Server, a.menu, a.logger)
	return nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := a.server.Shutdown(shutdownCtx)
	a.menu.Wait()
	if serveErr := <-errCh; serveErr != nil {
		err = errors.Join(err, serveErr)
	}
	return err
}

// Recent returns the newest ledger entries.
func (a *App) Recent(ctx context.Context, limit int) ([]ledger.Notification, error) {
	if a.ledger == nil {
		return nil, errors.New("ledger is disabled")
	}
	return a.ledger.Recent(ctx, limit)
}

// Close waits for pending notifications and releases every resource.
func (a *App) Close() error {
	if a.menu != nil {
		a.menu.Wait()
	}
	var errs []error
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close ledger: %w", err))
		}
	}
	if a.providers.Shutdown != nil {
		a.providers.Shutdown()
	}
	if a.closeLogs != nil {
		if err := a.closeLogs(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close logs: %w", err))
		}
	}
	return errors.Join(errs...)
}
