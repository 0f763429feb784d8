// Package ledger keeps an audit trail of terminal weather notifications in sqlite.
// It records what was sent; it is not a session store.
package ledger

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Side-effect statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "fail"
	StatusSkipped = "skip"
)

// Notification is one completed weather answer and what happened to its side effects.
type Notification struct {
	ID              string    `db:"id"`
	SessionID       string    `db:"session_id"`
	PhoneNumber     string    `db:"phone_number"`
	Language        string    `db:"language"`
	Location        string    `db:"location"`
	Message         string    `db:"message"`
	AudioURL        string    `db:"audio_url"`
	SynthesisStatus string    `db:"synthesis_status"`
	SMSStatus       string    `db:"sms_status"`
	Error           string    `db:"error"`
	CreatedAt       time.Time `db:"created_at"`
}

// Ledger is the sqlite-backed notification store.
type Ledger struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open applies pending migrations and connects to the database at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Ledger, error) {
	logger = logger.With("component", "ledger")
	if err := runMigrations(path, logger); err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	logger.Info("ledger opened", "path", path)
	return &Ledger{db: db, logger: logger}, nil
}

func runMigrations(path string, logger *slog.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite3://"+path)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	switch {
	case upErr == nil:
	case errors.Is(upErr, migrate.ErrNoChange):
		logger.Debug("migrations up to date", "version", fromVer)
		return nil
	default:
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	logger.Info("migrations applied",
		"from_ver", fromVer,
		"to_ver", toVer,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// Record stores n, assigning an ID and timestamp when they are empty.
func (l *Ledger) Record(ctx context.Context, n Notification) (Notification, error) {
	if n.ID == "" {
		n.ID = ulid.Make().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.NamedExecContext(ctx, `
		INSERT INTO notifications (
			id, session_id, phone_number, language, location, message,
			audio_url, synthesis_status, sms_status, error, created_at
		) VALUES (
			:id, :session_id, :phone_number, :language, :location, :message,
			:audio_url, :synthesis_status, :sms_status, :error, :created_at
		)`, n)
	if err != nil {
		return Notification{}, fmt.Errorf("failed to record notification: %w", err)
	}
	return n, nil
}

// Recent returns up to limit notifications, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []Notification
	err := l.db.SelectContext(ctx, &out, `
		SELECT id, session_id, phone_number, language, location, message,
			audio_url, synthesis_status, sms_status, error, created_at
		FROM notifications
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	return out, nil
}

// BySession returns every notification recorded for a gateway session id.
func (l *Ledger) BySession(ctx context.Context, sessionID string) ([]Notification, error) {
	var out []Notification
	err := l.db.SelectContext(ctx, &out, `
		SELECT id, session_id, phone_number, language, location, message,
			audio_url, synthesis_status, sms_status, error, created_at
		FROM notifications
		WHERE session_id = ?
		ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session notifications: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
