package ledger

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func openTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(context.Background(), path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, path
}

func TestLedger_RecordAndRecent(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first, err := l.Record(ctx, Notification{
		SessionID:       "s1",
		PhoneNumber:     "+250788000001",
		Language:        "en",
		Location:        "Kigali, Nyarugenge, Rwanda",
		Message:         "The weather in Kigali, Nyarugenge, Rwanda is clear sky with a temperature of 22°C.",
		AudioURL:        "https://audio.example.com/audio/output-s1.mp3",
		SynthesisStatus: StatusOK,
		SMSStatus:       StatusOK,
		CreatedAt:       base,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated ID")
	}

	if _, err := l.Record(ctx, Notification{
		SessionID:       "s2",
		PhoneNumber:     "+250788000002",
		Language:        "fr",
		Location:        "Huye, Ngoma, Rwanda",
		Message:         "La météo",
		SynthesisStatus: StatusFailed,
		SMSStatus:       StatusSkipped,
		Error:           "synthesis failed",
		CreatedAt:       base.Add(time.Minute),
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	recent, err := l.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 || recent[0].SessionID != "s2" {
		t.Fatalf("recent = %+v", recent)
	}
	if recent[0].SMSStatus != StatusSkipped || recent[0].Error != "synthesis failed" {
		t.Fatalf("statuses not persisted: %+v", recent[0])
	}

	bySession, err := l.BySession(ctx, "s1")
	if err != nil {
		t.Fatalf("BySession: %v", err)
	}
	if len(bySession) != 1 || bySession[0].ID != first.ID || !bySession[0].CreatedAt.Equal(base) {
		t.Fatalf("bySession = %+v", bySession)
	}
}

func TestLedger_ReopenKeepsData(t *testing.T) {
	l, path := openTestLedger(t)
	ctx := context.Background()
	if _, err := l.Record(ctx, Notification{
		SessionID: "s1", PhoneNumber: "+1", Language: "en", Location: "x", Message: "m",
		SynthesisStatus: StatusSkipped, SMSStatus: StatusOK,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again, err := Open(ctx, path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	recent, err := again.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 notification after reopen, got %d", len(recent))
	}
}
