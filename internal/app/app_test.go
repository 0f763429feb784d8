package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"WeatherUSSD/internal/config"
	"WeatherUSSD/internal/ledger"
)

func testConfig(t *testing.T, weatherURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Logging.Dir = filepath.Join(dir, "logs")
	cfg.Telemetry.Enabled = false
	cfg.Weather.BaseURL = weatherURL
	cfg.Weather.APIKey = "test-key"
	cfg.Speech.Enabled = false
	cfg.Notify.SMSOnSynthesisFailure = true
	cfg.Ledger.Path = filepath.Join(dir, "ussd.db")
	if err := config.Normalize(&cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return &cfg
}

func TestApp_EndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "Kigali, Nyarugenge, Rwanda" {
			http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"Kigali","weather":[{"id":800,"main":"Clear","description":"clear sky"}],"main":{"temp":22,"humidity":40}}`))
	}))
	defer upstream.Close()

	a, err := New(context.Background(), testConfig(t, upstream.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ts := httptest.NewServer(a.Handler())
	defer ts.Close()

	post := func(text string) string {
		t.Helper()
		resp, err := http.PostForm(ts.URL+"/ussd", url.Values{
			"sessionId":   {"ATUid_e2e"},
			"serviceCode": {"*384*123#"},
			"phoneNumber": {"+250788123456"},
			"text":        {text},
		})
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body)
	}

	if got := post("1*Rwanda*Kigali"); got != "CON Enter your district:" {
		t.Fatalf("district prompt = %q", got)
	}
	want := "END The weather in Kigali, Nyarugenge, Rwanda is clear sky with a temperature of 22°C."
	if got := post("1*Rwanda*Kigali*Nyarugenge"); got != want {
		t.Fatalf("terminal = %q, want %q", got, want)
	}
	if got := post("1*Atlantis*Nowhere*None"); got != "END Sorry, we could not get the weather for Nowhere, None, Atlantis" {
		t.Fatalf("lookup failure = %q", got)
	}

	recent, err := a.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(recent))
	}
	n := recent[0]
	if n.SessionID != "ATUid_e2e" || n.SynthesisStatus != ledger.StatusSkipped || n.SMSStatus != ledger.StatusOK {
		t.Fatalf("notification = %+v", n)
	}
}

func TestApp_RecentWithoutLedger(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Ledger.Enabled = false
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if _, err := a.Recent(context.Background(), 1); err == nil {
		t.Fatal("expected error with ledger disabled")
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Server.Addr = "127.0.0.1:0"
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
