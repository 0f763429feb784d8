package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"WeatherUSSD/internal/telemetry"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	p := telemetry.Noop()
	c, err := NewClient(BuildHTTPClient(0), p.Tracer, p.Meter)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClient_GetJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("X-Test") != "yes" {
			t.Errorf("missing header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"kigali"}`))
	}))
	defer ts.Close()

	var out struct {
		Name string `json:"name"`
	}
	if err := newTestClient(t).GetJSON(context.Background(), "test", ts.URL, map[string]string{"X-Test": "yes"}, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Name != "kigali" {
		t.Fatalf("name = %q", out.Name)
	}
}

func TestClient_StatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
	}))
	defer ts.Close()

	err := newTestClient(t).GetJSON(context.Background(), "weather", ts.URL, nil, &struct{}{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound || statusErr.Call != "weather" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

func TestClient_PostForm(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("to") != "+250788000000" {
			t.Errorf("to = %q", r.PostForm.Get("to"))
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	form := url.Values{"to": {"+250788000000"}}
	if err := newTestClient(t).PostForm(context.Background(), "sms", ts.URL, form, nil, nil); err != nil {
		t.Fatalf("PostForm: %v", err)
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer ts.Close()

	var out map[string]any
	if err := newTestClient(t).GetJSON(context.Background(), "test", ts.URL, nil, &out); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
