package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"WeatherUSSD/internal/backend"
	"WeatherUSSD/internal/config"
)

var (
	// ErrNotFound is returned when the provider does not know the location.
	ErrNotFound = errors.New("location not found")
	// ErrNoConditions is returned when the provider answers without any condition.
	ErrNoConditions = errors.New("no weather conditions in response")
)

// Report is the current weather at a location.
type Report struct {
	Description string
	Temperature float64
}

// Provider looks up current weather for a free-text location.
type Provider interface {
	Lookup(ctx context.Context, location string) (Report, error)
}

// currentResponse is the subset of the OpenWeatherMap current weather payload we read.
type currentResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
}

// OpenWeather calls the OpenWeatherMap current weather endpoint.
type OpenWeather struct {
	baseURL string
	apiKey  string
	units   string
	client  *backend.Client
	tracer  trace.Tracer
}

// NewOpenWeather creates a client from cfg. An empty API key is accepted;
// the provider will reject the calls and lookups fail with a StatusError.
func NewOpenWeather(cfg config.WeatherConfig, client *backend.Client, tracer trace.Tracer) *OpenWeather {
	return &OpenWeather{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		units:   cfg.Units,
		client:  client,
		tracer:  tracer,
	}
}

// Lookup fetches the current conditions for location.
func (o *OpenWeather) Lookup(ctx context.Context, location string) (Report, error) {
	ctx, span := o.tracer.Start(ctx, "weather.lookup",
		trace.WithAttributes(attribute.String("weather.location", location)),
	)
	defer span.End()

	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", o.apiKey)
	q.Set("units", o.units)
	endpoint := o.baseURL + "/data/2.5/weather?" + q.Encode()

	var resp currentResponse
	if err := o.client.GetJSON(ctx, "openweather", endpoint, nil, &resp); err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return Report{}, fmt.Errorf("%w: %s", ErrNotFound, location)
		}
		return Report{}, fmt.Errorf("failed to fetch weather: %w", err)
	}
	if len(resp.Weather) == 0 {
		return Report{}, ErrNoConditions
	}

	report := Report{
		Description: resp.Weather[0].Description,
		Temperature: resp.Main.Temp,
	}
	span.SetAttributes(
		attribute.String("weather.description", report.Description),
		attribute.Float64("weather.temperature", report.Temperature),
	)
	return report, nil
}
