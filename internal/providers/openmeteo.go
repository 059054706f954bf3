package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/wildfire-analysis/internal/climate"
	"github.com/i474232898/wildfire-analysis/internal/geo"
)

const (
	// OpenMeteoClimateURL is the Open-Meteo climate model endpoint.
	OpenMeteoClimateURL = "https://climate-api.open-meteo.com/v1/climate"
	openMeteoDayLayout  = "2006-01-02"
)

// OpenMeteoClimate implements climate.TemperatureSource for the Open-Meteo climate API.
type OpenMeteoClimate struct {
	name    string
	baseURL string
	models  string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoClimate creates the provider. An empty baseURL selects
// OpenMeteoClimateURL; models is an optional comma-separated model list.
func NewOpenMeteoClimate(cfg HTTPClientConfig, baseURL, models string) *OpenMeteoClimate {
	if baseURL == "" {
		baseURL = OpenMeteoClimateURL
	}
	if cfg.Backoff == (BackoffConfig{}) {
		cfg.Backoff = DefaultBackoff
	}
	return &OpenMeteoClimate{
		name:    "openmeteo-climate",
		baseURL: baseURL,
		models:  models,
		httpCfg: cfg,
		circuit: newCircuit("openmeteo-climate"),
	}
}

func (p *OpenMeteoClimate) Name() string {
	return p.name
}

func (p *OpenMeteoClimate) DailyMax(ctx context.Context, at geo.Coordinates, start, end time.Time) ([]climate.DailyReading, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(at.Lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(at.Lng, 'f', -1, 64))
		values.Set("start_date", start.Format(openMeteoDayLayout))
		values.Set("end_date", end.Format(openMeteoDayLayout))
		values.Set("daily", "temperature_2m_max")
		if p.models != "" {
			values.Set("models", p.models)
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Daily *struct {
			Time           []string   `json:"time"`
			TemperatureMax []*float64 `json:"temperature_2m_max"`
		} `json:"daily"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode open-meteo response: %w", err)
	}

	daily := payload.Daily
	if daily == nil || daily.Time == nil || daily.TemperatureMax == nil {
		return nil, climate.ErrUnexpectedPayload
	}
	if len(daily.Time) != len(daily.TemperatureMax) {
		return nil, fmt.Errorf("%w: %d days but %d temperatures",
			climate.ErrUnexpectedPayload, len(daily.Time), len(daily.TemperatureMax))
	}

	readings := make([]climate.DailyReading, 0, len(daily.Time))
	for i, d := range daily.Time {
		ts, err := time.Parse(openMeteoDayLayout, d)
		if err != nil {
			return nil, fmt.Errorf("%w: bad day %q", climate.ErrUnexpectedPayload, d)
		}
		readings = append(readings, climate.DailyReading{
			Date:            ts,
			MaxTemperatureC: daily.TemperatureMax[i],
		})
	}
	return readings, nil
}
