package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/i474232898/wildfire-analysis/internal/climate"
	"github.com/i474232898/wildfire-analysis/internal/geo"
)

// NominatimURL is the OpenStreetMap search endpoint.
const NominatimURL = "https://nominatim.openstreetmap.org/search"

// NominatimGeocoder implements climate.Geocoder using OpenStreetMap Nominatim.
// Nominatim's usage policy requires an identifying User-Agent.
type NominatimGeocoder struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewNominatimGeocoder(cfg HTTPClientConfig, baseURL string) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = NominatimURL
	}
	if cfg.Backoff == (BackoffConfig{}) {
		cfg.Backoff = DefaultBackoff
	}
	return &NominatimGeocoder{
		name:    "nominatim",
		baseURL: baseURL,
		httpCfg: cfg,
		circuit: newCircuit("nominatim"),
	}
}

func (g *NominatimGeocoder) Name() string {
	return g.name
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (geo.Coordinates, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", query)
		values.Set("format", "json")
		values.Set("limit", "1")

		u := fmt.Sprintf("%s?%s", g.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, g.name, g.httpCfg, g.circuit, buildRequest)
	if err != nil {
		return geo.Coordinates{}, err
	}
	defer resp.Body.Close()

	var places []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return geo.Coordinates{}, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(places) == 0 {
		return geo.Coordinates{}, fmt.Errorf("%w: %q", climate.ErrLocationNotFound, query)
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return geo.Coordinates{}, fmt.Errorf("nominatim latitude %q: %w", places[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return geo.Coordinates{}, fmt.Errorf("nominatim longitude %q: %w", places[0].Lon, err)
	}
	return geo.Coordinates{Lat: lat, Lng: lng}, nil
}
