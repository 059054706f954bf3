package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/wildfire-analysis/internal/climate"
	"github.com/i474232898/wildfire-analysis/internal/common"
	"github.com/i474232898/wildfire-analysis/internal/geo"
)

// geocoderMu guards the package-level API key of kelvins/geocoder.
var geocoderMu sync.Mutex

// GoogleGeocoder implements climate.Geocoder with the Google Geocoding API.
type GoogleGeocoder struct {
	name    string
	apiKey  string
	circuit *gobreaker.CircuitBreaker
	lookup  func(geocoder.Address) (geocoder.Location, error)
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{
		name:    "google",
		apiKey:  apiKey,
		circuit: newCircuit("google-geocoder"),
		lookup:  geocoder.Geocoding,
	}
}

func (g *GoogleGeocoder) Name() string {
	return g.name
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, query string) (geo.Coordinates, error) {
	if g.apiKey == "" {
		return geo.Coordinates{}, fmt.Errorf("google geocoder api key is not configured")
	}
	if err := ctx.Err(); err != nil {
		return geo.Coordinates{}, err
	}

	result, err := g.circuit.Execute(func() (interface{}, error) {
		geocoderMu.Lock()
		defer geocoderMu.Unlock()

		geocoder.ApiKey = g.apiKey
		loc, err := g.lookup(geocoder.Address{City: query})
		if err != nil {
			if common.HasAny(strings.ToUpper(err.Error()), "ZERO_RESULTS", "EMPTY", "NOT FOUND") {
				return nil, fmt.Errorf("%w: %q", climate.ErrLocationNotFound, query)
			}
			return nil, err
		}
		return loc, nil
	})
	if err != nil {
		return geo.Coordinates{}, err
	}

	loc := result.(geocoder.Location)
	return geo.Coordinates{Lat: loc.Latitude, Lng: loc.Longitude}, nil
}
