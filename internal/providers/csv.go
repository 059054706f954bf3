package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/i474232898/wildfire-analysis/internal/climate"
	"github.com/i474232898/wildfire-analysis/internal/climate/csvsource"
	"github.com/i474232898/wildfire-analysis/internal/common"
)

// RemoteCSV implements climate.RecordSource for a CSV served over http(s).
type RemoteCSV struct {
	name    string
	url     string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewRemoteCSV(cfg HTTPClientConfig, url string) *RemoteCSV {
	if cfg.Backoff == (BackoffConfig{}) {
		cfg.Backoff = DefaultBackoff
	}
	return &RemoteCSV{
		name:    "csv",
		url:     url,
		httpCfg: cfg,
		circuit: newCircuit("csv " + url),
	}
}

// NewRecordSource picks RemoteCSV for http(s) locations and a local file
// reader otherwise.
func NewRecordSource(cfg HTTPClientConfig, location string) climate.RecordSource {
	if common.HasPrefixAny(location, "http://", "https://") {
		return NewRemoteCSV(cfg, location)
	}
	return csvsource.New(location)
}

func (p *RemoteCSV) Name() string {
	return p.url
}

func (p *RemoteCSV) Records(ctx context.Context) ([]climate.Row, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, p.url, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("download csv: %w", err)
	}
	defer resp.Body.Close()

	return csvsource.Parse(resp.Body)
}
