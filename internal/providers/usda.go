package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/golang/glog"
	"github.com/sony/gobreaker"

	"github.com/i474232898/wildfire-analysis/internal/climate"
	"github.com/i474232898/wildfire-analysis/internal/wildfire"
)

// USDAPerimetersURL is the Forest Service EDW fire perimeter layer.
const USDAPerimetersURL = "https://apps.fs.usda.gov/arcx/rest/services/EDW/EDW_FireOccurrenceAndPerimeter_01/MapServer/9/query"

const defaultMaxPages = 20

// USDAFirePerimeters implements wildfire.PerimeterSource over an ArcGIS
// MapServer query endpoint, following exceededTransferLimit pagination.
type USDAFirePerimeters struct {
	name     string
	baseURL  string
	maxPages int
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

// NewUSDAFirePerimeters creates the provider. An empty baseURL selects
// USDAPerimetersURL; maxPages <= 0 selects 20 pages.
func NewUSDAFirePerimeters(cfg HTTPClientConfig, baseURL string, maxPages int) *USDAFirePerimeters {
	if baseURL == "" {
		baseURL = USDAPerimetersURL
	}
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	if cfg.Backoff == (BackoffConfig{}) {
		cfg.Backoff = DefaultBackoff
	}
	return &USDAFirePerimeters{
		name:     "usda-edw",
		baseURL:  baseURL,
		maxPages: maxPages,
		httpCfg:  cfg,
		circuit:  newCircuit("usda-edw"),
	}
}

func (p *USDAFirePerimeters) Name() string {
	return p.name
}

type arcgisFeature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *struct {
		Rings [][][]float64 `json:"rings"`
	} `json:"geometry"`
}

type arcgisPage struct {
	Features              *[]arcgisFeature `json:"features"`
	ExceededTransferLimit bool             `json:"exceededTransferLimit"`
	Error                 *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *USDAFirePerimeters) Perimeters(ctx context.Context) ([]wildfire.Fire, error) {
	var fires []wildfire.Fire
	offset := 0

	for page := 0; page < p.maxPages; page++ {
		features, more, err := p.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		for _, f := range features {
			fires = append(fires, toFire(f))
		}
		if !more || len(features) == 0 {
			return fires, nil
		}
		offset += len(features)
	}

	glog.Warningf("providers: %s stopped after %d pages with more perimeters pending", p.name, p.maxPages)
	return fires, nil
}

func (p *USDAFirePerimeters) fetchPage(ctx context.Context, offset int) ([]arcgisFeature, bool, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("where", "1=1")
		values.Set("outFields", "*")
		values.Set("outSR", "4326")
		values.Set("f", "json")
		if offset > 0 {
			values.Set("resultOffset", strconv.Itoa(offset))
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var payload arcgisPage
	if err := dec.Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("decode perimeter response: %w", err)
	}
	if payload.Error != nil {
		return nil, false, fmt.Errorf("%w: arcgis error %d: %s",
			wildfire.ErrMalformedPayload, payload.Error.Code, payload.Error.Message)
	}
	if payload.Features == nil {
		return nil, false, wildfire.ErrMalformedPayload
	}
	return *payload.Features, payload.ExceededTransferLimit, nil
}

func toFire(f arcgisFeature) wildfire.Fire {
	attrs := climate.Row(f.Attributes)
	fire := wildfire.Fire{Attributes: attrs}

	if name, ok := attrs["FIRE_NAME"].(string); ok {
		fire.Name = name
	}
	if year, ok := wildfire.YearOf(attrs["FIRE_YEAR"]); ok {
		fire.Year = year
	}

	if f.Geometry != nil {
		for _, ring := range f.Geometry.Rings {
			out := make([][2]float64, 0, len(ring))
			for _, v := range ring {
				if len(v) < 2 {
					continue
				}
				out = append(out, [2]float64{v[0], v[1]})
			}
			if len(out) > 0 {
				fire.Rings = append(fire.Rings, out)
			}
		}
	}
	return fire
}
