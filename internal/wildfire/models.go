package wildfire

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/wildfire-analysis/internal/climate"
	"github.com/i474232898/wildfire-analysis/internal/geo"
)

// DefaultMinYear is the first year of the modern perimeter record.
const DefaultMinYear = 1984

// ErrMalformedPayload is returned when a perimeter response has no features.
var ErrMalformedPayload = errors.New("perimeter data does not have the expected 'features' property")

// Fire is one mapped wildfire perimeter.
type Fire struct {
	Name string `json:"name"`
	// Year is zero when the source carried no usable fire year.
	Year int `json:"year"`
	// Rings are polygon rings of [lng, lat] vertices.
	Rings [][][2]float64 `json:"rings,omitempty"`
	// Attributes holds every raw attribute of the source feature.
	Attributes climate.Row `json:"-"`
}

// Anchor is the first vertex of the first ring, used to place the fire on a
// heat map.
func (f Fire) Anchor() (geo.Coordinates, bool) {
	if len(f.Rings) == 0 || len(f.Rings[0]) == 0 {
		return geo.Coordinates{}, false
	}
	v := f.Rings[0][0]
	return geo.Coordinates{Lat: v[1], Lng: v[0]}, true
}

// Summary is the popup text for a fire.
func (f Fire) Summary() string {
	if f.Year == 0 {
		return fmt.Sprintf("Fire Name: %s", f.Name)
	}
	return fmt.Sprintf("Fire Name: %s, Year: %d", f.Name, f.Year)
}

// YearOf reads a fire year attribute. Four-digit numbers are years; anything
// else goes through the climate date parser (numeric epoch milliseconds included).
func YearOf(v any) (int, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if len(s) == 4 {
			if y, err := strconv.Atoi(s); err == nil {
				return y, true
			}
		}
		v = s
	}
	if n, err := climate.ParseValue(v); err == nil && n >= 1000 && n <= 9999 && n == float64(int(n)) {
		return int(n), true
	}
	t, err := climate.ParseDate(v)
	if err != nil {
		return 0, false
	}
	return t.Year(), true
}

// FilterSince keeps fires whose year is known and at least minYear.
func FilterSince(fires []Fire, minYear int) []Fire {
	out := make([]Fire, 0, len(fires))
	for _, f := range fires {
		if f.Year != 0 && f.Year >= minYear {
			out = append(out, f)
		}
	}
	return out
}

// HeatPoints places each fire with geometry at its anchor with intensity 1.
func HeatPoints(fires []Fire) []geo.HeatPoint {
	points := make([]geo.HeatPoint, 0, len(fires))
	for _, f := range fires {
		at, ok := f.Anchor()
		if !ok {
			continue
		}
		points = append(points, geo.HeatPoint{Lat: at.Lat, Lng: at.Lng, Intensity: 1})
	}
	return points
}

// Snapshot is one filtered perimeter fetch.
type Snapshot struct {
	Source       string          `json:"source"`
	FetchedAt    time.Time       `json:"fetchedAt"`
	MinYear      int             `json:"minYear"`
	Total        int             `json:"total"`
	Fires        []Fire          `json:"fires"`
	HeatPoints   []geo.HeatPoint `json:"heatPoints"`
	Acreage      climate.Index   `json:"acreage"`
	AcreageStats climate.Stats   `json:"acreageStats"`
	AcreageBy    climate.Fields  `json:"acreageFields"`
}

// PerimeterSource fetches wildfire perimeters.
type PerimeterSource interface {
	Name() string
	Perimeters(ctx context.Context) ([]Fire, error)
}

// SnapshotStore keeps the latest snapshot.
type SnapshotStore interface {
	SaveSnapshot(snap Snapshot)
	LatestSnapshot() (Snapshot, error)
}

// Recorder observes refresh outcomes.
type Recorder interface {
	climate.Recorder
	ObserveFires(total, kept int)
}
