package climate

import (
	"context"
	"time"

	"github.com/i474232898/wildfire-analysis/internal/geo"
)

// RecordSource supplies a finite, fully materialized sequence of rows.
type RecordSource interface {
	Name() string
	Records(ctx context.Context) ([]Row, error)
}

// Geocoder resolves a free-form place name to coordinates.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, query string) (geo.Coordinates, error)
}

// TemperatureSource returns daily maximum temperatures (Celsius) for a point
// over an inclusive date range.
type TemperatureSource interface {
	Name() string
	DailyMax(ctx context.Context, at geo.Coordinates, start, end time.Time) ([]DailyReading, error)
}

// DatasetStore keeps the aggregated datasets. Saving replaces the dataset
// visible to readers.
type DatasetStore interface {
	SaveDataset(ds Dataset)
	LatestDataset(name string) (Dataset, error)
	DatasetVersions(name string) ([]Dataset, error)
	DatasetNames() []string
}

// ReadingStore persists daily readings per city.
type ReadingStore interface {
	SaveReadings(ctx context.Context, city string, at geo.Coordinates, readings []DailyReading) error
	Readings(ctx context.Context, city string) ([]StoredReading, error)
}

// Recorder observes aggregation outcomes.
type Recorder interface {
	ObserveAggregation(dataset string, stats Stats)
	ObserveRefresh(dataset string, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAggregation(string, Stats) {}
func (nopRecorder) ObserveRefresh(string, error)     {}
