package climate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/i474232898/wildfire-analysis/internal/geo"
)

const dayLayout = "2006-01-02"

var (
	// ErrLocationNotFound is returned when no geocoder can resolve a place.
	ErrLocationNotFound = errors.New("location not found")
	// ErrInvalidRange is returned for a malformed or inverted date range.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrUnexpectedPayload is returned by sources whose response lacks the expected structure.
	ErrUnexpectedPayload = errors.New("expected data structure not found")
	// ErrMalformedDataset is returned when every record of a source was skipped.
	ErrMalformedDataset = errors.New("no usable records in dataset")
	// ErrHistoryDisabled is returned when no reading store is configured.
	ErrHistoryDisabled = errors.New("reading history is not configured")
)

// DefaultStart and DefaultEnd bound temperature lookups made without dates.
var (
	DefaultStart = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	DefaultEnd   = time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// temperatureFields selects the attributes of the rows built from daily readings.
var temperatureFields = Fields{Date: "date", Category: "city", Value: "max_f"}

// Service loads climate datasets and answers geocoded temperature lookups.
type Service struct {
	datasets  DatasetStore
	readings  ReadingStore
	geocoders []Geocoder
	source    TemperatureSource
	recorder  Recorder
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithReadingStore persists every fetched reading for history queries.
func WithReadingStore(rs ReadingStore) Option {
	return func(s *Service) { s.readings = rs }
}

// WithRecorder reports aggregation outcomes, typically to metrics.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewService creates a new Service. Geocoders are tried in order.
func NewService(datasets DatasetStore, geocoders []Geocoder, source TemperatureSource, opts ...Option) *Service {
	s := &Service{
		datasets:  datasets,
		geocoders: geocoders,
		source:    source,
		recorder:  nopRecorder{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshDataset reads every record of src, aggregates it under name and
// stores the result. A source in which every record is malformed leaves the
// previously stored dataset in place.
func (s *Service) RefreshDataset(ctx context.Context, name string, src RecordSource, fields Fields) (Dataset, error) {
	ds, err := s.refreshDataset(ctx, name, src, fields)
	s.recorder.ObserveRefresh(name, err)
	return ds, err
}

func (s *Service) refreshDataset(ctx context.Context, name string, src RecordSource, fields Fields) (Dataset, error) {
	rows, err := src.Records(ctx)
	if err != nil {
		return Dataset{}, fmt.Errorf("load %s records from %s: %w", name, src.Name(), err)
	}

	index, stats := Aggregate(rows, fields)
	s.recorder.ObserveAggregation(name, stats)
	if stats.Skipped() > 0 {
		glog.Warningf("climate: dataset %s skipped %d of %d records (date=%d value=%d)",
			name, stats.Skipped(), stats.Records, stats.SkippedDate, stats.SkippedValue)
	}
	if stats.AllSkipped() {
		return Dataset{}, fmt.Errorf("%w: %s", ErrMalformedDataset, name)
	}

	ds := Dataset{
		Name:     name,
		Source:   src.Name(),
		Fields:   fields,
		Index:    index,
		Stats:    stats,
		LoadedAt: s.now().UTC(),
	}
	s.datasets.SaveDataset(ds)
	glog.Infof("climate: dataset %s loaded %d keys across %d years", name, index.Len(), len(index))
	return ds, nil
}

// Dataset delegates to the underlying store.
func (s *Service) Dataset(name string) (Dataset, error) {
	return s.datasets.LatestDataset(name)
}

// DatasetVersions returns the retained versions of a dataset, oldest first.
func (s *Service) DatasetVersions(name string) ([]Dataset, error) {
	return s.datasets.DatasetVersions(name)
}

// Datasets returns the latest version of every stored dataset.
func (s *Service) Datasets() []Dataset {
	names := s.datasets.DatasetNames()
	out := make([]Dataset, 0, len(names))
	for _, n := range names {
		ds, err := s.datasets.LatestDataset(n)
		if err != nil {
			continue
		}
		out = append(out, ds)
	}
	return out
}

// Temperature geocodes city and reports its daily maximum temperatures for
// the inclusive range [start, end]. Both zero selects DefaultStart..DefaultEnd.
func (s *Service) Temperature(ctx context.Context, city string, start, end time.Time) (TemperatureReport, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return TemperatureReport{}, fmt.Errorf("%w: empty city", ErrLocationNotFound)
	}
	start, end, err := resolveRange(start, end)
	if err != nil {
		return TemperatureReport{}, err
	}
	if s.source == nil {
		return TemperatureReport{}, errors.New("no temperature source configured")
	}

	at, geocoder, err := s.geocode(ctx, city)
	if err != nil {
		return TemperatureReport{}, err
	}

	glog.V(2).Infof("climate: fetching %s..%s for %s at %.4f,%.4f",
		start.Format(dayLayout), end.Format(dayLayout), city, at.Lat, at.Lng)

	readings, err := s.source.DailyMax(ctx, at, start, end)
	if err != nil {
		return TemperatureReport{}, fmt.Errorf("fetch temperatures for %s: %w", city, err)
	}

	report := buildReport(city, at, readings)
	report.Start = start.Format(dayLayout)
	report.End = end.Format(dayLayout)
	report.Geocoder = geocoder
	report.Source = s.source.Name()
	s.recorder.ObserveAggregation("temperature", report.Stats)

	if s.readings != nil && len(readings) > 0 {
		// History is best effort; the report is still useful without it.
		if err := s.readings.SaveReadings(ctx, city, at, readings); err != nil {
			glog.Errorf("climate: saving readings for %s failed: %v", city, err)
		}
	}

	return report, nil
}

// History aggregates every stored reading of city (matched without regard to
// case) into a monthly index of Fahrenheit maxima filed under city.
func (s *Service) History(ctx context.Context, city string) (Index, Stats, error) {
	if s.readings == nil {
		return nil, Stats{}, ErrHistoryDisabled
	}
	city = strings.TrimSpace(city)
	stored, err := s.readings.Readings(ctx, city)
	if err != nil {
		return nil, Stats{}, err
	}

	// Stored spellings may differ in case; the index is keyed by the query.
	rows := make([]Row, 0, len(stored))
	for _, r := range stored {
		rows = append(rows, readingRow(city, r.Date, r.MaxTemperatureC))
	}
	index, stats := Aggregate(rows, temperatureFields)
	return index, stats, nil
}

func (s *Service) geocode(ctx context.Context, city string) (geo.Coordinates, string, error) {
	if len(s.geocoders) == 0 {
		return geo.Coordinates{}, "", errors.New("no geocoders configured")
	}

	var lastErr error
	for _, g := range s.geocoders {
		at, err := g.Geocode(ctx, city)
		if err == nil {
			return at, g.Name(), nil
		}
		glog.V(2).Infof("climate: geocoder %s could not resolve %q: %v", g.Name(), city, err)
		if ctx.Err() != nil {
			return geo.Coordinates{}, "", ctx.Err()
		}
		if lastErr == nil || !errors.Is(err, ErrLocationNotFound) {
			lastErr = err
		}
	}
	return geo.Coordinates{}, "", lastErr
}

func resolveRange(start, end time.Time) (time.Time, time.Time, error) {
	switch {
	case start.IsZero() && end.IsZero():
		return DefaultStart, DefaultEnd, nil
	case start.IsZero() || end.IsZero():
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start and end must be given together", ErrInvalidRange)
	case end.Before(start):
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %s is before start %s",
			ErrInvalidRange, end.Format(dayLayout), start.Format(dayLayout))
	}
	return start, end, nil
}

func buildReport(city string, at geo.Coordinates, readings []DailyReading) TemperatureReport {
	report := TemperatureReport{
		City:        city,
		Coordinates: at,
		Days:        make([]DailyTemperature, 0, len(readings)),
		HeatPoints:  make([]geo.HeatPoint, 0, len(readings)),
	}

	rows := make([]Row, 0, len(readings))
	for _, r := range readings {
		day := DailyTemperature{
			Date:            r.Date.Format(dayLayout),
			MaxTemperatureC: r.MaxTemperatureC,
		}
		if r.MaxTemperatureC != nil {
			f := CelsiusToFahrenheit(*r.MaxTemperatureC)
			day.MaxTemperatureF = &f
			report.HeatPoints = append(report.HeatPoints, geo.HeatPoint{Lat: at.Lat, Lng: at.Lng, Intensity: f})
		}
		report.Days = append(report.Days, day)
		rows = append(rows, readingRow(city, r.Date, r.MaxTemperatureC))
	}

	report.Monthly, report.Stats = Aggregate(rows, temperatureFields)
	return report
}

func readingRow(city string, date time.Time, maxC *float64) Row {
	row := Row{
		temperatureFields.Date:     date,
		temperatureFields.Category: city,
	}
	if maxC != nil {
		row[temperatureFields.Value] = CelsiusToFahrenheit(*maxC)
	}
	return row
}
