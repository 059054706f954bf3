package climate

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/wildfire-analysis/internal/geo"
)

type fakeDatasets struct {
	mu   sync.Mutex
	data map[string]Dataset
}

func newFakeDatasets() *fakeDatasets { return &fakeDatasets{data: map[string]Dataset{}} }

func (f *fakeDatasets) SaveDataset(ds Dataset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[ds.Name] = ds
}

func (f *fakeDatasets) LatestDataset(name string) (Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.data[name]
	if !ok {
		return Dataset{}, errors.New("not found")
	}
	return ds, nil
}

func (f *fakeDatasets) DatasetVersions(name string) ([]Dataset, error) {
	ds, err := f.LatestDataset(name)
	if err != nil {
		return nil, err
	}
	return []Dataset{ds}, nil
}

func (f *fakeDatasets) DatasetNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for n := range f.data {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type staticSource struct {
	rows []Row
	err  error
}

func (s staticSource) Name() string { return "static" }
func (s staticSource) Records(context.Context) ([]Row, error) {
	return s.rows, s.err
}

type fakeGeocoder struct {
	name string
	at   geo.Coordinates
	err  error
}

func (g fakeGeocoder) Name() string { return g.name }
func (g fakeGeocoder) Geocode(context.Context, string) (geo.Coordinates, error) {
	return g.at, g.err
}

type fakeTemperatures struct {
	readings []DailyReading
	gotStart time.Time
	gotEnd   time.Time
	gotAt    geo.Coordinates
	err      error
}

func (f *fakeTemperatures) Name() string { return "fake-climate" }
func (f *fakeTemperatures) DailyMax(_ context.Context, at geo.Coordinates, start, end time.Time) ([]DailyReading, error) {
	f.gotAt, f.gotStart, f.gotEnd = at, start, end
	return f.readings, f.err
}

type memReadings struct {
	saved []StoredReading
}

func (m *memReadings) SaveReadings(_ context.Context, city string, at geo.Coordinates, readings []DailyReading) error {
	for _, r := range readings {
		m.saved = append(m.saved, StoredReading{City: city, Coordinates: at, Date: r.Date, MaxTemperatureC: r.MaxTemperatureC})
	}
	return nil
}

func (m *memReadings) Readings(_ context.Context, city string) ([]StoredReading, error) {
	var out []StoredReading
	for _, r := range m.saved {
		if strings.EqualFold(r.City, city) {
			out = append(out, r)
		}
	}
	return out, nil
}

type countingRecorder struct {
	aggregations int
	refreshErrs  []error
}

func (c *countingRecorder) ObserveAggregation(string, Stats) { c.aggregations++ }
func (c *countingRecorder) ObserveRefresh(_ string, err error) {
	c.refreshErrs = append(c.refreshErrs, err)
}

func ptr(v float64) *float64 { return &v }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestRefreshDatasetStoresAggregate(t *testing.T) {
	require := require.New(t)
	store := newFakeDatasets()
	rec := &countingRecorder{}
	svc := NewService(store, nil, nil, WithRecorder(rec))

	src := staticSource{rows: []Row{
		{"Date": "2023-01-05", "City": "Fresno", "Max Temperature (F)": "70"},
		{"Date": "2023-01-20", "City": "Fresno", "Max Temperature (F)": "80"},
		{"Date": "oops", "City": "Fresno", "Max Temperature (F)": "80"},
	}}

	ds, err := svc.RefreshDataset(context.Background(), "climate", src, ClimateCSVFields)
	require.NoError(err)
	require.Equal("static", ds.Source)
	require.Equal(1, ds.Stats.SkippedDate)

	got, err := svc.Dataset("climate")
	require.NoError(err)
	v, ok := got.Index.Lookup(2023, 0, "Fresno")
	require.True(ok)
	require.Equal(75.0, v)
	require.Len(svc.Datasets(), 1)
	require.Equal(1, rec.aggregations)
	require.Equal([]error{nil}, rec.refreshErrs)
}

func TestRefreshDatasetKeepsPreviousWhenAllSkipped(t *testing.T) {
	require := require.New(t)
	store := newFakeDatasets()
	svc := NewService(store, nil, nil)

	good := staticSource{rows: []Row{{"Date": "2022-05-01", "City": "A", "Max Temperature (F)": "1"}}}
	_, err := svc.RefreshDataset(context.Background(), "climate", good, ClimateCSVFields)
	require.NoError(err)

	bad := staticSource{rows: []Row{{"Date": "x", "City": "A", "Max Temperature (F)": "1"}}}
	_, err = svc.RefreshDataset(context.Background(), "climate", bad, ClimateCSVFields)
	require.ErrorIs(err, ErrMalformedDataset)

	ds, err := svc.Dataset("climate")
	require.NoError(err)
	require.Equal([]int{2022}, ds.Index.Years())
}

func TestRefreshDatasetEmptySourceIsNotAnError(t *testing.T) {
	require := require.New(t)
	svc := NewService(newFakeDatasets(), nil, nil)

	ds, err := svc.RefreshDataset(context.Background(), "empty", staticSource{}, ClimateCSVFields)
	require.NoError(err)
	require.Empty(ds.Index)
}

func TestRefreshDatasetPropagatesSourceError(t *testing.T) {
	svc := NewService(newFakeDatasets(), nil, nil)
	boom := errors.New("boom")

	_, err := svc.RefreshDataset(context.Background(), "climate", staticSource{err: boom}, ClimateCSVFields)
	require.ErrorIs(t, err, boom)
}

func TestTemperatureBuildsReport(t *testing.T) {
	require := require.New(t)
	at := geo.Coordinates{Lat: 36.74, Lng: -119.78}
	temps := &fakeTemperatures{readings: []DailyReading{
		{Date: day(2023, time.January, 1), MaxTemperatureC: ptr(10)},
		{Date: day(2023, time.January, 2), MaxTemperatureC: ptr(20)},
		{Date: day(2023, time.February, 1), MaxTemperatureC: nil},
	}}
	history := &memReadings{}
	svc := NewService(newFakeDatasets(),
		[]Geocoder{fakeGeocoder{name: "primary", err: ErrLocationNotFound}, fakeGeocoder{name: "fallback", at: at}},
		temps, WithReadingStore(history))

	report, err := svc.Temperature(context.Background(), " Fresno ", time.Time{}, time.Time{})
	require.NoError(err)
	require.Equal("Fresno", report.City)
	require.Equal("fallback", report.Geocoder)
	require.Equal("fake-climate", report.Source)
	require.Equal("2023-01-01", report.Start)
	require.Equal("2023-12-31", report.End)
	require.Equal(DefaultStart, temps.gotStart)
	require.Equal(DefaultEnd, temps.gotEnd)
	require.Equal(at, temps.gotAt)

	require.Len(report.Days, 3)
	require.Equal(50.0, *report.Days[0].MaxTemperatureF)
	require.Nil(report.Days[2].MaxTemperatureF)
	require.Len(report.HeatPoints, 2)
	require.Equal(geo.HeatPoint{Lat: at.Lat, Lng: at.Lng, Intensity: 68}, report.HeatPoints[1])

	jan, ok := report.Monthly.Lookup(2023, 0, "Fresno")
	require.True(ok)
	require.Equal(59.0, jan)
	_, ok = report.Monthly.Lookup(2023, 1, "Fresno")
	require.False(ok)
	require.Equal(1, report.Stats.SkippedValue)

	require.Len(history.saved, 3)
	idx, stats, err := svc.History(context.Background(), "Fresno")
	require.NoError(err)
	require.Equal(2, stats.Aggregated)
	require.Equal(report.Monthly, idx)
}

func TestTemperatureRejectsBadInput(t *testing.T) {
	require := require.New(t)
	svc := NewService(newFakeDatasets(), []Geocoder{fakeGeocoder{name: "g"}}, &fakeTemperatures{})
	ctx := context.Background()

	_, err := svc.Temperature(ctx, "", time.Time{}, time.Time{})
	require.ErrorIs(err, ErrLocationNotFound)

	_, err = svc.Temperature(ctx, "Fresno", day(2023, time.May, 1), time.Time{})
	require.ErrorIs(err, ErrInvalidRange)

	_, err = svc.Temperature(ctx, "Fresno", day(2023, time.May, 2), day(2023, time.May, 1))
	require.ErrorIs(err, ErrInvalidRange)
}

func TestTemperatureLocationNotFound(t *testing.T) {
	svc := NewService(newFakeDatasets(),
		[]Geocoder{fakeGeocoder{name: "a", err: ErrLocationNotFound}, fakeGeocoder{name: "b", err: ErrLocationNotFound}},
		&fakeTemperatures{})

	_, err := svc.Temperature(context.Background(), "Atlantis", time.Time{}, time.Time{})
	require.ErrorIs(t, err, ErrLocationNotFound)
}

func TestTemperaturePrefersTransportErrorOverNotFound(t *testing.T) {
	transport := errors.New("connection refused")
	svc := NewService(newFakeDatasets(),
		[]Geocoder{fakeGeocoder{name: "a", err: transport}, fakeGeocoder{name: "b", err: ErrLocationNotFound}},
		&fakeTemperatures{})

	_, err := svc.Temperature(context.Background(), "Fresno", time.Time{}, time.Time{})
	require.ErrorIs(t, err, transport)
}

func TestHistoryDisabledWithoutStore(t *testing.T) {
	svc := NewService(newFakeDatasets(), nil, nil)
	_, _, err := svc.History(context.Background(), "Fresno")
	require.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestHistoryKeysByQueriedCity(t *testing.T) {
	require := require.New(t)
	history := &memReadings{}
	svc := NewService(newFakeDatasets(), nil, nil, WithReadingStore(history))
	ctx := context.Background()

	require.NoError(history.SaveReadings(ctx, "Fresno", geo.Coordinates{}, []DailyReading{{Date: day(2023, time.July, 1), MaxTemperatureC: ptr(40)}}))
	require.NoError(history.SaveReadings(ctx, "FRESNO", geo.Coordinates{}, []DailyReading{{Date: day(2023, time.July, 2), MaxTemperatureC: ptr(30)}}))

	idx, _, err := svc.History(ctx, " fresno ")
	require.NoError(err)
	require.Equal(Index{2023: {6: {"fresno": 95}}}, idx)
}
