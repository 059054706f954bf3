package climate

import (
	"time"

	"github.com/i474232898/wildfire-analysis/internal/geo"
)

// DefaultCategory files records whose category field is missing or empty.
const DefaultCategory = "All"

// Row is one heterogeneous input record: a parsed CSV line, an ArcGIS
// feature attribute set, a stored reading.
type Row map[string]any

// Fields selects which attributes of a Row hold the date, category and value.
type Fields struct {
	Date     string `json:"date"`
	Category string `json:"category"`
	Value    string `json:"value"`

	// DefaultCategory replaces a missing category. Empty means DefaultCategory.
	DefaultCategory string `json:"defaultCategory,omitempty"`
}

// ClimateCSVFields matches the combined climate CSV export.
var ClimateCSVFields = Fields{
	Date:     "Date",
	Category: "City",
	Value:    "Max Temperature (F)",
}

func (f Fields) defaultCategory() string {
	if f.DefaultCategory != "" {
		return f.DefaultCategory
	}
	return DefaultCategory
}

// Stats reports how many records an aggregation consumed and why the rest
// were dropped.
type Stats struct {
	Records      int `json:"records"`
	Aggregated   int `json:"aggregated"`
	SkippedDate  int `json:"skippedDate"`
	SkippedValue int `json:"skippedValue"`
}

// Skipped is the number of records excluded from every average.
func (s Stats) Skipped() int {
	return s.SkippedDate + s.SkippedValue
}

// AllSkipped reports a non-empty input in which no record was usable.
func (s Stats) AllSkipped() bool {
	return s.Records > 0 && s.Aggregated == 0
}

// Dataset is an aggregated record source as loaded at a point in time.
type Dataset struct {
	Name     string    `json:"name"`
	Source   string    `json:"source"`
	Fields   Fields    `json:"fields"`
	Index    Index     `json:"index"`
	Stats    Stats     `json:"stats"`
	LoadedAt time.Time `json:"loadedAt"`
}

// DailyReading is a single day's maximum temperature. A nil value means the
// provider had no sample for that day.
type DailyReading struct {
	Date            time.Time
	MaxTemperatureC *float64
}

// StoredReading is a DailyReading persisted for a named place.
type StoredReading struct {
	City            string
	Coordinates     geo.Coordinates
	Date            time.Time
	MaxTemperatureC *float64
}

// DailyTemperature is the presentation form of a DailyReading.
type DailyTemperature struct {
	Date            string   `json:"date"`
	MaxTemperatureC *float64 `json:"maxTemperatureC"`
	MaxTemperatureF *float64 `json:"maxTemperatureF"`
}

// TemperatureReport is the geocoded daily temperature view for one place.
type TemperatureReport struct {
	City        string             `json:"city"`
	Coordinates geo.Coordinates    `json:"coordinates"`
	Start       string             `json:"start"`
	End         string             `json:"end"`
	Geocoder    string             `json:"geocoder"`
	Source      string             `json:"source"`
	Days        []DailyTemperature `json:"days"`
	HeatPoints  []geo.HeatPoint    `json:"heatPoints"`
	Monthly     Index              `json:"monthly"`
	Stats       Stats              `json:"stats"`
}
