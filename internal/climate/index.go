package climate

import (
	"maps"
	"slices"
)

// Index maps year -> zero-based month -> category -> average value.
// It carries no ordering; the accessors below sort what they return.
type Index map[int]map[int]map[string]float64

// MonthLabels are the short month names used as chart axis labels.
var MonthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Lookup returns the average for a key and whether the key exists.
func (ix Index) Lookup(year, month int, category string) (float64, bool) {
	v, ok := ix[year][month][category]
	return v, ok
}

// Len returns the number of (year, month, category) keys.
func (ix Index) Len() int {
	n := 0
	for _, months := range ix {
		for _, categories := range months {
			n += len(categories)
		}
	}
	return n
}

// Years returns the indexed years in ascending order.
func (ix Index) Years() []int {
	return slices.Sorted(maps.Keys(ix))
}

// Months returns the indexed months of a year in ascending order.
func (ix Index) Months(year int) []int {
	return slices.Sorted(maps.Keys(ix[year]))
}

// Categories returns every category seen in any month of a year, sorted.
func (ix Index) Categories(year int) []string {
	seen := make(map[string]struct{})
	for _, categories := range ix[year] {
		for c := range categories {
			seen[c] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// SeriesPoint is one month of a Series. Value is nil when the month has no data.
type SeriesPoint struct {
	Month int      `json:"month"`
	Label string   `json:"label"`
	Value *float64 `json:"value"`
}

// Series is a twelve-month trace of one category in one year.
type Series struct {
	Year     int           `json:"year"`
	Category string        `json:"category"`
	Points   []SeriesPoint `json:"points"`
}

// Series lays out January through December for a category, leaving gaps
// where the index has no entry.
func (ix Index) Series(year int, category string) Series {
	s := Series{
		Year:     year,
		Category: category,
		Points:   make([]SeriesPoint, len(MonthLabels)),
	}
	for month, label := range MonthLabels {
		p := SeriesPoint{Month: month, Label: label}
		if v, ok := ix.Lookup(year, month, category); ok {
			p.Value = &v
		}
		s.Points[month] = p
	}
	return s
}

// Compare returns the series of a category for two years, in argument order.
func (ix Index) Compare(year, otherYear int, category string) []Series {
	return []Series{ix.Series(year, category), ix.Series(otherYear, category)}
}
