package climate

import "errors"

// Aggregate groups rows by year, zero-based month and category and averages
// their values. Records with an unparseable date or value are skipped and
// counted in the returned Stats; the aggregation itself never fails.
//
// Each average is a left-to-right sum over the matching records in input
// order divided by their count, so identical input yields bit-identical
// output.
func Aggregate(rows []Row, fields Fields) (Index, Stats) {
	stats := Stats{Records: len(rows)}
	acc := make(map[int]map[int]map[string][]float64)
	def := fields.defaultCategory()

	for _, row := range rows {
		year, month, category, value, err := extract(row, fields, def)
		if err != nil {
			switch {
			case errors.Is(err, ErrUnparseableDate):
				stats.SkippedDate++
			case errors.Is(err, ErrUnparseableValue):
				stats.SkippedValue++
			}
			continue
		}

		months, ok := acc[year]
		if !ok {
			months = make(map[int]map[string][]float64)
			acc[year] = months
		}
		categories, ok := months[month]
		if !ok {
			categories = make(map[string][]float64)
			months[month] = categories
		}
		categories[category] = append(categories[category], value)
		stats.Aggregated++
	}

	index := make(Index, len(acc))
	for year, months := range acc {
		out := make(map[int]map[string]float64, len(months))
		for month, categories := range months {
			avgs := make(map[string]float64, len(categories))
			for category, values := range categories {
				avgs[category] = mean(values)
			}
			out[month] = avgs
		}
		index[year] = out
	}

	return index, stats
}

func extract(row Row, fields Fields, def string) (year, month int, category string, value float64, err error) {
	date, err := ParseDate(row[fields.Date])
	if err != nil {
		return 0, 0, "", 0, err
	}
	value, err = ParseValue(row[fields.Value])
	if err != nil {
		return 0, 0, "", 0, err
	}
	if fields.Category != "" {
		category = parseCategory(row[fields.Category], def)
	} else {
		category = def
	}
	return date.Year(), int(date.Month()) - 1, category, value, nil
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
