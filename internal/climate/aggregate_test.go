package climate_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/i474232898/wildfire-analysis/internal/climate"
)

var fields = climate.Fields{Date: "date", Category: "category", Value: "value"}

func row(date, category, value string) climate.Row {
	return climate.Row{"date": date, "category": category, "value": value}
}

func TestAggregate(t *testing.T) {
	Convey("Given the aggregator", t, func() {
		Convey("When aggregating an empty sequence", func() {
			index, stats := climate.Aggregate(nil, fields)

			Convey("Then the index is empty and nothing is skipped", func() {
				So(index, ShouldNotBeNil)
				So(index, ShouldBeEmpty)
				So(stats, ShouldResemble, climate.Stats{})
				So(stats.AllSkipped(), ShouldBeFalse)
			})
		})

		Convey("When records span two months of one category", func() {
			rows := []climate.Row{
				row("2023-01-05", "X", "70"),
				row("2023-01-20", "X", "80"),
				row("2023-02-01", "X", "50"),
			}
			index, stats := climate.Aggregate(rows, fields)

			Convey("Then each month holds the mean of its records", func() {
				So(index, ShouldResemble, climate.Index{
					2023: {
						0: {"X": 75},
						1: {"X": 50},
					},
				})
				So(stats.Aggregated, ShouldEqual, 3)
				So(stats.Skipped(), ShouldEqual, 0)
			})
		})

		Convey("When two categories share a month", func() {
			rows := []climate.Row{
				row("2023-03-01", "A", "10"),
				row("2023-03-01", "B", "20"),
			}
			index, _ := climate.Aggregate(rows, fields)

			Convey("Then they average independently", func() {
				So(index, ShouldResemble, climate.Index{2023: {2: {"A": 10, "B": 20}}})
			})
		})

		Convey("When a record has an unparseable date", func() {
			rows := []climate.Row{
				row("2023-01-05", "X", "70"),
				row("bad-date", "X", "70"),
				row("2023-01-20", "X", "80"),
			}
			index, stats := climate.Aggregate(rows, fields)

			Convey("Then it is skipped and introduces no key", func() {
				So(index.Years(), ShouldResemble, []int{2023})
				So(index.Len(), ShouldEqual, 1)
				v, ok := index.Lookup(2023, 0, "X")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 75)
				So(stats.SkippedDate, ShouldEqual, 1)
				So(stats.SkippedValue, ShouldEqual, 0)
			})
		})

		Convey("When a record has an unparseable value", func() {
			rows := []climate.Row{
				row("2023-01-05", "X", "70"),
				row("2023-01-06", "X", "n/a"),
				row("2023-04-06", "Y", ""),
				{"date": "2023-05-01", "category": "Z"},
			}
			index, stats := climate.Aggregate(rows, fields)

			Convey("Then it contributes to no average", func() {
				So(index, ShouldResemble, climate.Index{2023: {0: {"X": 70}}})
				So(stats.SkippedValue, ShouldEqual, 3)
				So(stats.Aggregated, ShouldEqual, 1)
			})
		})

		Convey("When every record is malformed", func() {
			rows := []climate.Row{
				row("nope", "X", "1"),
				row("2023-01-01", "X", "NaN"),
			}
			index, stats := climate.Aggregate(rows, fields)

			Convey("Then the index is empty and the stats flag it", func() {
				So(index, ShouldBeEmpty)
				So(stats.AllSkipped(), ShouldBeTrue)
				So(stats.Skipped(), ShouldEqual, 2)
			})
		})

		Convey("When dates are written as bare digits", func() {
			rows := []climate.Row{
				row("20230105", "X", "70"),
				row("2023", "X", "80"),
				row("1593561600000", "X", "90"),
			}
			index, stats := climate.Aggregate(rows, fields)

			Convey("Then years and compact dates parse and other digit strings are skipped", func() {
				So(index, ShouldResemble, climate.Index{2023: {0: {"X": 75}}})
				So(stats.SkippedDate, ShouldEqual, 1)
				So(index.Years(), ShouldResemble, []int{2023})
			})
		})

		Convey("When the category is missing", func() {
			rows := []climate.Row{
				{"date": "2023-06-01", "value": 10.0},
				{"date": "2023-06-02", "category": "  ", "value": 20.0},
			}

			Convey("Then records fall under the default category", func() {
				index, _ := climate.Aggregate(rows, fields)
				So(index, ShouldResemble, climate.Index{2023: {5: {climate.DefaultCategory: 15}}})
			})

			Convey("And a configured default wins", func() {
				custom := fields
				custom.DefaultCategory = "Sacramento"
				index, _ := climate.Aggregate(rows, custom)
				So(index, ShouldResemble, climate.Index{2023: {5: {"Sacramento": 15}}})
			})

			Convey("And a dataset without a category field uses the default", func() {
				noCategory := climate.Fields{Date: "date", Value: "value"}
				index, _ := climate.Aggregate([]climate.Row{row("2023-06-01", "ignored", "4")}, noCategory)
				So(index, ShouldResemble, climate.Index{2023: {5: {climate.DefaultCategory: 4}}})
			})
		})

		Convey("When aggregating the same input twice", func() {
			rows := []climate.Row{
				row("2021-07-01", "Fresno", "101.3"),
				row("2021-07-02", "Fresno", "99.9"),
				row("2021-07-03", "Fresno", "0.1"),
				row("2021-07-04", "Fresno", "104.7"),
				row("2021-08-01", "Redding", "95.25"),
			}
			first, firstStats := climate.Aggregate(rows, fields)
			second, secondStats := climate.Aggregate(rows, fields)

			Convey("Then the results are identical", func() {
				So(second, ShouldResemble, first)
				So(secondStats, ShouldResemble, firstStats)
			})

			Convey("And the average is the left-to-right mean", func() {
				a, b, c, d := 101.3, 99.9, 0.1, 104.7
				want := (((a + b) + c) + d) / 4
				v, _ := first.Lookup(2021, 6, "Fresno")
				So(v, ShouldEqual, want)
			})
		})

		Convey("When rows come from an API with typed attributes", func() {
			rows := []climate.Row{
				{"DISCOVERYDATETIME": float64(1593561600000), "GISACRES": 120.0}, // 2020-07-01
				{"DISCOVERYDATETIME": int64(1594166400000), "GISACRES": 80},      // 2020-07-08
			}
			index, stats := climate.Aggregate(rows, climate.Fields{Date: "DISCOVERYDATETIME", Value: "GISACRES"})

			Convey("Then epoch milliseconds and numeric values are accepted", func() {
				So(stats.Aggregated, ShouldEqual, 2)
				So(index, ShouldResemble, climate.Index{2020: {6: {climate.DefaultCategory: 100}}})
			})
		})
	})
}
