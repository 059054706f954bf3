// Command climate-aggregate reads a CSV file and prints its monthly
// aggregation index and skip statistics as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/peterbourgon/ff"

	"github.com/i474232898/wildfire-analysis/internal/climate"
	"github.com/i474232898/wildfire-analysis/internal/providers"
)

var errAllSkipped = errors.New("every record was skipped")

type output struct {
	Index climate.Index `json:"index"`
	Stats climate.Stats `json:"stats"`
}

func main() {
	_ = flag.Set("logtostderr", "true")
	defer glog.Flush()

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		glog.Errorf("climate-aggregate: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("climate-aggregate", flag.ContinueOnError)
	var (
		csvPath         = fs.String("csv", "", "CSV file path or http(s) URL")
		dateField       = fs.String("date-field", climate.ClimateCSVFields.Date, "date column")
		categoryField   = fs.String("category-field", climate.ClimateCSVFields.Category, "category column")
		valueField      = fs.String("value-field", climate.ClimateCSVFields.Value, "value column")
		defaultCategory = fs.String("default-category", climate.DefaultCategory, "category for rows without one")
		timeout         = fs.Duration("timeout", 30*time.Second, "timeout for remote CSV downloads")
	)
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("WFA")); err != nil {
		return err
	}
	if *csvPath == "" {
		return errors.New("-csv is required")
	}

	src := providers.NewRecordSource(providers.HTTPClientConfig{
		Client:  &http.Client{Timeout: *timeout},
		Backoff: providers.DefaultBackoff,
	}, *csvPath)
	rows, err := src.Records(ctx)
	if err != nil {
		return err
	}

	index, stats := climate.Aggregate(rows, climate.Fields{
		Date:            *dateField,
		Category:        *categoryField,
		Value:           *valueField,
		DefaultCategory: *defaultCategory,
	})
	if stats.Skipped() > 0 {
		glog.Warningf("skipped %d of %d records (date=%d value=%d)",
			stats.Skipped(), stats.Records, stats.SkippedDate, stats.SkippedValue)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output{Index: index, Stats: stats}); err != nil {
		return err
	}
	if stats.AllSkipped() {
		return errAllSkipped
	}
	return nil
}
