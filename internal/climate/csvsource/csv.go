// Package csvsource reads header-keyed CSV files into climate rows.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/i474232898/wildfire-analysis/internal/climate"
)

// Source loads a CSV from a local path. Remote CSVs are fetched by
// providers.RemoteCSV, which parses them with Parse.
type Source struct {
	path string
}

func New(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Name() string {
	return s.path
}

// Records opens the file and parses every row.
func (s *Source) Records(context.Context) ([]climate.Row, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a CSV whose first line names the columns. Short rows leave
// their missing columns absent; surplus cells are dropped. Stray quotes are
// kept as text. An empty input yields no rows.
func Parse(r io.Reader) ([]climate.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}

	var rows []climate.Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line: %w", err)
		}

		row := make(climate.Row, len(header))
		for i, cell := range rec {
			if i >= len(header) {
				break
			}
			row[header[i]] = cell
		}
		rows = append(rows, row)
	}
	return rows, nil
}
