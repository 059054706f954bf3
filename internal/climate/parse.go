package climate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnparseableDate marks a record whose date field is not a calendar date.
	ErrUnparseableDate = errors.New("unparseable date")
	// ErrUnparseableValue marks a record whose value field is not a finite number.
	ErrUnparseableValue = errors.New("unparseable value")
)

// dateLayouts are tried in order; date-only forms come first since CSV
// exports overwhelmingly use them.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01",
	"20060102",
	"2006",
}

// ParseDate converts a date attribute into a calendar date. Strings are
// matched against common layouts, a bare year meaning January 1; numbers are
// epoch milliseconds, the convention ArcGIS uses for date attributes. A digit
// string is never read as epoch milliseconds.
func ParseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("%w: missing", ErrUnparseableDate)
	case time.Time:
		if d.IsZero() {
			return time.Time{}, fmt.Errorf("%w: zero time", ErrUnparseableDate)
		}
		return d, nil
	case *time.Time:
		if d == nil {
			return time.Time{}, fmt.Errorf("%w: missing", ErrUnparseableDate)
		}
		return ParseDate(*d)
	case string:
		return parseDateString(d)
	default:
		ms, err := ParseValue(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrUnparseableDate, v)
		}
		return time.UnixMilli(int64(ms)).UTC(), nil
	}
}

func parseDateString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrUnparseableDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, s)
}

// ParseValue converts a value attribute into a finite float64.
func ParseValue(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: missing", ErrUnparseableValue)
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case *float64:
		if n == nil {
			return 0, fmt.Errorf("%w: missing", ErrUnparseableValue)
		}
		f = *n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnparseableValue, n.String())
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnparseableValue, n)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrUnparseableValue, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: not finite", ErrUnparseableValue)
	}
	return f, nil
}

func parseCategory(v any, def string) string {
	var s string
	switch c := v.(type) {
	case nil:
	case string:
		s = c
	default:
		s = fmt.Sprint(c)
	}
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
