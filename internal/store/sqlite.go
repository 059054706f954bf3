package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/golang/glog"

	"github.com/i474232898/wildfire-analysis/internal/climate"
	"github.com/i474232898/wildfire-analysis/internal/geo"

	_ "modernc.org/sqlite"
)

const (
	readingsTable  = "daily_readings"
	dayLayout      = "2006-01-02"
	insertBatchLen = 500
)

// SQLiteStore persists daily temperature readings per city.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// migrates it.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveReadings upserts readings keyed by (city, day).
func (s *SQLiteStore) SaveReadings(ctx context.Context, city string, at geo.Coordinates, readings []climate.DailyReading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	fetchedAt := s.now().UTC().Format(time.RFC3339)
	for start := 0; start < len(readings); start += insertBatchLen {
		end := min(start+insertBatchLen, len(readings))

		query := squirrel.Insert(readingsTable).
			Columns("city", "day", "latitude", "longitude", "max_temp_c", "fetched_at").
			Suffix("ON CONFLICT(city, day) DO UPDATE SET " +
				"latitude = excluded.latitude, longitude = excluded.longitude, " +
				"max_temp_c = excluded.max_temp_c, fetched_at = excluded.fetched_at")
		for _, r := range readings[start:end] {
			var maxC any
			if r.MaxTemperatureC != nil {
				maxC = *r.MaxTemperatureC
			}
			query = query.Values(city, r.Date.Format(dayLayout), at.Lat, at.Lng, maxC, fetchedAt)
		}

		stmt, args, err := query.ToSql()
		if err != nil {
			return fmt.Errorf("build insert readings: %w", err)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert readings: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit readings: %w", err)
	}
	glog.V(2).Infof("store: saved %d readings for %s", len(readings), city)
	return nil
}

// Readings returns every stored reading of city (case-insensitive), oldest first.
func (s *SQLiteStore) Readings(ctx context.Context, city string) ([]climate.StoredReading, error) {
	stmt, args, err := squirrel.Select("city", "day", "latitude", "longitude", "max_temp_c").
		From(readingsTable).
		Where("city = ? COLLATE NOCASE", city).
		OrderBy("day").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select readings: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select readings: %w", err)
	}
	defer rows.Close()

	var out []climate.StoredReading
	for rows.Next() {
		var (
			r    climate.StoredReading
			day  string
			maxC sql.NullFloat64
		)
		if err := rows.Scan(&r.City, &day, &r.Coordinates.Lat, &r.Coordinates.Lng, &maxC); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.Date, err = time.Parse(dayLayout, day)
		if err != nil {
			return nil, fmt.Errorf("parse stored day %q: %w", day, err)
		}
		if maxC.Valid {
			v := maxC.Float64
			r.MaxTemperatureC = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}

	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
