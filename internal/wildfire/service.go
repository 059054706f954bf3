package wildfire

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/i474232898/wildfire-analysis/internal/climate"
)

const datasetName = "wildfire-acreage"

// DefaultAcreageFields aggregates burned acreage by discovery month.
var DefaultAcreageFields = climate.Fields{
	Date:  "DISCOVERYDATETIME",
	Value: "GISACRES",
}

// Service fetches perimeters and keeps the filtered snapshot.
type Service struct {
	source   PerimeterSource
	store    SnapshotStore
	minYear  int
	fields   climate.Fields
	recorder Recorder
	now      func() time.Time
}

// NewService creates a new Service. A zero minYear selects DefaultMinYear
// and zero acreage fields select DefaultAcreageFields.
func NewService(source PerimeterSource, store SnapshotStore, minYear int, fields climate.Fields, recorder Recorder) *Service {
	if minYear == 0 {
		minYear = DefaultMinYear
	}
	if fields.Date == "" || fields.Value == "" {
		fields = DefaultAcreageFields
	}
	return &Service{
		source:   source,
		store:    store,
		minYear:  minYear,
		fields:   fields,
		recorder: recorder,
		now:      time.Now,
	}
}

// Refresh fetches all perimeters, keeps fires since the configured year and
// stores the snapshot. A failed fetch keeps the previous snapshot.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	snap, err := s.refresh(ctx)
	if s.recorder != nil {
		s.recorder.ObserveRefresh(datasetName, err)
	}
	return snap, err
}

func (s *Service) refresh(ctx context.Context) (Snapshot, error) {
	fires, err := s.source.Perimeters(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch perimeters from %s: %w", s.source.Name(), err)
	}

	kept := FilterSince(fires, s.minYear)
	glog.V(2).Infof("wildfire: kept %d of %d fires since %d", len(kept), len(fires), s.minYear)

	rows := make([]climate.Row, 0, len(kept))
	for _, f := range kept {
		rows = append(rows, f.Attributes)
	}
	acreage, stats := climate.Aggregate(rows, s.fields)
	if stats.Skipped() > 0 {
		glog.Warningf("wildfire: acreage skipped %d of %d fires (date=%d value=%d)",
			stats.Skipped(), stats.Records, stats.SkippedDate, stats.SkippedValue)
	}

	snap := Snapshot{
		Source:       s.source.Name(),
		FetchedAt:    s.now().UTC(),
		MinYear:      s.minYear,
		Total:        len(fires),
		Fires:        kept,
		HeatPoints:   HeatPoints(kept),
		Acreage:      acreage,
		AcreageStats: stats,
		AcreageBy:    s.fields,
	}
	if s.recorder != nil {
		s.recorder.ObserveAggregation(datasetName, stats)
		s.recorder.ObserveFires(len(fires), len(kept))
	}
	s.store.SaveSnapshot(snap)
	glog.Infof("wildfire: stored %d perimeters from %s", len(kept), snap.Source)
	return snap, nil
}

// Latest delegates to the underlying store.
func (s *Service) Latest() (Snapshot, error) {
	return s.store.LatestSnapshot()
}
