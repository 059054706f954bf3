package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/wildfire-analysis/internal/climate"
	"github.com/i474232898/wildfire-analysis/internal/wildfire"
)

var (
	// ErrNotFound is returned when nothing is stored under the requested key.
	ErrNotFound = errors.New("no data stored")
)

// DatasetHistory holds the loaded versions of one dataset, oldest first.
type DatasetHistory struct {
	Versions []climate.Dataset
}

// MemoryStore is a concurrency-safe in-memory store for aggregated datasets
// and the latest wildfire snapshot.
type MemoryStore struct {
	mu sync.RWMutex

	// key: dataset name
	data     map[string]*DatasetHistory
	snapshot *wildfire.Snapshot

	// retention configuration
	maxHistory int           // max number of versions per dataset
	maxAge     time.Duration // optional max age for versions

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*DatasetHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveDataset appends a new version and enforces retention. The newest
// version is always kept.
func (s *MemoryStore) SaveDataset(ds climate.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[ds.Name]
	if !ok {
		history = &DatasetHistory{}
		s.data[ds.Name] = history
	}

	history.Versions = append(history.Versions, ds)

	if s.maxHistory > 0 && len(history.Versions) > s.maxHistory {
		over := len(history.Versions) - s.maxHistory
		history.Versions = history.Versions[over:]
	}

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Versions)-1; i++ {
			if !history.Versions[i].LoadedAt.Before(cutoff) {
				break
			}
		}
		history.Versions = history.Versions[i:]
	}
}

// LatestDataset returns the most recent version of a dataset.
func (s *MemoryStore) LatestDataset(name string) (climate.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[name]
	if !ok || len(history.Versions) == 0 {
		return climate.Dataset{}, ErrNotFound
	}
	return history.Versions[len(history.Versions)-1], nil
}

// DatasetVersions returns every retained version of a dataset, oldest first.
func (s *MemoryStore) DatasetVersions(name string) ([]climate.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[name]
	if !ok || len(history.Versions) == 0 {
		return nil, ErrNotFound
	}
	out := make([]climate.Dataset, len(history.Versions))
	copy(out, history.Versions)
	return out, nil
}

// DatasetNames returns the stored dataset names, sorted.
func (s *MemoryStore) DatasetNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for n := range s.data {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SaveSnapshot replaces the wildfire snapshot.
func (s *MemoryStore) SaveSnapshot(snap wildfire.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &snap
}

// LatestSnapshot returns the wildfire snapshot.
func (s *MemoryStore) LatestSnapshot() (wildfire.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return wildfire.Snapshot{}, ErrNotFound
	}
	return *s.snapshot, nil
}
