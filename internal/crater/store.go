// Package crater loads and holds the crater population.
package crater

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
)

// Source produces the full set of crater records for one load cycle.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string
	Read(ctx context.Context) ([]domain.CraterRecord, Report, error)
}

// Report summarizes a load: how many rows were read and how many were
// rejected by validation.
type Report struct {
	Read     int
	Rejected int
}

type snapshot struct {
	records  []domain.CraterRecord
	maxStep  int
	loadedAt time.Time
}

// Store holds the crater records of the most recent successful load.
// Content is replaced wholesale on each load and never mutated in place, so
// readers can hold on to a slice returned by All.
type Store struct {
	clock clockwork.Clock
	snap  atomic.Pointer[snapshot]
}

// NewStore creates an empty store. Pass nil to use the real clock.
func NewStore(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Store{clock: clock}
	s.snap.Store(&snapshot{})
	return s
}

// Load reads src and, on success, replaces the store content. On failure the
// previous content is kept and a *domain.LoadError is returned.
func (s *Store) Load(ctx context.Context, src Source) (Report, error) {
	records, report, err := src.Read(ctx)
	if err != nil {
		return report, domain.NewLoadError(src.Name(), err)
	}
	s.Replace(records)
	return report, nil
}

// Replace swaps in records as the new store content.
func (s *Store) Replace(records []domain.CraterRecord) {
	maxStep := 0
	for _, r := range records {
		if c := r.Created(); c > maxStep {
			maxStep = c
		}
	}
	s.snap.Store(&snapshot{records: records, maxStep: maxStep, loadedAt: s.clock.Now()})
}

// All returns the loaded records in source order. The slice must not be modified.
func (s *Store) All() []domain.CraterRecord { return s.snap.Load().records }

// Len returns the number of loaded records.
func (s *Store) Len() int { return len(s.snap.Load().records) }

// MaxCreatedStep is the largest creation step observed, the upper bound of
// the timestep control.
func (s *Store) MaxCreatedStep() int { return s.snap.Load().maxStep }

// LoadedAt returns when the current content was loaded, zero if never.
func (s *Store) LoadedAt() time.Time { return s.snap.Load().loadedAt }
