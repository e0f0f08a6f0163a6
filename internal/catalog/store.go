// Package catalog holds the read-only set of events the site serves and
// keeps it fresh.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"eventcal/internal/model"
)

// ErrDuplicateSlug rejects a catalog in which two events share a slug.
var ErrDuplicateSlug = errors.New("catalog: duplicate slug")

// Snapshot is one immutable generation of the catalog. Events are sorted by
// slug and must not be modified.
type Snapshot struct {
	Events   []model.Event
	LoadedAt time.Time
	Version  uint64
}

// Event looks up an event by slug.
func (s *Snapshot) Event(slug string) (model.Event, bool) {
	i := sort.Search(len(s.Events), func(i int) bool { return s.Events[i].Slug >= slug })
	if i < len(s.Events) && s.Events[i].Slug == slug {
		return s.Events[i], true
	}
	return model.Event{}, false
}

// Store hands out the current Snapshot. Readers never block each other and
// a replacement never mutates a snapshot already handed out.
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
}

func NewStore() *Store {
	return &Store{snap: &Snapshot{}}
}

func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Replace installs events as the next generation.
func (s *Store) Replace(events []model.Event, at time.Time) (*Snapshot, error) {
	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Slug < sorted[j].Slug })

	var dups []error
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Slug == sorted[i-1].Slug {
			dups = append(dups, fmt.Errorf("%w: %q", ErrDuplicateSlug, sorted[i].Slug))
		}
	}
	if len(dups) > 0 {
		return nil, errors.Join(dups...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := &Snapshot{Events: sorted, LoadedAt: at, Version: s.snap.Version + 1}
	s.snap = next
	return next, nil
}
