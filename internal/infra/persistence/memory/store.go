// Package memory keeps the chunk catalog in process memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"streamcorpus/internal/catalog"
	"streamcorpus/pkg/streamcorpus"
)

var _ catalog.Store = (*Store)(nil)

// Store implements catalog.Store with a map guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	records map[string]catalog.Record
}

// NewStore returns an empty catalog.
func NewStore() *Store {
	return &Store{records: make(map[string]catalog.Record)}
}

// Put inserts or replaces r.
func (s *Store) Put(_ context.Context, r catalog.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.Key] = r.Clone()
	return nil
}

// Get returns a copy of the record for key.
func (s *Store) Get(_ context.Context, key string) (catalog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key]
	if !ok {
		return catalog.Record{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, key)
	}
	return r.Clone(), nil
}

// List returns copies of the records under prefix, sorted by key.
func (s *Store) List(_ context.Context, prefix string) ([]catalog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Record, 0, len(s.records))
	for k, r := range s.records {
		if strings.HasPrefix(k, prefix) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Delete removes key, reporting whether it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[key]
	delete(s.records, key)
	return ok, nil
}

// EntityTotals sums token counts across all records.
func (s *Store) EntityTotals(ctx context.Context) (map[streamcorpus.EntityType]int, error) {
	records, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return catalog.Totals(records), nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
