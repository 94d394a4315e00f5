// Package catalog records what the corpus archive holds: one Record per
// stored chunk, with its digest, size, envelope flags and per-EntityType
// token counts.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"streamcorpus/pkg/streamcorpus"
)

// ErrNotFound is returned by Get for keys with no record.
var ErrNotFound = errors.New("catalog: record not found")

// ErrInvalidRecord is returned by Put for records that fail Validate.
var ErrInvalidRecord = errors.New("catalog: invalid record")

// Record describes one archived chunk.
type Record struct {
	Key string
	// MD5 is the digest of the uncompressed Thrift stream.
	MD5 string
	// Messages is the number of StreamItems in the chunk.
	Messages int
	// StoredBytes is the object size after compression and encryption.
	StoredBytes int64
	Compressed  bool
	Encrypted   bool
	// UnknownEntityTypes counts tokens whose entity-type code is undeclared.
	UnknownEntityTypes int
	CreatedAt          time.Time
	EntityCounts       map[streamcorpus.EntityType]int
}

// Validate checks the fields every backend relies on.
func (r Record) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Key) == "" {
		errs = append(errs, errors.New("key is required"))
	}
	if len(r.MD5) != 32 {
		errs = append(errs, fmt.Errorf("md5 %q is not a hex digest", r.MD5))
	}
	if r.Messages < 0 || r.StoredBytes < 0 || r.UnknownEntityTypes < 0 {
		errs = append(errs, errors.New("counts must not be negative"))
	}
	for et, n := range r.EntityCounts {
		if err := et.Valid(); err != nil {
			errs = append(errs, err)
		}
		if n < 0 {
			errs = append(errs, fmt.Errorf("negative count for %s", et))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidRecord, r.Key, err)
	}
	return nil
}

// Tokens sums EntityCounts.
func (r Record) Tokens() int {
	var n int
	for _, c := range r.EntityCounts {
		n += c
	}
	return n
}

// Clone returns a copy that shares no maps with r.
func (r Record) Clone() Record {
	r.EntityCounts = maps.Clone(r.EntityCounts)
	return r
}

// Store persists chunk records.
type Store interface {
	// Put inserts or replaces the record for r.Key.
	Put(ctx context.Context, r Record) error
	Get(ctx context.Context, key string) (Record, error)
	// List returns records whose key has prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Record, error)
	Delete(ctx context.Context, key string) (bool, error)
	// EntityTotals sums EntityCounts across all records.
	EntityTotals(ctx context.Context) (map[streamcorpus.EntityType]int, error)
	Close() error
}

// Totals is the reference implementation of EntityTotals over records.
func Totals(records []Record) map[streamcorpus.EntityType]int {
	out := make(map[streamcorpus.EntityType]int)
	for _, r := range records {
		for et, n := range r.EntityCounts {
			out[et] += n
		}
	}
	return out
}
