// Package catalogtest holds the behavior every catalog.Store backend shares.
package catalogtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"streamcorpus/internal/catalog"
	"streamcorpus/pkg/streamcorpus"
)

// Digest is a well-formed md5 hex string for fixtures.
const Digest = "0628eb1ea0e4bef9a16f5172e092e116"

// Fixture returns a populated record for key.
func Fixture(key string, per, url int) catalog.Record {
	counts := map[streamcorpus.EntityType]int{}
	if per > 0 {
		counts[streamcorpus.EntityTypePER] = per
	}
	if url > 0 {
		counts[streamcorpus.EntityTypeURL] = url
	}
	return catalog.Record{
		Key:                key,
		MD5:                Digest,
		Messages:           3,
		StoredBytes:        4096,
		Compressed:         true,
		Encrypted:          false,
		UnknownEntityTypes: 1,
		CreatedAt:          time.Date(2012, 10, 17, 8, 30, 0, 123000000, time.UTC),
		EntityCounts:       counts,
	}
}

// Run exercises a backend; open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) catalog.Store) {
	t.Helper()
	t.Run("PutGet", func(t *testing.T) { testPutGet(t, open(t)) })
	t.Run("Replace", func(t *testing.T) { testReplace(t, open(t)) })
	t.Run("ListPrefix", func(t *testing.T) { testList(t, open(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, open(t)) })
	t.Run("EntityTotals", func(t *testing.T) { testTotals(t, open(t)) })
	t.Run("RejectsInvalid", func(t *testing.T) { testInvalid(t, open(t)) })
	t.Run("Concurrent", func(t *testing.T) { testConcurrent(t, open(t)) })
}

func equalRecords(t *testing.T, want, got catalog.Record) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func testPutGet(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	defer func() { _ = s.Close() }()
	rec := Fixture("2012-10-17/news.sc.xz", 4, 2)
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, rec.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	equalRecords(t, rec, got)
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testReplace(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	defer func() { _ = s.Close() }()
	if err := s.Put(ctx, Fixture("a.sc", 4, 2)); err != nil {
		t.Fatalf("put: %v", err)
	}
	updated := Fixture("a.sc", 0, 9)
	updated.Encrypted = true
	updated.Messages = 10
	if err := s.Put(ctx, updated); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := s.Get(ctx, "a.sc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	equalRecords(t, updated, got)
}

func testList(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	defer func() { _ = s.Close() }()
	for _, key := range []string{"b/2.sc", "a/2.sc", "a/1.sc", "a_1.sc"} {
		if err := s.Put(ctx, Fixture(key, 1, 0)); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	got, err := s.List(ctx, "a/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var keys []string
	for _, r := range got {
		keys = append(keys, r.Key)
	}
	if diff := cmp.Diff([]string{"a/1.sc", "a/2.sc"}, keys); diff != "" {
		t.Fatalf("list keys (-want +got):\n%s", diff)
	}
	all, err := s.List(ctx, "")
	if err != nil || len(all) != 4 || all[0].Key != "a/1.sc" || all[3].Key != "b/2.sc" {
		t.Fatalf("list all: %v %+v", err, all)
	}
	if all[0].EntityCounts[streamcorpus.EntityTypePER] != 1 {
		t.Fatalf("list must carry entity counts: %+v", all[0])
	}
}

func testDelete(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	defer func() { _ = s.Close() }()
	if err := s.Put(ctx, Fixture("gone.sc", 2, 2)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ok, err := s.Delete(ctx, "gone.sc"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := s.Delete(ctx, "gone.sc"); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
	totals, err := s.EntityTotals(ctx)
	if err != nil || len(totals) != 0 {
		t.Fatalf("deleted counts must not contribute to totals: %v %v", err, totals)
	}
}

func testTotals(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	defer func() { _ = s.Close() }()
	for i, rec := range []catalog.Record{Fixture("x.sc", 4, 1), Fixture("y.sc", 3, 0), Fixture("z.sc", 0, 5)} {
		if err := s.Put(ctx, rec); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	totals, err := s.EntityTotals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	want := map[streamcorpus.EntityType]int{streamcorpus.EntityTypePER: 7, streamcorpus.EntityTypeURL: 6}
	if diff := cmp.Diff(want, totals); diff != "" {
		t.Fatalf("totals (-want +got):\n%s", diff)
	}
}

func testInvalid(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	defer func() { _ = s.Close() }()
	bad := Fixture("bad.sc", 1, 0)
	bad.MD5 = "nope"
	if err := s.Put(ctx, bad); !errors.Is(err, catalog.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if _, err := s.Get(ctx, "bad.sc"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("invalid record must not be stored: %v", err)
	}
}

func testConcurrent(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	defer func() { _ = s.Close() }()
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Put(ctx, Fixture(fmt.Sprintf("c/%02d.sc", i), 1, 1)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent put: %v", err)
	}
	totals, err := s.EntityTotals(ctx)
	if err != nil || totals[streamcorpus.EntityTypePER] != 16 || totals[streamcorpus.EntityTypeURL] != 16 {
		t.Fatalf("totals after concurrent puts: %v %v", err, totals)
	}
}
