// Package corpus archives chunks of stream items: it writes the chunk,
// optionally compresses and encrypts it, stores the object in blob storage
// and records its entity-type histogram in the catalog.
package corpus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"streamcorpus/internal/blob"
	"streamcorpus/internal/catalog"
	"streamcorpus/internal/logging"
	"streamcorpus/internal/metrics"
	"streamcorpus/pkg/chunk"
	"streamcorpus/pkg/chunk/envelope"
	"streamcorpus/pkg/streamcorpus"
)

// ContentType is stored with every archived object.
const ContentType = "application/x-streamcorpus-chunk"

// Object metadata keys.
const (
	metaChunkMD5 = "chunk-md5"
	metaMessages = "messages"
)

var (
	// ErrChecksumMismatch is returned when an extracted chunk does not hash
	// to the digest recorded at archive time.
	ErrChecksumMismatch = errors.New("corpus: chunk checksum mismatch")
	// ErrMissingObject is returned when the catalog lists a chunk whose
	// object is gone from blob storage.
	ErrMissingObject = errors.New("corpus: archived object missing")
)

// Envelope controls how archived chunks are packed.
type Envelope struct {
	// Compress xz-compresses objects. Encryption implies compression.
	Compress bool
	Encrypt  envelope.EncryptOptions
	Decrypt  envelope.DecryptOptions
}

func (e Envelope) encrypts() bool { return e.Encrypt.PublicKeyRing != nil }

// Service ties blob storage and the catalog together.
type Service struct {
	blobs    blob.Store
	catalog  catalog.Store
	envelope Envelope
	metrics  *metrics.Collector
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger; nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.Component(l, "corpus") }
}

// WithMetrics records chunk and operation counters on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithEnvelope sets compression and encryption.
func WithEnvelope(e Envelope) Option {
	return func(s *Service) { s.envelope = e }
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService returns a Service over the given stores.
func NewService(blobs blob.Store, cat catalog.Store, opts ...Option) *Service {
	s := &Service{
		blobs:   blobs,
		catalog: cat,
		logger:  logging.Component(nil, "corpus"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) chunkOptions(key string) []chunk.Option {
	opts := []chunk.Option{chunk.WithLogger(s.logger.With(slog.String("chunk", key)))}
	if s.metrics != nil {
		opts = append(opts, chunk.WithObserver(s.metrics))
	}
	return opts
}

func (s *Service) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.Operation(op, err)
	}
}

// Archive writes items as one chunk under key. The key must not exist yet.
func (s *Service) Archive(ctx context.Context, key string, items []*streamcorpus.StreamItem) (rec catalog.Record, err error) {
	defer func() { s.observe("archive", err) }()

	var raw bytes.Buffer
	w := chunk.NewWriter[*streamcorpus.StreamItem](&raw, s.chunkOptions(key)...)
	counts := make(map[streamcorpus.EntityType]int)
	var unknown int
	for i, item := range items {
		if item == nil {
			return catalog.Record{}, fmt.Errorf("archive %s: item %d is nil", key, i)
		}
		if err := w.Add(ctx, item); err != nil {
			return catalog.Record{}, err
		}
		for et, n := range item.EntityCounts() {
			counts[et] += n
		}
		for _, code := range item.UnknownEntityTypes() {
			unknown++
			s.logger.Warn("unknown entity type", slog.Int("code", int(code)), slog.String("chunk", key))
			if s.metrics != nil {
				s.metrics.UnknownEntityType(code)
			}
		}
	}
	if err := w.Close(); err != nil {
		return catalog.Record{}, err
	}

	payload := raw.Bytes()
	compressed := s.envelope.Compress || s.envelope.encrypts()
	if compressed {
		payload, err = envelope.CompressAndEncrypt(payload, s.envelope.Encrypt)
		if err != nil {
			return catalog.Record{}, err
		}
	}

	rec = catalog.Record{
		Key:                key,
		MD5:                w.MD5Hexdigest(),
		Messages:           w.Len(),
		StoredBytes:        int64(len(payload)),
		Compressed:         compressed,
		Encrypted:          s.envelope.encrypts(),
		UnknownEntityTypes: unknown,
		CreatedAt:          s.now().UTC(),
		EntityCounts:       counts,
	}
	if err := rec.Validate(); err != nil {
		return catalog.Record{}, err
	}
	if _, err := s.blobs.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: ContentType,
		Metadata:    map[string]string{metaChunkMD5: rec.MD5, metaMessages: fmt.Sprint(rec.Messages)},
	}); err != nil {
		return catalog.Record{}, fmt.Errorf("store %s: %w", key, err)
	}
	if err := s.catalog.Put(ctx, rec); err != nil {
		if _, derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Error("orphaned object after catalog failure", slog.String("chunk", key), slog.Any("error", derr))
		}
		return catalog.Record{}, fmt.Errorf("catalog %s: %w", key, err)
	}
	s.logger.Info("archived chunk",
		slog.String("chunk", key),
		slog.Int("messages", rec.Messages),
		slog.Int64("stored_bytes", rec.StoredBytes),
		slog.String("md5", rec.MD5),
	)
	return rec, nil
}

// Items returns the stream items archived under key, verifying the chunk
// digest recorded in the catalog.
func (s *Service) Items(ctx context.Context, key string) (items []*streamcorpus.StreamItem, err error) {
	defer func() { s.observe("extract", err) }()

	rec, err := s.catalog.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_, rc, err := s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMissingObject, key)
		}
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var src io.Reader = rc
	if rec.Compressed {
		if rec.Encrypted && s.envelope.Decrypt.PrivateKeyRing == nil {
			return nil, fmt.Errorf("%s: %w", key, envelope.ErrNoPrivateKey)
		}
		src, err = envelope.NewReader(rc, s.envelope.Decrypt)
		if err != nil {
			return nil, err
		}
	}
	r := chunk.NewReader(src, streamcorpus.NewStreamItem, s.chunkOptions(key)...)
	items, err = r.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if got := r.MD5Hexdigest(); got != rec.MD5 {
		return nil, fmt.Errorf("%w: %s has %s, catalog has %s", ErrChecksumMismatch, key, got, rec.MD5)
	}
	return items, nil
}

// Remove deletes the catalog record and the object. It reports whether
// either existed.
func (s *Service) Remove(ctx context.Context, key string) (removed bool, err error) {
	defer func() { s.observe("remove", err) }()

	inCatalog, err := s.catalog.Delete(ctx, key)
	if err != nil {
		return false, err
	}
	inBlobs, err := s.blobs.Delete(ctx, key)
	if err != nil {
		return inCatalog, err
	}
	if inCatalog || inBlobs {
		s.logger.Info("removed chunk", slog.String("chunk", key))
	}
	return inCatalog || inBlobs, nil
}

// Records lists catalog records whose key starts with prefix.
func (s *Service) Records(ctx context.Context, prefix string) ([]catalog.Record, error) {
	return s.catalog.List(ctx, prefix)
}

// Record returns the catalog record for key.
func (s *Service) Record(ctx context.Context, key string) (catalog.Record, error) {
	return s.catalog.Get(ctx, key)
}

// Stats sums entity-type token counts across the archive.
func (s *Service) Stats(ctx context.Context) (map[streamcorpus.EntityType]int, error) {
	return s.catalog.EntityTotals(ctx)
}

// Close releases the catalog.
func (s *Service) Close() error {
	return s.catalog.Close()
}
