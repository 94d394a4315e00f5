package chunk

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // test digest
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"streamcorpus/pkg/streamcorpus"
)

type recordingObserver struct {
	mu       sync.Mutex
	written  []int
	read     []int
	unknowns []int32
}

func (o *recordingObserver) MessageWritten(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.written = append(o.written, n)
}

func (o *recordingObserver) MessageRead(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.read = append(o.read, n)
}

func (o *recordingObserver) UnknownEntityType(code int32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unknowns = append(o.unknowns, code)
}

func item(id string, types ...streamcorpus.EntityType) *streamcorpus.StreamItem {
	tokens := make([]*streamcorpus.Token, 0, len(types))
	for i, et := range types {
		tokens = append(tokens, &streamcorpus.Token{TokenNum: int32(i), Token: id, SentencePos: int32(i), EntityType: &et})
	}
	return &streamcorpus.StreamItem{
		DocID:     id,
		StreamID:  "stream-" + id,
		Sentences: []*streamcorpus.Sentence{{Tokens: tokens}},
	}
}

type nopCloseBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *nopCloseBuffer) Close() error {
	b.closed = true
	return nil
}

func writeItems(t *testing.T, w io.Writer, items ...*streamcorpus.StreamItem) *Writer[*streamcorpus.StreamItem] {
	t.Helper()
	cw := NewWriter[*streamcorpus.StreamItem](w)
	for _, it := range items {
		if err := cw.Add(context.Background(), it); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	return cw
}

func md5hex(b []byte) string {
	sum := md5.Sum(b) //nolint:gosec // test digest
	return hex.EncodeToString(sum[:])
}

func TestWriterReaderRoundTrip(t *testing.T) {
	buf := &nopCloseBuffer{}
	in := []*streamcorpus.StreamItem{
		item("a", streamcorpus.EntityTypePER, streamcorpus.EntityTypeORG),
		item("b"),
		item("c", streamcorpus.EntityTypeURL),
	}
	w := writeItems(t, buf, in...)
	if w.Len() != 3 {
		t.Fatalf("expected 3 messages, got %d", w.Len())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !buf.closed {
		t.Fatalf("expected underlying writer to be closed")
	}
	if got, want := w.MD5Hexdigest(), md5hex(buf.Bytes()); got != want {
		t.Fatalf("writer digest %s, want %s", got, want)
	}
	if err := w.Add(context.Background(), item("d")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()), streamcorpus.NewStreamItem)
	out, err := r.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if r.Len() != 3 {
		t.Fatalf("reader len %d", r.Len())
	}
	if r.MD5Hexdigest() != w.MD5Hexdigest() {
		t.Fatalf("reader digest %s != writer digest %s", r.MD5Hexdigest(), w.MD5Hexdigest())
	}
}

func TestReaderEmptyChunk(t *testing.T) {
	r := NewReader(bytes.NewReader(nil), streamcorpus.NewStreamItem)
	out, err := r.ReadAll(context.Background())
	if err != nil || len(out) != 0 {
		t.Fatalf("expected empty chunk, got %d messages err=%v", len(out), err)
	}
	if r.MD5Hexdigest() != md5hex(nil) {
		t.Fatalf("unexpected empty digest %s", r.MD5Hexdigest())
	}
}

func TestReaderTruncated(t *testing.T) {
	var buf bytes.Buffer
	writeItems(t, &buf, item("a", streamcorpus.EntityTypeLOC), item("b", streamcorpus.EntityTypeLOC))
	first, err := Serialize(context.Background(), item("a", streamcorpus.EntityTypeLOC))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	cut := buf.Bytes()[:len(first)+5]
	r := NewReader(bytes.NewReader(cut), streamcorpus.NewStreamItem)
	var got int
	var lastErr error
	for msg, err := range r.All(context.Background()) {
		if err != nil {
			lastErr = err
			break
		}
		if msg.DocID != "a" {
			t.Fatalf("unexpected message %q", msg.DocID)
		}
		got++
	}
	if got != 1 {
		t.Fatalf("expected one complete message, got %d", got)
	}
	if !errors.Is(lastErr, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", lastErr)
	}
}

func TestReaderRestartsSeekableSource(t *testing.T) {
	var buf bytes.Buffer
	writeItems(t, &buf, item("a"), item("b"))
	r := NewReader(bytes.NewReader(buf.Bytes()), streamcorpus.NewStreamItem)
	for pass := 0; pass < 3; pass++ {
		out, err := r.ReadAll(context.Background())
		if err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
		if len(out) != 2 || r.Len() != 2 {
			t.Fatalf("pass %d: got %d messages (len %d)", pass, len(out), r.Len())
		}
		if r.MD5Hexdigest() != md5hex(buf.Bytes()) {
			t.Fatalf("pass %d: digest drifted", pass)
		}
	}
}

func TestReaderSinglePassForStreams(t *testing.T) {
	var buf bytes.Buffer
	writeItems(t, &buf, item("a"))
	r := NewReader(io.MultiReader(bytes.NewReader(buf.Bytes())), streamcorpus.NewStreamItem)
	if out, err := r.ReadAll(context.Background()); err != nil || len(out) != 1 {
		t.Fatalf("first pass: %d %v", len(out), err)
	}
	if _, err := r.ReadAll(context.Background()); !errors.Is(err, ErrNotRewindable) {
		t.Fatalf("expected ErrNotRewindable, got %v", err)
	}
}

func TestReaderHonoursContext(t *testing.T) {
	var buf bytes.Buffer
	writeItems(t, &buf, item("a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewReader(bytes.NewReader(buf.Bytes()), streamcorpus.NewStreamItem)
	if _, err := r.ReadAll(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestObserverAndUnknownEntityWarnings(t *testing.T) {
	obs := &recordingObserver{}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	var buf bytes.Buffer
	w := NewWriter[*streamcorpus.StreamItem](&buf, WithObserver(obs))
	for _, it := range []*streamcorpus.StreamItem{
		item("known", streamcorpus.EntityTypeFAC),
		item("unknown", streamcorpus.EntityType(17), streamcorpus.EntityTypePER, streamcorpus.EntityType(99)),
	} {
		if err := w.Add(context.Background(), it); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	var total int
	for _, n := range obs.written {
		total += n
	}
	if len(obs.written) != 2 || int64(total) != w.Bytes() || int64(buf.Len()) != w.Bytes() {
		t.Fatalf("written accounting %v total=%d bytes=%d buf=%d", obs.written, total, w.Bytes(), buf.Len())
	}

	r := NewReader(bytes.NewReader(buf.Bytes()), streamcorpus.NewStreamItem, WithObserver(obs), WithLogger(logger))
	if _, err := r.ReadAll(context.Background()); err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(obs.written, obs.read); diff != "" {
		t.Fatalf("read sizes differ from written sizes (-written +read):\n%s", diff)
	}
	if diff := cmp.Diff([]int32{17, 99}, obs.unknowns); diff != "" {
		t.Fatalf("unknown codes (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), "undeclared entity types") {
		t.Fatalf("expected a warning, got %q", logs.String())
	}
}

func TestSerializeDeserialize(t *testing.T) {
	ctx := context.Background()
	in := item("solo", streamcorpus.EntityTypeDate)
	data, err := Serialize(ctx, in)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	out, err := Deserialize(ctx, data, streamcorpus.NewStreamItem)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := Deserialize(ctx, nil, streamcorpus.NewStreamItem); !errors.Is(err, ErrNotOneMessage) {
		t.Fatalf("empty input: expected ErrNotOneMessage, got %v", err)
	}
	two := append(append([]byte{}, data...), data...)
	if _, err := Deserialize(ctx, two, streamcorpus.NewStreamItem); !errors.Is(err, ErrNotOneMessage) {
		t.Fatalf("two messages: expected ErrNotOneMessage, got %v", err)
	}
}

func TestCreateAppendOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "chunk.sc")

	w, err := Create[*streamcorpus.StreamItem](path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.Add(ctx, item("a")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := Create[*streamcorpus.StreamItem](path); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	aw, err := Append[*streamcorpus.StreamItem](path)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := aw.Add(ctx, item("b")); err != nil {
		t.Fatalf("append add: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("append close: %v", err)
	}

	r, err := Open(path, streamcorpus.NewStreamItem)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	out, err := r.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != 2 || out[0].DocID != "a" || out[1].DocID != "b" {
		t.Fatalf("unexpected messages %+v", out)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if r.MD5Hexdigest() != md5hex(raw) {
		t.Fatalf("digest mismatch")
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing"), streamcorpus.NewStreamItem); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompressedChunk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chunk.sc.xz")
	w, err := Create[*streamcorpus.StreamItem](path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, id := range []string{"x", "y", "z"} {
		if err := w.Add(ctx, item(id, streamcorpus.EntityTypeMoney)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}) {
		t.Fatalf("expected xz magic, got % x", raw[:6])
	}

	r, err := Open(path, streamcorpus.NewStreamItem)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	out, err := r.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != 3 || out[2].DocID != "z" {
		t.Fatalf("unexpected messages %+v", out)
	}
	if r.MD5Hexdigest() != w.MD5Hexdigest() {
		t.Fatalf("uncompressed digests differ: %s vs %s", r.MD5Hexdigest(), w.MD5Hexdigest())
	}
	if _, err := r.ReadAll(ctx); !errors.Is(err, ErrNotRewindable) {
		t.Fatalf("expected single pass over compressed chunk, got %v", err)
	}

	if _, err := Append[*streamcorpus.StreamItem](path); !errors.Is(err, ErrCompressedAppend) {
		t.Fatalf("expected ErrCompressedAppend, got %v", err)
	}
}

func TestReaderDigestTracksDecodedBytes(t *testing.T) {
	ctx := context.Background()
	first, err := Serialize(ctx, item("a", streamcorpus.EntityTypePER))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	var buf bytes.Buffer
	w := writeItems(t, &buf, item("a", streamcorpus.EntityTypePER), item("b"), item("c"))
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()), streamcorpus.NewStreamItem)
	if _, err := r.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	if got, want := r.MD5Hexdigest(), md5hex(first); got != want {
		t.Fatalf("digest after one message = %s, want %s", got, want)
	}
	if _, err := r.ReadAll(ctx); err != nil {
		t.Fatalf("read rest: %v", err)
	}
	if got, want := r.MD5Hexdigest(), md5hex(buf.Bytes()); got != want {
		t.Fatalf("digest after full pass = %s, want %s", got, want)
	}
}
