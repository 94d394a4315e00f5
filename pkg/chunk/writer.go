package chunk

import (
	"context"
	"crypto/md5" //nolint:gosec // content addressing, not security
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sync"

	"github.com/apache/thrift/lib/go/thrift"
)

// Writer appends Thrift messages to an underlying stream.
type Writer[M thrift.TStruct] struct {
	mu      sync.Mutex
	opts    options
	sink    *countingWriter
	proto   thrift.TProtocol
	closers []io.Closer
	count   int
	closed  bool
	digest  string
}

// NewWriter returns a Writer over w. If w is an io.Closer, Close closes it.
func NewWriter[M thrift.TStruct](w io.Writer, opts ...Option) *Writer[M] {
	var closers []io.Closer
	if c, ok := w.(io.Closer); ok {
		closers = append(closers, c)
	}
	return newWriter[M](w, closers, opts)
}

func newWriter[M thrift.TStruct](w io.Writer, closers []io.Closer, opts []Option) *Writer[M] {
	sink := &countingWriter{w: w, h: md5.New()} //nolint:gosec // see import
	return &Writer[M]{
		opts:    applyOptions(opts),
		sink:    sink,
		proto:   thrift.NewTBinaryProtocolConf(thrift.NewStreamTransportW(sink), nil),
		closers: closers,
	}
}

// Add encodes msg and flushes it to the underlying stream.
func (w *Writer[M]) Add(ctx context.Context, msg M) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	before := w.sink.n
	if err := msg.Write(ctx, w.proto); err != nil {
		return fmt.Errorf("chunk: write message %d: %w", w.count, err)
	}
	if err := w.proto.Flush(ctx); err != nil {
		return fmt.Errorf("chunk: flush message %d: %w", w.count, err)
	}
	w.count++
	w.opts.observer.MessageWritten(int(w.sink.n - before))
	return nil
}

// Len reports the number of messages added.
func (w *Writer[M]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Bytes reports the number of uncompressed bytes written.
func (w *Writer[M]) Bytes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sink.n
}

// MD5Hexdigest returns the md5 of every byte written so far. After Close the
// value is frozen.
func (w *Writer[M]) MD5Hexdigest() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.digest
	}
	return hex.EncodeToString(w.sink.h.Sum(nil))
}

// Close flushes pending output and closes the underlying stream. It is
// idempotent.
func (w *Writer[M]) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	var firstErr error
	if err := w.proto.Flush(context.Background()); err != nil {
		firstErr = fmt.Errorf("chunk: flush: %w", err)
	}
	w.digest = hex.EncodeToString(w.sink.h.Sum(nil))
	for _, c := range w.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("chunk: close: %w", err)
		}
	}
	return firstErr
}

type countingWriter struct {
	w io.Writer
	h hash.Hash
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.h.Write(p[:n])
	c.n += int64(n)
	return n, err
}
