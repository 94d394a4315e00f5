package chunk

import (
	"bufio"
	"context"
	"crypto/md5" //nolint:gosec // content addressing, not security
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"iter"

	"github.com/apache/thrift/lib/go/thrift"
)

const readBufferSize = 64 << 10

// Reader decodes Thrift messages from a chunk stream. A Reader is not safe
// for concurrent use.
type Reader[M thrift.TStruct] struct {
	src     io.Reader
	newMsg  func() M
	opts    options
	closers []io.Closer

	br    *bufio.Reader
	in    *digestTransport
	proto thrift.TProtocol
	count int
	passes int
}

// NewReader returns a Reader over r that builds each message with newMsg.
// When r is an io.Seeker every call to All starts again from offset 0;
// otherwise the chunk can be iterated once. If r is an io.Closer, Close
// closes it.
func NewReader[M thrift.TStruct](r io.Reader, newMsg func() M, opts ...Option) *Reader[M] {
	var closers []io.Closer
	if c, ok := r.(io.Closer); ok {
		closers = append(closers, c)
	}
	return newReader(r, newMsg, closers, opts)
}

func newReader[M thrift.TStruct](r io.Reader, newMsg func() M, closers []io.Closer, opts []Option) *Reader[M] {
	rd := &Reader[M]{src: r, newMsg: newMsg, opts: applyOptions(opts), closers: closers}
	rd.reset()
	return rd
}

func (r *Reader[M]) reset() {
	r.br = bufio.NewReaderSize(r.src, readBufferSize)
	// NewStreamTransportR keeps r.br as is since it is already large enough,
	// which lets Next peek at message boundaries.
	r.in = &digestTransport{StreamTransport: thrift.NewStreamTransportR(r.br), h: md5.New()} //nolint:gosec // see import
	r.proto = thrift.NewTBinaryProtocolConf(r.in, nil)
	r.count = 0
}

func (r *Reader[M]) rewind() error {
	if r.passes == 0 {
		r.passes++
		return nil
	}
	seeker, ok := r.src.(io.Seeker)
	if !ok {
		return ErrNotRewindable
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", ErrNotRewindable, err)
	}
	r.passes++
	r.reset()
	return nil
}

// consumed is the number of source bytes handed to the decoder.
func (r *Reader[M]) consumed() int64 {
	return r.in.n
}

// Next decodes the next message. It returns io.EOF at a clean end of chunk
// and an error wrapping ErrTruncated when the chunk ends mid-message.
func (r *Reader[M]) Next(ctx context.Context) (M, error) {
	var zero M
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if _, err := r.br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return zero, io.EOF
		}
		return zero, fmt.Errorf("chunk: read message %d: %w", r.count, err)
	}
	before := r.consumed()
	msg := r.newMsg()
	if err := msg.Read(ctx, r.proto); err != nil {
		if _, perr := r.br.Peek(1); errors.Is(perr, io.EOF) {
			r.opts.logger.Warn("chunk ends inside a message",
				"message", r.count, "offset", before)
			return zero, fmt.Errorf("%w: message %d at offset %d: %v", ErrTruncated, r.count, before, err)
		}
		return zero, fmt.Errorf("chunk: read message %d: %w", r.count, err)
	}
	r.count++
	r.opts.observer.MessageRead(int(r.consumed() - before))
	if u, ok := any(msg).(unknownEntityTyper); ok {
		if codes := u.UnknownEntityTypes(); len(codes) > 0 {
			r.opts.logger.Warn("message carries undeclared entity types",
				"message", r.count-1, "codes", codes)
			for _, code := range codes {
				r.opts.observer.UnknownEntityType(code)
			}
		}
	}
	return msg, nil
}

// All iterates the chunk from its start. Iteration stops after the first
// error, which is yielded with a zero message.
func (r *Reader[M]) All(ctx context.Context) iter.Seq2[M, error] {
	return func(yield func(M, error) bool) {
		var zero M
		if err := r.rewind(); err != nil {
			yield(zero, err)
			return
		}
		for {
			msg, err := r.Next(ctx)
			if err == io.EOF { //nolint:errorlint // Next returns io.EOF unwrapped
				return
			}
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(msg, nil) {
				return
			}
		}
	}
}

// ReadAll collects every message of the chunk.
func (r *Reader[M]) ReadAll(ctx context.Context) ([]M, error) {
	var out []M
	for msg, err := range r.All(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// Len reports the number of messages read in the current pass.
func (r *Reader[M]) Len() int { return r.count }

// MD5Hexdigest returns the md5 of the bytes decoded so far in the current
// pass. Read-ahead buffering is not included, so after a complete pass it is
// the digest of the whole chunk.
func (r *Reader[M]) MD5Hexdigest() string {
	return hex.EncodeToString(r.in.h.Sum(nil))
}

// Close closes the underlying source when it is closable.
func (r *Reader[M]) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("chunk: close: %w", err)
		}
	}
	r.closers = nil
	return firstErr
}

// digestTransport hashes exactly the bytes the binary protocol reads.
type digestTransport struct {
	*thrift.StreamTransport
	h hash.Hash
	n int64
}

func (t *digestTransport) Read(p []byte) (int, error) {
	n, err := t.StreamTransport.Read(p)
	t.record(p[:n])
	return n, err
}

func (t *digestTransport) ReadByte() (byte, error) {
	c, err := t.StreamTransport.ReadByte()
	if err == nil {
		t.record([]byte{c})
	}
	return c, err
}

func (t *digestTransport) record(p []byte) {
	t.h.Write(p)
	t.n += int64(len(p))
}
