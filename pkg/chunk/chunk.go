// Package chunk reads and writes chunk files: flat concatenations of Thrift
// binary-protocol messages, usually streamcorpus.StreamItem values.
//
// A chunk has no header, footer or framing. Readers detect the end of a chunk
// by a clean EOF at a message boundary; an EOF inside a message is reported as
// ErrTruncated. Both directions track the md5 digest of the Thrift stream so a
// chunk can be addressed by content.
package chunk

import (
	"errors"
	"log/slog"
)

var (
	// ErrClosed is returned when adding to a closed Writer.
	ErrClosed = errors.New("chunk: writer closed")
	// ErrTruncated reports a chunk that ends in the middle of a message.
	ErrTruncated = errors.New("chunk: truncated message")
	// ErrExists is returned by Create when the target path already exists.
	ErrExists = errors.New("chunk: file exists")
	// ErrNotFound is returned by Open when the target path does not exist.
	ErrNotFound = errors.New("chunk: file not found")
	// ErrCompressedAppend is returned by Append for .xz paths.
	ErrCompressedAppend = errors.New("chunk: cannot append to a compressed chunk")
	// ErrNotOneMessage is returned by Deserialize when the input does not hold
	// exactly one message.
	ErrNotOneMessage = errors.New("chunk: expected exactly one message")
	// ErrNotRewindable is returned when a second pass is requested over a
	// source that cannot seek back to its start.
	ErrNotRewindable = errors.New("chunk: source cannot be re-read")
)

// Observer receives per-message accounting from readers and writers.
// Implementations must be safe for concurrent use when shared.
type Observer interface {
	MessageWritten(bytes int)
	MessageRead(bytes int)
	UnknownEntityType(code int32)
}

// unknownEntityTyper is implemented by messages that can report entity-type
// codes this build does not declare.
type unknownEntityTyper interface {
	UnknownEntityTypes() []int32
}

type options struct {
	logger   *slog.Logger
	observer Observer
}

// Option configures a Reader or Writer.
type Option func(*options)

// WithLogger routes diagnostics (undeclared entity types, short reads) to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver attaches an Observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

func applyOptions(opts []Option) options {
	o := options{logger: slog.New(slog.DiscardHandler), observer: nopObserver{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	return o
}

type nopObserver struct{}

func (nopObserver) MessageWritten(int)      {}
func (nopObserver) MessageRead(int)         {}
func (nopObserver) UnknownEntityType(int32) {}
