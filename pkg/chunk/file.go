package chunk

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/ulikunitz/xz"
)

// XZExt marks chunk paths stored xz-compressed.
const XZExt = ".xz"

// IsCompressed reports whether path names an xz-compressed chunk.
func IsCompressed(path string) bool { return strings.HasSuffix(path, XZExt) }

// Create makes a new chunk file, creating parent directories as needed. It
// fails with ErrExists when path is already present. A path ending in .xz is
// written xz-compressed; the Writer's digest still covers the uncompressed
// Thrift stream.
func Create[M thrift.TStruct](path string, opts ...Option) (*Writer[M], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("chunk: create %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrExists, path)
		}
		return nil, fmt.Errorf("chunk: create %s: %w", path, err)
	}
	if !IsCompressed(path) {
		return newWriter[M](f, []io.Closer{f}, opts), nil
	}
	xw, err := xz.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("chunk: create %s: xz: %w", path, err)
	}
	return newWriter[M](xw, []io.Closer{xw, f}, opts), nil
}

// Append opens path for appending, creating it (and its parents) when
// missing. Compressed chunks cannot be appended to. The digest of the
// returned Writer covers only the bytes it appends.
func Append[M thrift.TStruct](path string, opts ...Option) (*Writer[M], error) {
	if IsCompressed(path) {
		return nil, fmt.Errorf("%w: %s", ErrCompressedAppend, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("chunk: append %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("chunk: append %s: %w", path, err)
	}
	return newWriter[M](f, []io.Closer{f}, opts), nil
}

// Open opens an existing chunk for reading. A path ending in .xz is
// decompressed on the fly and can only be iterated once.
func Open[M thrift.TStruct](path string, newMsg func() M, opts ...Option) (*Reader[M], error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("chunk: open %s: %w", path, err)
	}
	if !IsCompressed(path) {
		return newReader(io.Reader(f), newMsg, []io.Closer{f}, opts), nil
	}
	xr, err := xz.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("chunk: open %s: xz: %w", path, err)
	}
	return newReader(io.Reader(xr), newMsg, []io.Closer{f}, opts), nil
}
