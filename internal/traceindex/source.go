package traceindex

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// source wraps a decompressing reader and the file beneath it.
type source struct {
	io.Reader
	closers []io.Closer
}

func (s *source) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open opens a trace log for reading. Gzip and zstd compressed logs are
// detected by their magic bytes and decompressed transparently.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path) //nolint:gosec // reading user-supplied trace logs is the point
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(f)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		_ = f.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("peeking header: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			_ = f.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		return &source{Reader: zr, closers: []io.Closer{f, zr}}, nil
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			_ = f.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		return &source{Reader: dec, closers: []io.Closer{f, dec.IOReadCloser()}}, nil
	default:
		return &source{Reader: br, closers: []io.Closer{f}}, nil
	}
}

// Load opens and ingests a trace log. If the log cannot be read, the returned
// index is empty (never nil) and the error is an *UnreadableSourceError.
func Load(path string) (*Index, error) {
	x := New()

	rc, err := Open(path)
	if err != nil {
		return x, &UnreadableSourceError{Path: path, Err: err}
	}
	defer func() {
		_ = rc.Close() //nolint:errcheck // read-only source
	}()

	if _, err := x.Ingest(rc); err != nil {
		return New(), &UnreadableSourceError{Path: path, Err: err}
	}
	return x, nil
}
