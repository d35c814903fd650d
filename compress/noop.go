package compress

import (
	"io"

	"github.com/glf-dev/glf/format"
)

// NoopCodec passes bytes through unchanged, used by protocol version 1
// streams.
type NoopCodec struct{}

var _ Codec = (*NoopCodec)(nil)

// Type identifies the codec.
func (NoopCodec) Type() format.CompressionType {
	return format.CompressionNone
}

// WrapWriter returns a pass-through writer over w.
func (NoopCodec) WrapWriter(w io.Writer) (FlushWriter, error) {
	return nopFlushWriter{w}, nil
}

// WrapReader returns a pass-through reader over r.
func (NoopCodec) WrapReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

type nopFlushWriter struct {
	io.Writer
}

func (nopFlushWriter) Flush() error { return nil }
func (nopFlushWriter) Close() error { return nil }
