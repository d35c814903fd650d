package compress

import (
	"io"

	"github.com/glf-dev/glf/format"
)

// FlushWriter is a compressing writer that can push a synchronization
// point: after Flush returns, everything written so far can be fully
// decompressed by a reader of the underlying stream.
type FlushWriter interface {
	io.WriteCloser

	// Flush writes any pending compressed data and a sync point.
	Flush() error
}

// Codec wraps a raw stream in a compression framing. Implementations are
// stateless; all state lives in the wrapped writers and readers.
type Codec interface {
	// Type identifies the codec.
	Type() format.CompressionType

	// WrapWriter returns a writer that compresses into w. Closing the
	// returned writer finalizes the framing without closing w.
	WrapWriter(w io.Writer) (FlushWriter, error)

	// WrapReader returns a reader that decompresses from r. Closing the
	// returned reader does not close r.
	WrapReader(r io.Reader) (io.ReadCloser, error)
}

// ForVersion returns the codec mandated by the protocol major version:
// gzip for version 2 and later, no compression for version 1.
func ForVersion(major int) Codec {
	if format.SupportsCompression(major) {
		return GzipCodec{}
	}

	return NoopCodec{}
}
