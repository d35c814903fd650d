package compress

import (
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/glf-dev/glf/format"
)

// GzipCodec is the gzip framing used by protocol major version 2 and
// later. gzip.Writer.Flush emits a sync point, which lets a live session
// file stay decodable up to the last writer flush.
type GzipCodec struct{}

var _ Codec = (*GzipCodec)(nil)

// Type identifies the codec.
func (GzipCodec) Type() format.CompressionType {
	return format.CompressionGzip
}

// WrapWriter returns a gzip writer compressing into w.
func (GzipCodec) WrapWriter(w io.Writer) (FlushWriter, error) {
	return gzip.NewWriter(w), nil
}

// WrapReader returns a gzip reader decompressing from r. Multistream mode
// stays enabled so a file whose writer restarted the framing still reads
// as one stream.
func (GzipCodec) WrapReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}

	return zr, nil
}
