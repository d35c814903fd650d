package session

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"github.com/glf-dev/glf/compress"
	"github.com/glf-dev/glf/encoding"
	"github.com/glf-dev/glf/errs"
	"github.com/glf-dev/glf/packet"
	"github.com/glf-dev/glf/section"
)

// Reader parses a session file: it validates the file header, decodes the
// session header and then iterates the packet stream, reassembling
// packets across buffer boundaries and replaying definitions.
//
// A corrupted file fails at open or at the offending packet with an error
// wrapping errs.ErrStreamCorrupted; a truncated file surfaces
// errs.ErrUnexpectedEOF. Not safe for concurrent use.
type Reader struct {
	r  io.Reader
	zr io.ReadCloser

	fileHeader *section.FileHeader
	header     *section.SessionHeader

	pr    *packet.Reader
	bm    *packet.BufferManager
	chunk []byte

	registry  *packet.Registry
	logger    *slog.Logger
	chunkSize int

	eof    bool
	closed bool
}

// ReaderOption configures a session Reader.
type ReaderOption func(*Reader)

// WithRegistry supplies packet constructors by type name. Types without a
// constructor decode as *packet.GenericPacket.
func WithRegistry(registry *packet.Registry) ReaderOption {
	return func(r *Reader) {
		r.registry = registry
	}
}

// WithBufferSize overrides the read chunk size. The default is
// packet.DefaultBufferSize.
func WithBufferSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.chunkSize = n
		}
	}
}

// WithReaderLogger attaches a logger for open/corruption diagnostics.
func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReader opens a session stream, reading and validating both headers
// before returning. The reader consumes src sequentially; no seeking is
// required.
func NewReader(src io.Reader, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{
		r:         src,
		logger:    slog.New(slog.DiscardHandler),
		chunkSize: packet.DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(r)
	}

	headerBuf := make([]byte, section.FileHeaderSize)
	if _, err := io.ReadFull(src, headerBuf); err != nil {
		return nil, fmt.Errorf("reading file header: %w", errs.ErrInvalidFileHeader)
	}
	r.fileHeader = &section.FileHeader{}
	if err := r.fileHeader.Parse(headerBuf); err != nil {
		return nil, err
	}
	if !r.fileHeader.SupportedVersion() {
		return nil, fmt.Errorf("%w: %d.%d", errs.ErrUnsupportedVersion,
			r.fileHeader.MajorVersion, r.fileHeader.MinorVersion)
	}

	major := int(r.fileHeader.MajorVersion)
	minor := int(r.fileHeader.MinorVersion)

	// The session header is small metadata; a multi-megabyte data offset
	// means the header bytes are garbage.
	if r.fileHeader.DataOffset > section.FileHeaderSize+1<<20 {
		return nil, errs.ErrInvalidDataOffset
	}

	sessionBuf := make([]byte, int(r.fileHeader.DataOffset)-section.FileHeaderSize)
	if _, err := io.ReadFull(src, sessionBuf); err != nil {
		return nil, fmt.Errorf("reading session header: %w", errs.ErrUnexpectedEOF)
	}
	r.header = &section.SessionHeader{}
	if err := r.header.Parse(sessionBuf, major); err != nil {
		return nil, fmt.Errorf("parsing session header: %w", err)
	}

	zr, err := compress.ForVersion(major).WrapReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: opening packet stream: %w", errs.ErrStreamCorrupted, err)
	}
	r.zr = zr

	r.pr = packet.NewReader(encoding.NewStringTable(), major, minor, r.registry)
	r.bm = packet.NewBufferManager()
	r.chunk = make([]byte, r.chunkSize)

	r.logger.Debug("session file opened",
		slog.String("session", r.header.SessionID.String()),
		slog.Int("major", major),
		slog.Int("minor", minor),
		slog.String("status", r.header.Status.String()))

	return r, nil
}

// FileHeader returns the parsed file header.
func (r *Reader) FileHeader() *section.FileHeader {
	return r.fileHeader
}

// Header returns the parsed session header.
func (r *Reader) Header() *section.SessionHeader {
	return r.header
}

// Next returns the next packet in the stream, or io.EOF after the last
// one.
func (r *Reader) Next() (packet.Packet, error) {
	if r.closed {
		return nil, errs.ErrReaderClosed
	}

	for {
		payload, status, _, err := r.bm.Next()
		if err != nil {
			return nil, err
		}
		if status == packet.Complete {
			return r.pr.ReadPacket(payload)
		}

		if r.eof {
			if r.bm.Buffered() == 0 && status == packet.NeedMoreForLengthPrefix {
				return nil, io.EOF
			}

			return nil, fmt.Errorf("%w: packet truncated at end of stream", errs.ErrUnexpectedEOF)
		}

		n, err := r.zr.Read(r.chunk)
		if n > 0 {
			r.bm.Fill(r.chunk[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.eof = true
				continue
			}

			return nil, fmt.Errorf("%w: reading packet stream: %w", errs.ErrStreamCorrupted, err)
		}
	}
}

// Packets iterates the remaining packets. Iteration stops at the first
// error; a clean end of stream yields no error entry.
func (r *Reader) Packets() iter.Seq2[packet.Packet, error] {
	return func(yield func(packet.Packet, error) bool) {
		for {
			p, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

// Cached resolves a previously decoded cacheable packet by instance ID.
func (r *Reader) Cached(id uuid.UUID) (packet.Packet, bool) {
	return r.pr.Cached(id)
}

// Close releases the compression framing. It does not close the
// underlying reader.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	return r.zr.Close()
}
