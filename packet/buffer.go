package packet

import (
	"errors"
	"fmt"

	"github.com/glf-dev/glf/encoding"
	"github.com/glf-dev/glf/errs"
)

// DefaultBufferSize is the capacity of the read-side packet buffer and
// the natural chunk size for feeding it.
const DefaultBufferSize = 131072

// bufferGrowIncrement is the fixed step the buffer grows by when a
// partial packet's remainder has to be carried across a buffer boundary.
const bufferGrowIncrement = 16384

// ReadStatus is the three-state result of a packet reassembly attempt.
type ReadStatus int

const (
	// Complete means a whole packet payload was extracted.
	Complete ReadStatus = iota

	// NeedMoreBytes means the length prefix was readable but the payload
	// extends past the buffered bytes; the attempt reports how many more
	// bytes it needs.
	NeedMoreBytes

	// NeedMoreForLengthPrefix means the length prefix itself is split
	// across the buffer boundary; the unread tail must be prepended to
	// the next buffer before decoding can resume.
	NeedMoreForLengthPrefix
)

func (s ReadStatus) String() string {
	switch s {
	case Complete:
		return "Complete"
	case NeedMoreBytes:
		return "NeedMoreBytes"
	case NeedMoreForLengthPrefix:
		return "NeedMoreForLengthPrefix"
	default:
		return "Unknown"
	}
}

// BufferManager reassembles length-prefixed packets from a physical
// sequence of fixed-size buffers. Crossing a buffer edge never loses or
// duplicates bytes and is invisible to the field decoder, which only ever
// sees complete packet payloads.
//
// The three cases of Next map directly onto ReadStatus: the common case
// returns a zero-copy view into the internal buffer; the two partial
// cases ask the caller to Fill more data first. Not safe for concurrent
// use.
type BufferManager struct {
	buf []byte
	pos int
	end int
}

// NewBufferManager creates a manager with the default buffer capacity.
func NewBufferManager() *BufferManager {
	return &BufferManager{
		buf: make([]byte, DefaultBufferSize),
	}
}

// Buffered returns the number of unconsumed bytes held by the manager.
func (m *BufferManager) Buffered() int {
	return m.end - m.pos
}

// Fill appends the next chunk of the stream, first sliding any unread
// tail from the previous buffer to the front so a split length prefix or
// payload continues seamlessly. The buffer grows in fixed increments only
// when the carried tail plus the chunk exceed its capacity.
func (m *BufferManager) Fill(chunk []byte) {
	tail := m.end - m.pos
	if tail > 0 && m.pos > 0 {
		copy(m.buf, m.buf[m.pos:m.end])
	}
	m.end = tail
	m.pos = 0

	need := m.end + len(chunk)
	if need > len(m.buf) {
		grown := len(m.buf)
		for grown < need {
			grown += bufferGrowIncrement
		}
		newBuf := make([]byte, grown)
		copy(newBuf, m.buf[:m.end])
		m.buf = newBuf
	}

	copy(m.buf[m.end:], chunk)
	m.end += len(chunk)
}

// Next attempts to extract the next packet payload.
//
// On Complete the returned slice is a zero-copy view of the internal
// buffer, valid until the next Fill. On NeedMoreBytes, needed reports how
// many additional bytes the current packet requires. A length prefix that
// decodes as zero, or overflows the varint budget, is a corrupted stream.
func (m *BufferManager) Next() (payload []byte, status ReadStatus, needed int, err error) {
	avail := m.buf[m.pos:m.end]
	if len(avail) == 0 {
		return nil, NeedMoreForLengthPrefix, 0, nil
	}

	length, n, err := encoding.DecodeUvarint64(avail)
	if err != nil {
		if errors.Is(err, errs.ErrUnexpectedEOF) {
			return nil, NeedMoreForLengthPrefix, 0, nil
		}

		return nil, Complete, 0, fmt.Errorf("packet length prefix: %w", err)
	}
	if length == 0 {
		return nil, Complete, 0, errs.ErrInvalidPacketLength
	}
	if length > DefaultMaxPacketSize {
		return nil, Complete, 0, fmt.Errorf("%w: declared length %d", errs.ErrPacketTooLarge, length)
	}

	total := n + int(length)
	if len(avail) < total {
		return nil, NeedMoreBytes, total - len(avail), nil
	}

	m.pos += total

	return avail[n:total], Complete, 0, nil
}
