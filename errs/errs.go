// Package errs defines the sentinel errors shared across the glf packages.
//
// Errors split into two families: I/O truncation (the bytes simply are not
// there) and stream corruption (the bytes are there but are not a valid
// encoding). Callers can test for either family with errors.Is; specific
// sentinels wrap the family sentinel where it applies.
package errs

import (
	"errors"
	"fmt"
)

// Family sentinels.
var (
	// ErrUnexpectedEOF indicates the stream ended in the middle of an
	// encoded value. Fatal for the current read operation.
	ErrUnexpectedEOF = errors.New("unexpected end of stream")

	// ErrStreamCorrupted indicates the bytes read are not a valid GLF
	// encoding. Fatal for the whole deserialization, not just one field.
	ErrStreamCorrupted = errors.New("serialized data is corrupted")
)

// Field codec errors.
var (
	ErrValueTooLarge       = fmt.Errorf("%w: encoded value exceeds its byte budget", ErrStreamCorrupted)
	ErrInvalidLength       = fmt.Errorf("%w: invalid length field", ErrStreamCorrupted)
	ErrInvalidStringToken  = fmt.Errorf("%w: string token outside the string table", ErrStreamCorrupted)
	ErrInvalidTimestampTag = fmt.Errorf("%w: unknown timestamp encoding tag", ErrStreamCorrupted)
	ErrInvalidFieldType    = fmt.Errorf("%w: unknown field type", ErrStreamCorrupted)
)

// Packet layer errors.
var (
	ErrInvalidPacketLength = fmt.Errorf("%w: non-positive packet length", ErrStreamCorrupted)
	ErrInvalidTypeIndex    = fmt.Errorf("%w: packet type index outside the definition cache", ErrStreamCorrupted)
	ErrPacketTooLarge      = errors.New("packet exceeds the maximum packet size")
	ErrUnknownPacketType   = errors.New("no packet constructor registered for type")
	ErrNilPacket           = errors.New("packet must not be nil")
)

// File framing errors.
var (
	ErrInvalidFileHeader    = fmt.Errorf("%w: file header is malformed", ErrStreamCorrupted)
	ErrInvalidMagicNumber   = fmt.Errorf("%w: not a GLF session file", ErrStreamCorrupted)
	ErrInvalidDataOffset    = fmt.Errorf("%w: data offset is out of range", ErrStreamCorrupted)
	ErrUnsupportedVersion   = errors.New("unsupported protocol version")
	ErrHeaderSizeChanged    = errors.New("session header size changed between rewrites")
	ErrWriterClosed         = errors.New("session writer is closed")
	ErrReaderClosed         = errors.New("session reader is closed")
	ErrSessionHeaderMissing = errors.New("session header has not been written")
)
