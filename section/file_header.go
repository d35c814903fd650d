package section

import (
	"github.com/glf-dev/glf/endian"
	"github.com/glf-dev/glf/errs"
	"github.com/glf-dev/glf/format"
)

// FileHeaderSize is the fixed size of the file header in bytes.
const FileHeaderSize = 20

// MagicTypeCode identifies a GLF session file. The first 8 bytes of every
// session file are exactly these.
var MagicTypeCode = [8]byte{'G', 'L', 'F', 0x00, 'S', 'E', 'S', 0x01}

// FileHeader is the fixed 20-byte structure at offset 0 of a session file.
//
// Layout (little-endian):
//
//	bytes 0-7   magic type code
//	bytes 8-9   major version (int16)
//	bytes 10-11 minor version (int16)
//	bytes 12-15 data offset (int32) = 20 + session header length
//	bytes 16-19 data checksum (int32, reserved; written 0, accepted any)
type FileHeader struct {
	MajorVersion int16
	MinorVersion int16
	DataOffset   int32
	Checksum     int32
}

// NewFileHeader creates a file header for the given protocol version.
// DataOffset is filled in once the session header has been sized.
func NewFileHeader(major, minor int) *FileHeader {
	return &FileHeader{
		MajorVersion: int16(major),
		MinorVersion: int16(minor),
	}
}

// Marshal serializes the header into exactly FileHeaderSize bytes.
func (h *FileHeader) Marshal() []byte {
	engine := endian.GetLittleEndianEngine()

	buf := make([]byte, 0, FileHeaderSize)
	buf = append(buf, MagicTypeCode[:]...)
	buf = engine.AppendUint16(buf, uint16(h.MajorVersion))
	buf = engine.AppendUint16(buf, uint16(h.MinorVersion))
	buf = engine.AppendUint32(buf, uint32(h.DataOffset))
	buf = engine.AppendUint32(buf, uint32(h.Checksum))

	return buf
}

// Parse parses the header from a byte slice of exactly FileHeaderSize
// bytes, validating the magic type code and the data offset range.
func (h *FileHeader) Parse(data []byte) error {
	if len(data) != FileHeaderSize {
		return errs.ErrInvalidFileHeader
	}
	if [8]byte(data[0:8]) != MagicTypeCode {
		return errs.ErrInvalidMagicNumber
	}

	engine := endian.GetLittleEndianEngine()
	h.MajorVersion = int16(engine.Uint16(data[8:10]))
	h.MinorVersion = int16(engine.Uint16(data[10:12]))
	h.DataOffset = int32(engine.Uint32(data[12:16]))
	h.Checksum = int32(engine.Uint32(data[16:20]))

	if h.DataOffset < FileHeaderSize {
		return errs.ErrInvalidDataOffset
	}

	return nil
}

// SupportedVersion reports whether this library can decode the header's
// protocol version.
func (h *FileHeader) SupportedVersion() bool {
	return h.MajorVersion >= format.MajorVersionLegacy && h.MajorVersion <= format.MajorVersion
}
