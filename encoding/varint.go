package encoding

import (
	"math"

	"github.com/glf-dev/glf/errs"
)

// MaxUvarint64Len is the worst-case encoded size of a uint64: eight 7-bit
// groups followed by one full 8-bit byte.
const MaxUvarint64Len = 9

// MaxVarint64Len is the worst-case encoded size of an int64: six value
// bits in the first byte, then nine 7-bit groups.
const MaxVarint64Len = 10

// AppendUvarint64 appends v using 7-bit little-endian groups with a
// continuation high bit. Once 56 bits have been emitted the ninth byte is
// written in full with no continuation bit, bounding the encoding at
// 9 bytes.
func AppendUvarint64(dst []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		if v < 0x80 {
			return append(dst, byte(v))
		}
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	// 56 bits consumed; the remaining 8 bits use the whole final byte.
	return append(dst, byte(v))
}

// AppendUvarint32 appends v using the standard 7-bit continuation scheme.
// At most 5 bytes.
func AppendUvarint32(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}

	return append(dst, byte(v))
}

// DecodeUvarint64 decodes a uint64 from the start of data, returning the
// value and the number of bytes consumed.
//
// An exhausted input returns errs.ErrUnexpectedEOF with the count of
// bytes it inspected, which lets the packet buffer manager distinguish a
// split length prefix from a corrupt one.
func DecodeUvarint64(data []byte) (uint64, int, error) {
	var v uint64
	for i := 0; i < 8; i++ {
		if i >= len(data) {
			return 0, i, errs.ErrUnexpectedEOF
		}
		b := data[i]
		v |= uint64(b&0x7F) << (7 * i)
		if b < 0x80 {
			return v, i + 1, nil
		}
	}
	if len(data) < MaxUvarint64Len {
		return 0, len(data), errs.ErrUnexpectedEOF
	}
	v |= uint64(data[8]) << 56

	return v, MaxUvarint64Len, nil
}

// DecodeUvarint32 decodes a uint32 from the start of data.
func DecodeUvarint32(data []byte) (uint32, int, error) {
	var v uint64
	for i := 0; i < 5; i++ {
		if i >= len(data) {
			return 0, i, errs.ErrUnexpectedEOF
		}
		b := data[i]
		v |= uint64(b&0x7F) << (7 * i)
		if b < 0x80 {
			if v > math.MaxUint32 {
				return 0, i + 1, errs.ErrValueTooLarge
			}

			return uint32(v), i + 1, nil
		}
	}

	return 0, 5, errs.ErrValueTooLarge
}

// AppendVarint64 appends a signed value as a separately encoded sign and
// magnitude: the first byte holds the low 6 magnitude bits, bit 6 as the
// continuation flag and bit 7 as the sign flag; subsequent bytes use the
// standard 7-bit continuation scheme.
//
// Negating the magnitude in two's complement makes math.MinInt64 (whose
// positive magnitude does not fit an int64) round-trip exactly.
func AppendVarint64(dst []byte, v int64) []byte {
	mag := uint64(v)
	var sign byte
	if v < 0 {
		sign = 0x80
		mag = ^mag + 1
	}

	first := byte(mag&0x3F) | sign
	mag >>= 6
	if mag == 0 {
		return append(dst, first)
	}
	dst = append(dst, first|0x40)
	for mag >= 0x80 {
		dst = append(dst, byte(mag)|0x80)
		mag >>= 7
	}

	return append(dst, byte(mag))
}

// AppendVarint32 appends a signed 32-bit value using the same scheme as
// AppendVarint64.
func AppendVarint32(dst []byte, v int32) []byte {
	return AppendVarint64(dst, int64(v))
}

// DecodeVarint64 decodes a signed value from the start of data.
func DecodeVarint64(data []byte) (int64, int, error) {
	if len(data) == 0 {
		return 0, 0, errs.ErrUnexpectedEOF
	}
	first := data[0]
	mag := uint64(first & 0x3F)
	neg := first&0x80 != 0
	n := 1
	if first&0x40 != 0 {
		shift := uint(6)
		for {
			if n >= len(data) {
				return 0, n, errs.ErrUnexpectedEOF
			}
			if n >= MaxVarint64Len {
				return 0, n, errs.ErrValueTooLarge
			}
			b := data[n]
			n++
			if shift == 62 && b&0x7F > 3 {
				return 0, n, errs.ErrValueTooLarge
			}
			mag |= uint64(b&0x7F) << shift
			if b < 0x80 {
				break
			}
			shift += 7
		}
	}

	if neg {
		if mag > 1<<63 {
			return 0, n, errs.ErrValueTooLarge
		}

		return -int64(mag), n, nil
	}
	if mag > math.MaxInt64 {
		return 0, n, errs.ErrValueTooLarge
	}

	return int64(mag), n, nil
}

// DecodeVarint32 decodes a signed 32-bit value from the start of data.
func DecodeVarint32(data []byte) (int32, int, error) {
	v, n, err := DecodeVarint64(data)
	if err != nil {
		return 0, n, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, n, errs.ErrValueTooLarge
	}

	return int32(v), n, nil
}
