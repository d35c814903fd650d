package encoding

import (
	"math"

	"github.com/glf-dev/glf/errs"
)

// AppendFloat64 appends the IEEE-754 bit pattern of v using the 7/8-bit
// continuation scheme of AppendUvarint64, but walking from the high-order
// bits. Common decimal values have long runs of trailing zero mantissa
// bits, so emitting the leading bits first lets the encoding stop early.
func AppendFloat64(dst []byte, v float64) []byte {
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		b := byte(bits >> 57) // top 7 bits
		bits <<= 7
		if bits == 0 {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
	// 56 bits emitted; the original low 8 bits fill the final byte.
	return append(dst, byte(bits>>56))
}

// DecodeFloat64 decodes a float64 from the start of data, returning the
// value and the number of bytes consumed.
func DecodeFloat64(data []byte) (float64, int, error) {
	var acc uint64
	for i := 0; i < 8; i++ {
		if i >= len(data) {
			return 0, i, errs.ErrUnexpectedEOF
		}
		b := data[i]
		acc = acc<<7 | uint64(b&0x7F)
		if b < 0x80 {
			// Left-align the accumulated leading bits into 64.
			acc <<= 64 - 7*uint(i+1)

			return math.Float64frombits(acc), i + 1, nil
		}
	}
	if len(data) < MaxUvarint64Len {
		return 0, len(data), errs.ErrUnexpectedEOF
	}
	acc = acc<<8 | uint64(data[8])

	return math.Float64frombits(acc), MaxUvarint64Len, nil
}
