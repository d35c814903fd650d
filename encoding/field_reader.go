package encoding

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glf-dev/glf/errs"
	"github.com/glf-dev/glf/format"
)

// FieldReader decodes typed field values from one complete packet's
// bytes. The packet buffer manager guarantees the slice holds a whole
// packet, so the reader is a plain cursor and never sees buffer
// boundaries.
//
// The reader shares the stream's StringTable with the matching writer so
// string tokens and the timestamp reference replay in the same order.
// Not safe for concurrent use.
type FieldReader struct {
	data  []byte
	pos   int
	table *StringTable
	major int
	minor int
}

// NewFieldReader creates a FieldReader over data.
func NewFieldReader(data []byte, table *StringTable, major, minor int) *FieldReader {
	return &FieldReader{
		data:  data,
		table: table,
		major: major,
		minor: minor,
	}
}

// Remaining returns the number of unread bytes.
func (r *FieldReader) Remaining() int {
	return len(r.data) - r.pos
}

// Table returns the shared string table.
func (r *FieldReader) Table() *StringTable {
	return r.table
}

// ReadBool reads a single-byte boolean.
func (r *FieldReader) ReadBool() (bool, error) {
	if r.pos >= len(r.data) {
		return false, errs.ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++

	return b != 0, nil
}

// ReadUint32 reads an unsigned 32-bit varint.
func (r *FieldReader) ReadUint32() (uint32, error) {
	v, n, err := DecodeUvarint32(r.data[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += n

	return v, nil
}

// ReadUint64 reads an unsigned 64-bit varint.
func (r *FieldReader) ReadUint64() (uint64, error) {
	v, n, err := DecodeUvarint64(r.data[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += n

	return v, nil
}

// ReadInt32 reads a signed 32-bit varint.
func (r *FieldReader) ReadInt32() (int32, error) {
	v, n, err := DecodeVarint32(r.data[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += n

	return v, nil
}

// ReadInt64 reads a signed 64-bit varint.
func (r *FieldReader) ReadInt64() (int64, error) {
	v, n, err := DecodeVarint64(r.data[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += n

	return v, nil
}

// ReadFloat64 reads a high-bits-first encoded double.
func (r *FieldReader) ReadFloat64() (float64, error) {
	v, n, err := DecodeFloat64(r.data[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += n

	return v, nil
}

// ReadDuration reads a time span encoded as signed varint nanoseconds.
func (r *FieldReader) ReadDuration() (time.Duration, error) {
	v, err := r.ReadInt64()
	if err != nil {
		return 0, err
	}

	return time.Duration(v), nil
}

// ReadGUID reads 16 raw bytes.
func (r *FieldReader) ReadGUID() (uuid.UUID, error) {
	var u uuid.UUID
	if r.Remaining() < len(u) {
		return u, errs.ErrUnexpectedEOF
	}
	copy(u[:], r.data[r.pos:])
	r.pos += len(u)

	return u, nil
}

// readDirectString reads the inline string form. null reports whether the
// reserved {1, 0x00} null encoding was found.
func (r *FieldReader) readDirectString() (s string, null bool, err error) {
	length, err := r.ReadUint32()
	if err != nil {
		return "", false, err
	}
	if length == 0 {
		return "", false, nil
	}
	if int(length) > r.Remaining() {
		return "", false, errs.ErrInvalidLength
	}
	if length == 1 && r.data[r.pos] == 0x00 {
		r.pos++
		return "", true, nil
	}
	s = string(r.data[r.pos : r.pos+int(length)])
	r.pos += int(length)

	return s, false, nil
}

// ReadString reads a string, treating the null encoding as empty.
func (r *FieldReader) ReadString() (string, error) {
	s, _, err := r.readNullableString()
	return s, err
}

// ReadNullableString reads a string, returning nil for the reserved null
// encoding.
func (r *FieldReader) ReadNullableString() (*string, error) {
	s, null, err := r.readNullableString()
	if err != nil {
		return nil, err
	}
	if null {
		return nil, nil
	}

	return &s, nil
}

func (r *FieldReader) readNullableString() (string, bool, error) {
	if format.SupportsDirectStrings(r.major) {
		return r.readDirectString()
	}

	token, err := r.ReadUint32()
	if err != nil {
		return "", false, err
	}
	if token == 0 {
		s, null, err := r.readDirectString()
		if err != nil || null {
			return s, null, err
		}
		r.table.Intern(s)

		return s, false, nil
	}

	s, err := r.table.Lookup(int(token))
	if err != nil {
		return "", false, err
	}

	// Legacy writers raced on the table and could re-emit the literal
	// bytes for a string whose token already existed. Peek for a direct
	// encoding of the same string and silently consume it if present.
	r.skipRedundantLiteral(s)

	return s, false, nil
}

// skipRedundantLiteral speculatively parses a direct string at the cursor
// and consumes it only if it re-encodes exactly s. The empty string is
// never compensated: its literal is a single 0x00 byte, which any
// following field starting with 0x00 would masquerade as.
func (r *FieldReader) skipRedundantLiteral(s string) {
	if s == "" {
		return
	}
	saved := r.pos
	dup, null, err := r.readDirectString()
	if err != nil || null || dup != s {
		r.pos = saved
	}
}

// ReadTime reads a timestamp: the time-zone offset in minutes then the
// tagged value sequence. TagSetReference and TagSetFactor update the
// shared codec state and continue the loop; every other tag produces the
// instant.
func (r *FieldReader) ReadTime() (time.Time, error) {
	offsetMin, err := r.ReadInt32()
	if err != nil {
		return time.Time{}, err
	}

	var nanos int64
	for {
		rawTag, err := r.ReadUint32()
		if err != nil {
			return time.Time{}, err
		}
		tag := format.TimestampTag(rawTag)

		switch {
		case tag == format.TagRawTicks:
			nanos, err = r.ReadInt64()
			if err != nil {
				return time.Time{}, err
			}

		case tag == format.TagNewReference:
			nanos, err = r.ReadInt64()
			if err != nil {
				return time.Time{}, err
			}
			r.table.SetReferenceNanos(nanos)

		case tag == format.TagSetReference:
			sec, err := r.ReadInt64()
			if err != nil {
				return time.Time{}, err
			}
			r.table.SetReferenceNanos(sec * int64(time.Second))

			continue

		case tag == format.TagSetFactor:
			f, err := r.ReadUint64()
			if err != nil {
				return time.Time{}, err
			}
			if f == 0 {
				return time.Time{}, errs.ErrInvalidTimestampTag
			}
			r.table.SetFactor(int64(f))

			continue

		case tag.IsDelta():
			count, err := r.ReadUint64()
			if err != nil {
				return time.Time{}, err
			}
			unit := tag.UnitNanos()
			if tag.UsesFactor() {
				unit = r.table.Factor()
				if unit <= 0 {
					return time.Time{}, errs.ErrInvalidTimestampTag
				}
			}
			ref, ok := r.table.referenceNanos()
			if !ok {
				return time.Time{}, errs.ErrInvalidTimestampTag
			}
			delta := int64(count) * unit
			if tag.Earlier() {
				delta = -delta
			}
			nanos = ref + delta

		default:
			return time.Time{}, errs.ErrInvalidTimestampTag
		}

		break
	}

	loc := time.UTC
	if offsetMin != 0 {
		loc = time.FixedZone("", int(offsetMin)*60)
	}

	return time.Unix(0, nanos).In(loc), nil
}

// readCount reads an array element count and sanity-checks it against the
// remaining bytes assuming at least minElemSize bytes per element, so a
// corrupt count fails fast instead of allocating.
func (r *FieldReader) readCount(minElemSize int) (int, error) {
	count, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	if minElemSize > 0 && int(count) > r.Remaining()/minElemSize {
		return 0, errs.ErrInvalidLength
	}

	return int(count), nil
}

// ReadBoolArray reads a bit-packed boolean array.
func (r *FieldReader) ReadBoolArray() ([]bool, error) {
	bitCount, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	words, err := r.ReadInt32Array()
	if err != nil {
		return nil, err
	}
	if int(bitCount) > len(words)*32 {
		return nil, errs.ErrInvalidLength
	}

	out := make([]bool, bitCount)
	for i := range out {
		out[i] = words[i/32]&(1<<(31-uint(i%32))) != 0
	}

	return out, nil
}

// ReadStringArray reads a count then each string.
func (r *FieldReader) ReadStringArray() ([]string, error) {
	count, err := r.readCount(1)
	if err != nil {
		return nil, err
	}
	out := make([]string, count)
	for i := range out {
		if out[i], err = r.ReadString(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// ReadInt32Array reads a count then each element.
func (r *FieldReader) ReadInt32Array() ([]int32, error) {
	count, err := r.readCount(1)
	if err != nil {
		return nil, err
	}
	out := make([]int32, count)
	for i := range out {
		if out[i], err = r.ReadInt32(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// ReadInt64Array reads a count then each element.
func (r *FieldReader) ReadInt64Array() ([]int64, error) {
	count, err := r.readCount(1)
	if err != nil {
		return nil, err
	}
	out := make([]int64, count)
	for i := range out {
		if out[i], err = r.ReadInt64(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// ReadUint32Array reads a count then each element.
func (r *FieldReader) ReadUint32Array() ([]uint32, error) {
	count, err := r.readCount(1)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := range out {
		if out[i], err = r.ReadUint32(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// ReadUint64Array reads a count then each element.
func (r *FieldReader) ReadUint64Array() ([]uint64, error) {
	count, err := r.readCount(1)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, count)
	for i := range out {
		if out[i], err = r.ReadUint64(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// ReadFloat64Array reads a count then each element.
func (r *FieldReader) ReadFloat64Array() ([]float64, error) {
	count, err := r.readCount(1)
	if err != nil {
		return nil, err
	}
	out := make([]float64, count)
	for i := range out {
		if out[i], err = r.ReadFloat64(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// ReadDurationArray reads a count then each element.
func (r *FieldReader) ReadDurationArray() ([]time.Duration, error) {
	count, err := r.readCount(1)
	if err != nil {
		return nil, err
	}
	out := make([]time.Duration, count)
	for i := range out {
		if out[i], err = r.ReadDuration(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// ReadTimeArray reads a count then each element.
func (r *FieldReader) ReadTimeArray() ([]time.Time, error) {
	count, err := r.readCount(2)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, count)
	for i := range out {
		if out[i], err = r.ReadTime(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// ReadGUIDArray reads a count then each element.
func (r *FieldReader) ReadGUIDArray() ([]uuid.UUID, error) {
	count, err := r.readCount(16)
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, count)
	for i := range out {
		if out[i], err = r.ReadGUID(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// ReadValue reads a value according to the declared field type. It is the
// definition-driven path used by generic packets and tooling.
func (r *FieldReader) ReadValue(ft format.FieldType) (any, error) {
	switch ft {
	case format.TypeBool:
		return r.ReadBool()
	case format.TypeString:
		return r.ReadString()
	case format.TypeInt32:
		return r.ReadInt32()
	case format.TypeInt64:
		return r.ReadInt64()
	case format.TypeUint32:
		return r.ReadUint32()
	case format.TypeUint64:
		return r.ReadUint64()
	case format.TypeFloat64:
		return r.ReadFloat64()
	case format.TypeDuration:
		return r.ReadDuration()
	case format.TypeTimestamp:
		return r.ReadTime()
	case format.TypeGUID:
		return r.ReadGUID()
	case format.TypeBoolArray:
		return r.ReadBoolArray()
	case format.TypeStringArray:
		return r.ReadStringArray()
	case format.TypeInt32Array:
		return r.ReadInt32Array()
	case format.TypeInt64Array:
		return r.ReadInt64Array()
	case format.TypeUint32Array:
		return r.ReadUint32Array()
	case format.TypeUint64Array:
		return r.ReadUint64Array()
	case format.TypeFloat64Array:
		return r.ReadFloat64Array()
	case format.TypeDurationArray:
		return r.ReadDurationArray()
	case format.TypeTimestampArray:
		return r.ReadTimeArray()
	case format.TypeGUIDArray:
		return r.ReadGUIDArray()
	default:
		return nil, fmt.Errorf("%w: 0x%02x", errs.ErrInvalidFieldType, uint8(ft))
	}
}
