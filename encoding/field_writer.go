package encoding

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glf-dev/glf/errs"
	"github.com/glf-dev/glf/format"
	"github.com/glf-dev/glf/internal/pool"
)

// refWindowNanos is the largest delta the writer will encode against the
// current reference before it advances the reference with TagSetReference.
// Any value decodes correctly; one hour keeps delta varints short for
// clustered telemetry without churning the reference.
const refWindowNanos = int64(time.Hour)

// FieldWriter encodes typed field values into a pooled buffer.
//
// A FieldWriter is created per packet write attempt and shares the
// stream's StringTable, so string tokens and the timestamp reference stay
// positionally synchronized with the matching FieldReader. Not safe for
// concurrent use.
type FieldWriter struct {
	buf   *pool.ByteBuffer
	table *StringTable
	major int
	minor int

	pendingFactor int64
	owned         bool
}

// NewFieldWriter creates a FieldWriter over a buffer from the packet pool.
// Release must be called to return the buffer.
func NewFieldWriter(table *StringTable, major, minor int) *FieldWriter {
	return &FieldWriter{
		buf:   pool.GetPacketBuffer(),
		table: table,
		major: major,
		minor: minor,
		owned: true,
	}
}

// NewFieldWriterBuffer creates a FieldWriter appending to an existing
// buffer owned by the caller.
func NewFieldWriterBuffer(buf *pool.ByteBuffer, table *StringTable, major, minor int) *FieldWriter {
	return &FieldWriter{
		buf:   buf,
		table: table,
		major: major,
		minor: minor,
	}
}

// Bytes returns the encoded bytes written so far.
func (w *FieldWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of encoded bytes written so far.
func (w *FieldWriter) Len() int {
	return w.buf.Len()
}

// Reset discards the written bytes, keeping the buffer.
func (w *FieldWriter) Reset() {
	w.buf.Reset()
}

// Release returns a pooled buffer. No-op for caller-owned buffers.
func (w *FieldWriter) Release() {
	if w.owned {
		pool.PutPacketBuffer(w.buf)
		w.buf = nil
	}
}

// Table returns the shared string table.
func (w *FieldWriter) Table() *StringTable {
	return w.table
}

// Version returns the protocol version the writer encodes for.
func (w *FieldWriter) Version() (major, minor int) {
	return w.major, w.minor
}

// WriteBool writes a boolean as a single byte, 1 for true.
func (w *FieldWriter) WriteBool(v bool) {
	b := byte(0)
	if v {
		b = 1
	}
	_ = w.buf.WriteByte(b)
}

// WriteUint32 writes an unsigned 32-bit varint.
func (w *FieldWriter) WriteUint32(v uint32) {
	w.buf.B = AppendUvarint32(w.buf.B, v)
}

// WriteUint64 writes an unsigned 64-bit varint (at most 9 bytes).
func (w *FieldWriter) WriteUint64(v uint64) {
	w.buf.B = AppendUvarint64(w.buf.B, v)
}

// WriteInt32 writes a signed 32-bit varint (separate sign and magnitude).
func (w *FieldWriter) WriteInt32(v int32) {
	w.buf.B = AppendVarint32(w.buf.B, v)
}

// WriteInt64 writes a signed 64-bit varint (separate sign and magnitude).
func (w *FieldWriter) WriteInt64(v int64) {
	w.buf.B = AppendVarint64(w.buf.B, v)
}

// WriteFloat64 writes a double using the high-bits-first encoding.
func (w *FieldWriter) WriteFloat64(v float64) {
	w.buf.B = AppendFloat64(w.buf.B, v)
}

// WriteDuration writes a time span as signed varint nanoseconds.
func (w *FieldWriter) WriteDuration(v time.Duration) {
	w.buf.B = AppendVarint64(w.buf.B, int64(v))
}

// WriteGUID writes a GUID as its 16 raw bytes.
func (w *FieldWriter) WriteGUID(v uuid.UUID) {
	_, _ = w.buf.Write(v[:])
}

// appendDirectString appends the inline string form: varint byte length
// then UTF-8 bytes. A zero length means the empty string; the reserved
// {1, 0x00} form means null and is written by WriteNullableString only.
func (w *FieldWriter) appendDirectString(s string) {
	w.buf.B = AppendUvarint32(w.buf.B, uint32(len(s)))
	w.buf.B = append(w.buf.B, s...)
}

// WriteString writes a non-null string. On the current protocol strings
// are written inline; protocol 1 streams dedup them through the shared
// string table, writing token 0 plus the literal on first occurrence and
// the bare 1-based token afterwards.
func (w *FieldWriter) WriteString(s string) {
	if format.SupportsDirectStrings(w.major) {
		w.appendDirectString(s)
		return
	}

	token, isNew := w.table.Intern(s)
	if isNew {
		w.buf.B = AppendUvarint32(w.buf.B, 0)
		w.appendDirectString(s)
		return
	}
	w.buf.B = AppendUvarint32(w.buf.B, uint32(token))
}

// WriteNullableString writes s, using the reserved {1, 0x00} encoding when
// s is nil. Null is distinct from the empty string on the wire. Protocol 1
// streams prefix the null form with the "new string" token so the reader's
// token-first parse holds; null is never interned.
func (w *FieldWriter) WriteNullableString(s *string) {
	if s == nil {
		if !format.SupportsDirectStrings(w.major) {
			w.buf.B = AppendUvarint32(w.buf.B, 0)
		}
		w.buf.B = append(w.buf.B, 1, 0x00)

		return
	}
	w.WriteString(*s)
}

// SetTimeFactor requests the dynamic delta divisor for subsequent
// timestamps. The divisor is emitted on the wire (TagSetFactor) by the
// next WriteTime call; a zero duration clears the request.
func (w *FieldWriter) SetTimeFactor(unit time.Duration) {
	w.pendingFactor = int64(unit)
}

// WriteTime writes a timestamp: the time-zone offset in minutes as a
// signed varint, then one or more tagged values. The first timestamp on a
// stream establishes the shared reference (TagNewReference); later ones
// delta-encode against it in the coarsest unit that divides the delta,
// advancing the reference (TagSetReference) when the delta leaves the
// reference window.
func (w *FieldWriter) WriteTime(t time.Time) {
	_, offsetSec := t.Zone()
	w.buf.B = AppendVarint32(w.buf.B, int32(offsetSec/60))

	nanos := t.UnixNano()

	if w.pendingFactor != 0 && w.pendingFactor != w.table.Factor() {
		w.buf.B = AppendUvarint32(w.buf.B, uint32(format.TagSetFactor))
		w.buf.B = AppendUvarint64(w.buf.B, uint64(w.pendingFactor))
		w.table.SetFactor(w.pendingFactor)
	}

	ref, ok := w.table.referenceNanos()
	if !ok {
		w.buf.B = AppendUvarint32(w.buf.B, uint32(format.TagNewReference))
		w.buf.B = AppendVarint64(w.buf.B, nanos)
		w.table.SetReferenceNanos(nanos)

		return
	}

	delta := nanos - ref
	if delta > refWindowNanos || delta < -refWindowNanos {
		// Advance the reference to the whole second at or before t.
		sec := floorDiv(nanos, int64(time.Second))
		w.buf.B = AppendUvarint32(w.buf.B, uint32(format.TagSetReference))
		w.buf.B = AppendVarint64(w.buf.B, sec)
		ref = sec * int64(time.Second)
		w.table.SetReferenceNanos(ref)
		delta = nanos - ref
	}

	tag, count, ok := deltaEncoding(delta, w.table.Factor())
	if !ok {
		w.buf.B = AppendUvarint32(w.buf.B, uint32(format.TagRawTicks))
		w.buf.B = AppendVarint64(w.buf.B, nanos)

		return
	}
	w.buf.B = AppendUvarint32(w.buf.B, uint32(tag))
	w.buf.B = AppendUvarint64(w.buf.B, count)
}

// deltaEncoding picks the delta tag and unit count for a nanosecond delta
// from the reference. The coarsest fixed unit that evenly divides the
// delta wins; the dynamic factor is preferred when it produces a smaller
// count. A delta no unit divides cannot be delta-encoded.
func deltaEncoding(delta, factor int64) (format.TimestampTag, uint64, bool) {
	mag := delta
	earlier := delta < 0
	if earlier {
		mag = -mag
	}

	bestTag := format.TimestampTag(0)
	bestCount := uint64(0)
	found := false
	for i, unit := range format.DeltaUnits {
		if mag%unit == 0 {
			bestTag = format.TagLaterSecond + format.TimestampTag(i)
			bestCount = uint64(mag / unit)
			found = true

			break
		}
	}
	if factor > 0 && mag%factor == 0 {
		count := uint64(mag / factor)
		if !found || count < bestCount {
			bestTag = format.TagLaterFactor
			bestCount = count
			found = true
		}
	}
	if !found {
		return 0, 0, false
	}
	if earlier {
		bestTag += format.TagEarlierSecond - format.TagLaterSecond
	}

	return bestTag, bestCount, true
}

// floorDiv divides rounding toward negative infinity, so pre-epoch
// instants truncate to the second at or before them.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}

	return q
}

// WriteBoolArray bit-packs booleans 32 per int32 word, most significant
// bit first, writes the true bit count (the number of booleans, not the
// word count) and then the words using the standard int32 array encoding.
func (w *FieldWriter) WriteBoolArray(v []bool) {
	w.buf.B = AppendUvarint32(w.buf.B, uint32(len(v)))

	words := make([]int32, (len(v)+31)/32)
	for i, b := range v {
		if b {
			words[i/32] |= 1 << (31 - uint(i%32))
		}
	}
	w.WriteInt32Array(words)
}

// WriteStringArray writes a count then each string.
func (w *FieldWriter) WriteStringArray(v []string) {
	w.buf.B = AppendUvarint32(w.buf.B, uint32(len(v)))
	for _, s := range v {
		w.WriteString(s)
	}
}

// WriteInt32Array writes a count then each element.
func (w *FieldWriter) WriteInt32Array(v []int32) {
	w.buf.B = AppendUvarint32(w.buf.B, uint32(len(v)))
	for _, e := range v {
		w.WriteInt32(e)
	}
}

// WriteInt64Array writes a count then each element.
func (w *FieldWriter) WriteInt64Array(v []int64) {
	w.buf.B = AppendUvarint32(w.buf.B, uint32(len(v)))
	for _, e := range v {
		w.WriteInt64(e)
	}
}

// WriteUint32Array writes a count then each element.
func (w *FieldWriter) WriteUint32Array(v []uint32) {
	w.buf.B = AppendUvarint32(w.buf.B, uint32(len(v)))
	for _, e := range v {
		w.WriteUint32(e)
	}
}

// WriteUint64Array writes a count then each element.
func (w *FieldWriter) WriteUint64Array(v []uint64) {
	w.buf.B = AppendUvarint32(w.buf.B, uint32(len(v)))
	for _, e := range v {
		w.WriteUint64(e)
	}
}

// WriteFloat64Array writes a count then each element.
func (w *FieldWriter) WriteFloat64Array(v []float64) {
	w.buf.B = AppendUvarint32(w.buf.B, uint32(len(v)))
	for _, e := range v {
		w.WriteFloat64(e)
	}
}

// WriteDurationArray writes a count then each element.
func (w *FieldWriter) WriteDurationArray(v []time.Duration) {
	w.buf.B = AppendUvarint32(w.buf.B, uint32(len(v)))
	for _, e := range v {
		w.WriteDuration(e)
	}
}

// WriteTimeArray writes a count then each element.
func (w *FieldWriter) WriteTimeArray(v []time.Time) {
	w.buf.B = AppendUvarint32(w.buf.B, uint32(len(v)))
	for _, e := range v {
		w.WriteTime(e)
	}
}

// WriteGUIDArray writes a count then each element.
func (w *FieldWriter) WriteGUIDArray(v []uuid.UUID) {
	w.buf.B = AppendUvarint32(w.buf.B, uint32(len(v)))
	for _, e := range v {
		w.WriteGUID(e)
	}
}

// WriteValue writes v according to the declared field type. It is the
// definition-driven path used by generic packets and tooling.
func (w *FieldWriter) WriteValue(ft format.FieldType, v any) error {
	switch ft {
	case format.TypeBool:
		if x, ok := v.(bool); ok {
			w.WriteBool(x)
			return nil
		}
	case format.TypeString:
		switch x := v.(type) {
		case string:
			w.WriteString(x)
			return nil
		case *string:
			w.WriteNullableString(x)
			return nil
		case nil:
			w.WriteNullableString(nil)
			return nil
		}
	case format.TypeInt32:
		if x, ok := v.(int32); ok {
			w.WriteInt32(x)
			return nil
		}
	case format.TypeInt64:
		if x, ok := v.(int64); ok {
			w.WriteInt64(x)
			return nil
		}
	case format.TypeUint32:
		if x, ok := v.(uint32); ok {
			w.WriteUint32(x)
			return nil
		}
	case format.TypeUint64:
		if x, ok := v.(uint64); ok {
			w.WriteUint64(x)
			return nil
		}
	case format.TypeFloat64:
		if x, ok := v.(float64); ok {
			w.WriteFloat64(x)
			return nil
		}
	case format.TypeDuration:
		if x, ok := v.(time.Duration); ok {
			w.WriteDuration(x)
			return nil
		}
	case format.TypeTimestamp:
		if x, ok := v.(time.Time); ok {
			w.WriteTime(x)
			return nil
		}
	case format.TypeGUID:
		if x, ok := v.(uuid.UUID); ok {
			w.WriteGUID(x)
			return nil
		}
	case format.TypeBoolArray:
		if x, ok := v.([]bool); ok {
			w.WriteBoolArray(x)
			return nil
		}
	case format.TypeStringArray:
		if x, ok := v.([]string); ok {
			w.WriteStringArray(x)
			return nil
		}
	case format.TypeInt32Array:
		if x, ok := v.([]int32); ok {
			w.WriteInt32Array(x)
			return nil
		}
	case format.TypeInt64Array:
		if x, ok := v.([]int64); ok {
			w.WriteInt64Array(x)
			return nil
		}
	case format.TypeUint32Array:
		if x, ok := v.([]uint32); ok {
			w.WriteUint32Array(x)
			return nil
		}
	case format.TypeUint64Array:
		if x, ok := v.([]uint64); ok {
			w.WriteUint64Array(x)
			return nil
		}
	case format.TypeFloat64Array:
		if x, ok := v.([]float64); ok {
			w.WriteFloat64Array(x)
			return nil
		}
	case format.TypeDurationArray:
		if x, ok := v.([]time.Duration); ok {
			w.WriteDurationArray(x)
			return nil
		}
	case format.TypeTimestampArray:
		if x, ok := v.([]time.Time); ok {
			w.WriteTimeArray(x)
			return nil
		}
	case format.TypeGUIDArray:
		if x, ok := v.([]uuid.UUID); ok {
			w.WriteGUIDArray(x)
			return nil
		}
	default:
		return errs.ErrInvalidFieldType
	}

	return fmt.Errorf("value of type %T does not match field type %s", v, ft)
}
