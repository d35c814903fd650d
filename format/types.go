// Package format defines the wire-level constants of the GLF session file
// format: field types, timestamp encoding tags, session status values and
// the protocol version surface.
package format

type (
	FieldType       uint8
	TimestampTag    uint8
	SessionStatus   uint32
	CompressionType uint8
)

// Field types as they appear in packet definitions on the wire.
//
// Array types are the scalar type with the high bit set, so
// FieldType.Elem() recovers the element type without a lookup table.
const (
	TypeBool      FieldType = 0x01
	TypeString    FieldType = 0x02
	TypeInt32     FieldType = 0x03
	TypeInt64     FieldType = 0x04
	TypeUint32    FieldType = 0x05
	TypeUint64    FieldType = 0x06
	TypeFloat64   FieldType = 0x07
	TypeDuration  FieldType = 0x08
	TypeTimestamp FieldType = 0x09
	TypeGUID      FieldType = 0x0A

	TypeBoolArray      FieldType = TypeBool | arrayFlag
	TypeStringArray    FieldType = TypeString | arrayFlag
	TypeInt32Array     FieldType = TypeInt32 | arrayFlag
	TypeInt64Array     FieldType = TypeInt64 | arrayFlag
	TypeUint32Array    FieldType = TypeUint32 | arrayFlag
	TypeUint64Array    FieldType = TypeUint64 | arrayFlag
	TypeFloat64Array   FieldType = TypeFloat64 | arrayFlag
	TypeDurationArray  FieldType = TypeDuration | arrayFlag
	TypeTimestampArray FieldType = TypeTimestamp | arrayFlag
	TypeGUIDArray      FieldType = TypeGUID | arrayFlag

	arrayFlag FieldType = 0x80
)

// IsArray reports whether t is a 1-D array type.
func (t FieldType) IsArray() bool {
	return t&arrayFlag != 0
}

// Elem returns the element type of an array type. For scalar types it
// returns the type itself.
func (t FieldType) Elem() FieldType {
	return t &^ arrayFlag
}

// Valid reports whether t is one of the defined field types.
func (t FieldType) Valid() bool {
	e := t.Elem()

	return e >= TypeBool && e <= TypeGUID
}

func (t FieldType) String() string {
	name := "Unknown"
	switch t.Elem() {
	case TypeBool:
		name = "Bool"
	case TypeString:
		name = "String"
	case TypeInt32:
		name = "Int32"
	case TypeInt64:
		name = "Int64"
	case TypeUint32:
		name = "Uint32"
	case TypeUint64:
		name = "Uint64"
	case TypeFloat64:
		name = "Float64"
	case TypeDuration:
		name = "Duration"
	case TypeTimestamp:
		name = "Timestamp"
	case TypeGUID:
		name = "GUID"
	}
	if t.IsArray() {
		return name + "Array"
	}

	return name
}

// Timestamp encoding tags. A timestamp value on the wire is a signed
// time-zone offset (minutes) followed by one or more tagged values.
// TagSetReference and TagSetFactor update shared codec state and are
// always followed by another tagged value; every other tag terminates
// the sequence.
const (
	TagRawTicks     TimestampTag = 0 // absolute value, no reference involved
	TagNewReference TimestampTag = 1 // absolute value, also becomes the new reference
	TagSetReference TimestampTag = 2 // advances the reference (whole seconds), value follows
	TagSetFactor    TimestampTag = 3 // sets the generic delta divisor, value follows

	// Delta-from-reference tags: the instant is later than the reference.
	TagLaterSecond TimestampTag = 4
	TagLater100ms  TimestampTag = 5
	TagLater16ms   TimestampTag = 6
	TagLater10ms   TimestampTag = 7
	TagLater1ms    TimestampTag = 8
	TagLater100us  TimestampTag = 9
	TagLater10us   TimestampTag = 10
	TagLater1us    TimestampTag = 11
	TagLaterFactor TimestampTag = 12

	// Delta-from-reference tags: the instant is earlier than the reference.
	TagEarlierSecond TimestampTag = 13
	TagEarlier100ms  TimestampTag = 14
	TagEarlier16ms   TimestampTag = 15
	TagEarlier10ms   TimestampTag = 16
	TagEarlier1ms    TimestampTag = 17
	TagEarlier100us  TimestampTag = 18
	TagEarlier10us   TimestampTag = 19
	TagEarlier1us    TimestampTag = 20
	TagEarlierFactor TimestampTag = 21
)

// DeltaUnits holds the nanosecond size of each fixed delta unit, indexed
// in tag order (second first). The dynamic "factor" unit is not listed;
// its divisor travels on the wire via TagSetFactor.
var DeltaUnits = [8]int64{
	1_000_000_000, // 1s
	100_000_000,   // 100ms
	16_000_000,    // 16ms, the timer resolution of the originating agents
	10_000_000,    // 10ms
	1_000_000,     // 1ms
	100_000,       // 100us
	10_000,        // 10us
	1_000,         // 1us
}

// IsDelta reports whether the tag encodes a delta from the reference time.
func (t TimestampTag) IsDelta() bool {
	return t >= TagLaterSecond && t <= TagEarlierFactor
}

// Earlier reports whether a delta tag means earlier than the reference.
func (t TimestampTag) Earlier() bool {
	return t >= TagEarlierSecond && t <= TagEarlierFactor
}

// UsesFactor reports whether a delta tag uses the dynamic factor divisor.
func (t TimestampTag) UsesFactor() bool {
	return t == TagLaterFactor || t == TagEarlierFactor
}

// UnitNanos returns the nanosecond size of a fixed-unit delta tag.
// Factor tags have no fixed unit and return 0.
func (t TimestampTag) UnitNanos() int64 {
	if !t.IsDelta() || t.UsesFactor() {
		return 0
	}
	if t.Earlier() {
		return DeltaUnits[t-TagEarlierSecond]
	}

	return DeltaUnits[t-TagLaterSecond]
}

// Session status values stored in the session header.
const (
	StatusUnknown SessionStatus = 0
	StatusRunning SessionStatus = 1
	StatusNormal  SessionStatus = 2
	StatusCrashed SessionStatus = 3
)

func (s SessionStatus) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusNormal:
		return "Normal"
	case StatusCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// Compression of the packet stream. The file layout admits exactly one
// compressed framing; the codec is implied by the protocol major version
// rather than stored separately.
const (
	CompressionNone CompressionType = 0x1
	CompressionGzip CompressionType = 0x2
)

// Protocol versions.
const (
	// MajorVersionLegacy is the original uncompressed protocol with
	// string-table string encoding.
	MajorVersionLegacy = 1

	// MajorVersion is the current protocol: gzip packet stream, direct
	// string encoding, extended session header.
	MajorVersion = 2
	MinorVersion = 1
)

// SupportsDirectStrings reports whether strings are written inline rather
// than through the shared string table.
func SupportsDirectStrings(major int) bool {
	return major > 1
}

// SupportsCompression reports whether the packet stream is gzip-framed.
func SupportsCompression(major int) bool {
	return major >= 2
}

// SupportsExtendedHeader reports whether the session header carries the
// computer id, environment/promotion fields and multi-file fragment info.
func SupportsExtendedHeader(major int) bool {
	return major >= 2
}
