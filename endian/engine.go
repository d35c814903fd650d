// Package endian provides byte order utilities for the fixed-width parts
// of the GLF format (file header and session header fields).
//
// The packet payload itself is varint-based and byte-order free; only the
// header structures use fixed-width little-endian fields. The EndianEngine
// interface combines ByteOrder and AppendByteOrder from encoding/binary so
// header codecs can both parse in place and append without temp buffers.
package endian

import (
	"encoding/binary"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary
// into a single interface. binary.LittleEndian and binary.BigEndian both
// satisfy it.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine. GLF headers are
// always little-endian on the wire.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
