// Package encoding implements the GLF field codec: the byte-level
// encoding of primitive and array values used inside packets.
//
// The codec is tuned for telemetry data, where magnitudes are small,
// strings repeat and timestamps cluster:
//
//   - Unsigned integers use 7-bit little-endian varints; the uint64 form
//     caps at 9 bytes by using all 8 bits of the final byte.
//   - Signed integers store sign and magnitude separately (6 value bits,
//     a continuation bit and a sign bit in the first byte). This is not
//     zig-zag encoding and must stay byte-compatible with existing files.
//   - Doubles reinterpret the IEEE-754 bit pattern and walk it from the
//     high-order end, so "round" decimal values with long runs of trailing
//     zero mantissa bits encode in a few bytes.
//   - Timestamps delta-encode against a rolling reference time shared
//     through the StringTable, with a tagged-union wire form.
//   - Strings are written inline on the current protocol; protocol 1
//     files dedup strings through the shared StringTable.
//
// FieldWriter appends values to a pooled buffer; FieldReader is a cursor
// over one complete packet's bytes and never sees buffer boundaries.
package encoding
