// Package packet implements the GLF packet layer: self-describing,
// length-prefixed records sharing one stream.
//
// A packet type's schema (its Definition) is written to the stream once,
// the first time a packet of that type appears; every later packet of the
// same type carries only the definition's small integer index. Cacheable
// packets go further: a given instance is serialized at most once per
// stream, no matter how many other packets reference it.
//
// The Writer is transactional per packet: field bytes are staged in a
// scratch buffer and appended to the stream only once the whole packet
// has encoded successfully, with definition-cache and string-table
// additions rolled back on failure. The read side pairs a BufferManager,
// which reassembles length-prefixed packets from fixed-size buffers
// (including prefixes and payloads that span buffer boundaries), with a
// Reader that replays definitions and decodes fields.
package packet
