// Package compress provides the stream compression framing for the GLF
// packet stream.
//
// The file layout admits exactly one compressed framing: protocol major
// version 2 and later wrap the packet stream in gzip; version 1 streams
// are uncompressed. The Codec interface keeps the selection in one place
// (one file per codec) so a future format revision with a codec byte can
// add algorithms without touching the session layer.
package compress
