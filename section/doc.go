// Package section implements the fixed-then-variable header structures
// that precede the packet stream in a GLF session file: the 20-byte file
// header and the variable-length session header.
//
// The file header identifies the format (magic type code), carries the
// protocol version and records the byte offset at which packet data
// begins. The session header carries the session metadata and is designed
// for idempotent in-place rewrite while the session is live, so its
// serialized size must stay constant for the life of a session.
package section
