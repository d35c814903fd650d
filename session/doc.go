// Package session wraps a packet stream in the GLF file framing: the
// fixed 20-byte file header, the variable-length session header and the
// (optionally gzip-compressed) packet stream.
//
// The Writer keeps a live session file valid on disk: every Flush pushes
// the buffered packet bytes (with a compression sync point on protocol 2)
// and rewrites the session header in place so counters, timestamps and
// status stay current. Close marks the terminal status and finalizes the
// compression framing. The Reader validates the headers and iterates the
// decoded packets.
package session
