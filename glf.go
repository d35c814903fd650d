// Package glf implements the GLF session file format: a packet-oriented,
// self-describing binary format for durably recording structured log and
// metric events.
//
// A session file is a sequence of length-prefixed packets preceded by a
// fixed file header and a variable-length session header. Packet types
// describe themselves on first use (a schema is written once per type per
// stream, then referenced by index), repeated strings dedup through a
// per-stream table on the legacy protocol, timestamps delta-encode
// against a rolling reference, and cacheable packets referenced by many
// records serialize at most once per stream.
//
// # Writing a session
//
//	header := &section.SessionHeader{
//	    SessionID:   uuid.New(),
//	    Product:     "Widget",
//	    Application: "widget-server",
//	}
//	w, err := glf.NewSessionWriter(file, header)
//	if err != nil {
//	    return err
//	}
//	defer w.Close(false)
//
//	if err := w.Write(samplePacket); err != nil {
//	    return err
//	}
//	if err := w.Flush(); err != nil { // file is valid on disk from here
//	    return err
//	}
//	return w.Close(true)
//
// # Reading a session
//
//	r, err := glf.OpenSession(file, glf.WithPacketType("Widget.Sample", newSamplePacket))
//	if err != nil {
//	    return err
//	}
//	for p, err := range r.Packets() {
//	    if err != nil {
//	        return err
//	    }
//	    handle(p)
//	}
//
// Packet types implement packet.Packet with an explicit, ahead-of-time
// schema declaration; see the packet package. This package provides
// convenience wrappers for the common open/create paths; for fine-grained
// control use the session, packet and encoding packages directly.
package glf

import (
	"io"

	"github.com/glf-dev/glf/packet"
	"github.com/glf-dev/glf/section"
	"github.com/glf-dev/glf/session"
)

// NewSessionWriter creates a session file writer over f, writing both
// headers immediately. See session.NewWriter.
func NewSessionWriter(f io.WriteSeeker, header *section.SessionHeader, opts ...session.WriterOption) (*session.Writer, error) {
	return session.NewWriter(f, header, opts...)
}

// OpenSession opens a session stream for reading, validating its headers.
// Packet constructors registered via WithPacketType decode to concrete
// types; everything else decodes to *packet.GenericPacket.
func OpenSession(src io.Reader, opts ...OpenOption) (*session.Reader, error) {
	cfg := openConfig{registry: packet.NewRegistry()}
	for _, opt := range opts {
		opt(&cfg)
	}

	readerOpts := []session.ReaderOption{session.WithRegistry(cfg.registry)}
	readerOpts = append(readerOpts, cfg.readerOpts...)

	return session.NewReader(src, readerOpts...)
}

type openConfig struct {
	registry   *packet.Registry
	readerOpts []session.ReaderOption
}

// OpenOption configures OpenSession.
type OpenOption func(*openConfig)

// WithPacketType registers a constructor for a packet type name.
func WithPacketType(name string, factory packet.Factory) OpenOption {
	return func(cfg *openConfig) {
		cfg.registry.Register(name, factory)
	}
}

// WithReaderOptions forwards options to the underlying session reader.
func WithReaderOptions(opts ...session.ReaderOption) OpenOption {
	return func(cfg *openConfig) {
		cfg.readerOpts = append(cfg.readerOpts, opts...)
	}
}
