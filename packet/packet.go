package packet

import (
	"github.com/google/uuid"

	"github.com/glf-dev/glf/encoding"
)

// Packet is one serializable record: a log message, a metric sample, a
// session summary. Implementations declare their schema ahead of time via
// Definition; two packets of the same type must return definitions that
// serialize to identical bytes.
//
// A packet is handed to the Writer once per logical write and must not be
// mutated after its bytes are committed to the stream.
type Packet interface {
	// Definition returns the packet's schema. The Writer derives the
	// cacheable and dynamic flags from the instance, so implementations
	// only declare name, version and fields.
	Definition() *Definition

	// WriteFields encodes the packet's field values in definition order.
	WriteFields(w *encoding.FieldWriter) error

	// ReadFields decodes the packet's field values in definition order.
	ReadFields(r *encoding.FieldReader) error
}

// Dependent is implemented by packets that reference other packets which
// must be serialized first (a sample referencing its metric definition).
// The Writer writes every required packet, recursively, before the packet
// itself.
type Dependent interface {
	Packet

	// RequiredPackets returns the packets this one depends on.
	RequiredPackets() []Packet
}

// Cacheable is implemented by packets whose identity is deduplicated per
// stream: once an instance's bytes are committed it is never serialized
// again on that stream, even when referenced as a dependency.
type Cacheable interface {
	Packet

	// InstanceID identifies this instance across the stream.
	InstanceID() uuid.UUID
}

// Dynamic is implemented by polymorphic packet families whose concrete
// schema is chosen per instance. The dynamic type name substitutes for
// the definition's static name, so each distinct name gets its own
// definition and index on the stream.
type Dynamic interface {
	Packet

	// DynamicTypeName returns the stable per-instance type name.
	DynamicTypeName() string
}
