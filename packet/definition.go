package packet

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/glf-dev/glf/encoding"
	"github.com/glf-dev/glf/errs"
	"github.com/glf-dev/glf/format"
)

// Field is one named, typed field of a packet definition.
type Field struct {
	Name string
	Type format.FieldType
}

// Definition is a packet type's schema: an ordered list of typed fields
// plus the flags the stream needs to decode instances. Within one stream
// a definition's index never changes and always resolves to the same
// definition.
type Definition struct {
	Name      string
	Version   int32
	Cacheable bool
	Dynamic   bool
	Fields    []Field
}

// NewDefinition creates a definition with the given type name, version
// and fields. Flags are derived per instance by the Writer.
func NewDefinition(name string, version int32, fields ...Field) *Definition {
	return &Definition{
		Name:    name,
		Version: version,
		Fields:  fields,
	}
}

const (
	flagCacheable = 0x01
	flagDynamic   = 0x02
)

// definitionFor resolves the wire definition for a packet instance:
// the declared schema with the cacheable and dynamic flags derived from
// the instance, and the dynamic type name substituted when present.
// The declared definition is never mutated.
func definitionFor(p Packet) *Definition {
	decl := p.Definition()
	def := &Definition{
		Name:    decl.Name,
		Version: decl.Version,
		Fields:  decl.Fields,
	}
	if _, ok := p.(Cacheable); ok {
		def.Cacheable = true
	}
	if d, ok := p.(Dynamic); ok {
		def.Dynamic = true
		def.Name = d.DynamicTypeName()
	}

	return def
}

// Fingerprint returns a 64-bit identity for the definition, computed over
// its canonical serialization. Equal fingerprints are treated as equal
// definitions by the definition cache.
func (d *Definition) Fingerprint() uint64 {
	buf := make([]byte, 0, 64)
	buf = d.appendCanonical(buf)

	return xxhash.Sum64(buf)
}

func (d *Definition) appendCanonical(buf []byte) []byte {
	buf = encoding.AppendUvarint32(buf, uint32(len(d.Name)))
	buf = append(buf, d.Name...)
	buf = encoding.AppendVarint32(buf, d.Version)
	buf = append(buf, d.flags())
	buf = encoding.AppendUvarint32(buf, uint32(len(d.Fields)))
	for _, f := range d.Fields {
		buf = encoding.AppendUvarint32(buf, uint32(len(f.Name)))
		buf = append(buf, f.Name...)
		buf = append(buf, byte(f.Type))
	}

	return buf
}

func (d *Definition) flags() byte {
	var b byte
	if d.Cacheable {
		b |= flagCacheable
	}
	if d.Dynamic {
		b |= flagDynamic
	}

	return b
}

// write emits the full definition: name, version, flags, then each field
// as name plus type byte. Emitted once per type per stream, immediately
// after the type index of the first packet of that type.
func (d *Definition) write(w *encoding.FieldWriter) {
	w.WriteString(d.Name)
	w.WriteInt32(d.Version)
	w.WriteUint32(uint32(d.flags()))
	w.WriteUint32(uint32(len(d.Fields)))
	for _, f := range d.Fields {
		w.WriteString(f.Name)
		w.WriteUint32(uint32(f.Type))
	}
}

// readDefinition parses a full definition from the stream.
func readDefinition(r *encoding.FieldReader) (*Definition, error) {
	name, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	version, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	flags, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	count, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if int(count) > r.Remaining() {
		return nil, errs.ErrInvalidLength
	}

	def := &Definition{
		Name:      name,
		Version:   version,
		Cacheable: flags&flagCacheable != 0,
		Dynamic:   flags&flagDynamic != 0,
		Fields:    make([]Field, count),
	}
	for i := range def.Fields {
		fname, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		ftype, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		ft := format.FieldType(ftype)
		if !ft.Valid() {
			return nil, fmt.Errorf("%w: field %q type 0x%02x", errs.ErrInvalidFieldType, fname, ftype)
		}
		def.Fields[i] = Field{Name: fname, Type: ft}
	}

	return def, nil
}
