package packet

import (
	"fmt"

	"github.com/glf-dev/glf/encoding"
)

// GenericPacket decodes any packet whose type has no registered
// constructor, holding the field values by name. The definition replay
// must consume the bytes either way, so unknown types survive a read
// instead of corrupting the stream position.
//
// A generic packet does not recover cacheable identity semantics: the
// instance ID of an unknown cacheable type is just another field. Callers
// that need reference resolution must register a concrete constructor.
type GenericPacket struct {
	def    *Definition
	values map[string]any
}

var _ Packet = (*GenericPacket)(nil)

// NewGenericPacket creates a generic packet bound to a definition.
func NewGenericPacket(def *Definition) *GenericPacket {
	return &GenericPacket{
		def:    def,
		values: make(map[string]any, len(def.Fields)),
	}
}

// Definition returns the schema this packet was decoded with.
func (p *GenericPacket) Definition() *Definition {
	return p.def
}

// Value returns the decoded value of the named field.
func (p *GenericPacket) Value(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// SetValue sets the named field. The field must exist in the definition;
// the value's type is checked at write time.
func (p *GenericPacket) SetValue(name string, v any) error {
	for _, f := range p.def.Fields {
		if f.Name == name {
			p.values[name] = v
			return nil
		}
	}

	return fmt.Errorf("packet %q has no field %q", p.def.Name, name)
}

// WriteFields encodes the held values in definition order.
func (p *GenericPacket) WriteFields(w *encoding.FieldWriter) error {
	for _, f := range p.def.Fields {
		if err := w.WriteValue(f.Type, p.values[f.Name]); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}

	return nil
}

// ReadFields decodes every field declared by the definition.
func (p *GenericPacket) ReadFields(r *encoding.FieldReader) error {
	for _, f := range p.def.Fields {
		v, err := r.ReadValue(f.Type)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		p.values[f.Name] = v
	}

	return nil
}
