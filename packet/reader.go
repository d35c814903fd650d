package packet

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/glf-dev/glf/encoding"
)

// Factory constructs an empty packet ready for ReadFields.
type Factory func() Packet

// Registry maps packet type names to constructors. Types without a
// registered constructor decode into a GenericPacket.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register associates a constructor with a packet type name, replacing
// any previous registration.
func (g *Registry) Register(name string, factory Factory) {
	g.factories[name] = factory
}

// New constructs a packet for the named type, or nil when the type is
// unknown.
func (g *Registry) New(name string) Packet {
	if g == nil {
		return nil
	}
	if factory, ok := g.factories[name]; ok {
		return factory()
	}

	return nil
}

// Reader decodes packets from complete payload slices produced by a
// BufferManager, replaying the stream's definitions as it encounters
// them.
//
// The Reader owns a definition list and string table that must replay
// the same insertions as the writer's, since indices and tokens are
// positional on the wire. Decoded cacheable instances are retained so
// later packets can resolve references to them. Not safe for concurrent
// use.
type Reader struct {
	defs      *DefinitionList
	table     *encoding.StringTable
	registry  *Registry
	instances map[uuid.UUID]Packet

	major int
	minor int
}

// NewReader creates a Reader for one input stream. The string table must
// be the stream's own table: fresh for a standalone file, or shared with
// a writer for positionally synchronized pairs.
func NewReader(table *encoding.StringTable, major, minor int, registry *Registry) *Reader {
	return &Reader{
		defs:      NewDefinitionList(),
		table:     table,
		registry:  registry,
		instances: make(map[uuid.UUID]Packet),
		major:     major,
		minor:     minor,
	}
}

// Definitions returns the definitions replayed so far.
func (r *Reader) Definitions() *DefinitionList {
	return r.defs
}

// Cached resolves a previously decoded cacheable instance by its ID.
func (r *Reader) Cached(id uuid.UUID) (Packet, bool) {
	p, ok := r.instances[id]
	return p, ok
}

// ReadPacket decodes one packet from a complete payload slice. The first
// packet of each type carries its full definition; later packets carry
// only the definition index.
func (r *Reader) ReadPacket(payload []byte) (Packet, error) {
	fr := encoding.NewFieldReader(payload, r.table, r.major, r.minor)

	index, err := fr.ReadUint32()
	if err != nil {
		return nil, err
	}

	var def *Definition
	if int(index) == r.defs.Len() {
		// First appearance of this type: the full definition follows.
		if def, err = readDefinition(fr); err != nil {
			return nil, err
		}
		r.defs.Add(def)
	} else if def, err = r.defs.Get(int(index)); err != nil {
		return nil, err
	}

	p := r.registry.New(def.Name)
	if p == nil {
		p = NewGenericPacket(def)
	}

	if err := p.ReadFields(fr); err != nil {
		return nil, fmt.Errorf("reading packet %q fields: %w", def.Name, err)
	}

	if c, ok := p.(Cacheable); ok {
		r.instances[c.InstanceID()] = p
	}

	return p, nil
}
