package packet

import (
	"fmt"
	"io"

	"github.com/glf-dev/glf/encoding"
	"github.com/glf-dev/glf/errs"
	"github.com/glf-dev/glf/internal/pool"
)

// DefaultMaxPacketSize bounds a single packet's payload. Telemetry
// packets are small; anything near this size is almost certainly an
// encoding bug rather than real data.
const DefaultMaxPacketSize = 16 * 1024 * 1024

// Writer serializes packets into a growing in-memory stream buffer.
//
// Each Write is atomic: the packet's type index, definition (when first
// seen) and field bytes are staged in a scratch buffer and appended,
// length-prefixed, to the stream only once the whole packet has encoded
// successfully. On failure the definition list and string table roll back
// to their pre-attempt state and the stream gains no bytes.
//
// A Writer and its definition list, packet cache and string table belong
// to exactly one logical output stream and are not internally
// synchronized. Not safe for concurrent use.
type Writer struct {
	out   *pool.ByteBuffer
	defs  *DefinitionList
	cache *Cache
	table *encoding.StringTable

	major int
	minor int

	maxPacketSize int
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithMaxPacketSize overrides DefaultMaxPacketSize. Zero disables the
// bound.
func WithMaxPacketSize(n int) WriterOption {
	return func(w *Writer) {
		w.maxPacketSize = n
	}
}

// NewWriter creates a Writer for one output stream. The string table is
// shared with the matching reader when positional synchronization is
// required.
func NewWriter(table *encoding.StringTable, major, minor int, opts ...WriterOption) *Writer {
	w := &Writer{
		out:           pool.GetStreamBuffer(),
		defs:          NewDefinitionList(),
		cache:         NewCache(),
		table:         table,
		major:         major,
		minor:         minor,
		maxPacketSize: DefaultMaxPacketSize,
	}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Definitions returns the stream's definition list.
func (w *Writer) Definitions() *DefinitionList {
	return w.defs
}

// Cache returns the stream's cacheable-instance cache.
func (w *Writer) Cache() *Cache {
	return w.cache
}

// Len returns the number of committed stream bytes not yet drained.
func (w *Writer) Len() int {
	return w.out.Len()
}

// Bytes returns the committed stream bytes not yet drained. The slice is
// invalidated by the next Write or Drain.
func (w *Writer) Bytes() []byte {
	return w.out.Bytes()
}

// Drain writes the committed stream bytes to dst and resets the internal
// buffer. Definition, cache and string-table state persist: the stream
// continues where it left off.
func (w *Writer) Drain(dst io.Writer) (int64, error) {
	n, err := w.out.WriteTo(dst)
	if err != nil {
		return n, err
	}
	w.out.Reset()

	return n, nil
}

// Release returns the stream buffer to its pool. The Writer must not be
// used afterwards.
func (w *Writer) Release() {
	pool.PutStreamBuffer(w.out)
	w.out = nil
}

// Write serializes one packet, writing its dependencies first and
// emitting its definition if this is the type's first appearance on the
// stream. Writing an already-cached cacheable instance emits nothing and
// returns nil.
func (w *Writer) Write(p Packet) error {
	if p == nil {
		return errs.ErrNilPacket
	}

	cacheable, isCacheable := p.(Cacheable)
	if isCacheable {
		id := cacheable.InstanceID()
		if w.cache.Contains(id) {
			return nil
		}
		w.cache.begin(id)
		defer w.cache.end(id)
	}

	if dep, ok := p.(Dependent); ok {
		for _, required := range dep.RequiredPackets() {
			if err := w.Write(required); err != nil {
				return err
			}
		}
	}

	defCheckpoint := w.defs.Checkpoint()
	tableCheckpoint := w.table.Checkpoint()

	fw := encoding.NewFieldWriter(w.table, w.major, w.minor)
	defer fw.Release()

	def := definitionFor(p)
	index, isNew := w.defs.Add(def)

	fw.WriteUint32(uint32(index))
	if isNew {
		def.write(fw)
	}

	if err := p.WriteFields(fw); err != nil {
		w.defs.Rollback(defCheckpoint)
		w.table.Rollback(tableCheckpoint)

		return fmt.Errorf("writing packet %q fields: %w", def.Name, err)
	}
	if w.maxPacketSize > 0 && fw.Len() > w.maxPacketSize {
		w.defs.Rollback(defCheckpoint)
		w.table.Rollback(tableCheckpoint)

		return fmt.Errorf("%w: packet %q is %d bytes", errs.ErrPacketTooLarge, def.Name, fw.Len())
	}

	w.out.Grow(encoding.MaxUvarint64Len + fw.Len())
	w.out.B = encoding.AppendUvarint64(w.out.B, uint64(fw.Len()))
	w.out.B = append(w.out.B, fw.Bytes()...)

	if isCacheable {
		w.cache.commit(cacheable.InstanceID())
	}

	return nil
}
