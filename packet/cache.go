package packet

import (
	"github.com/google/uuid"
)

// Cache tracks which cacheable packet instances have already been
// committed to a stream, giving them at-most-once serialization
// semantics. Identity is stream-scoped.
//
// Instances currently being written are tracked separately so a
// dependency cycle back to an in-progress instance short-circuits instead
// of recursing; the instance only becomes permanently cached once its
// bytes are fully committed. Not safe for concurrent use.
type Cache struct {
	written    map[uuid.UUID]struct{}
	inProgress map[uuid.UUID]struct{}
}

// NewCache creates an empty packet cache.
func NewCache() *Cache {
	return &Cache{
		written:    make(map[uuid.UUID]struct{}),
		inProgress: make(map[uuid.UUID]struct{}),
	}
}

// Contains reports whether the instance is already committed or currently
// being written.
func (c *Cache) Contains(id uuid.UUID) bool {
	if _, ok := c.written[id]; ok {
		return true
	}
	_, ok := c.inProgress[id]

	return ok
}

// Len returns the number of committed instances.
func (c *Cache) Len() int {
	return len(c.written)
}

func (c *Cache) begin(id uuid.UUID) {
	c.inProgress[id] = struct{}{}
}

func (c *Cache) end(id uuid.UUID) {
	delete(c.inProgress, id)
}

func (c *Cache) commit(id uuid.UUID) {
	c.written[id] = struct{}{}
}
