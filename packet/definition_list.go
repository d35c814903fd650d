package packet

import (
	"fmt"

	"github.com/glf-dev/glf/errs"
)

// DefinitionList is the per-stream registry of packet definitions, in the
// order they first appeared. Indices are sequential from zero and never
// change for the life of the stream.
//
// Additions made while staging a packet are speculative until the
// packet's bytes are committed; Checkpoint and Rollback discard the
// additions of a failed write so the list tracks only definitions that
// actually exist on the wire. Not safe for concurrent use.
type DefinitionList struct {
	defs          []*Definition
	byFingerprint map[uint64]int
}

// NewDefinitionList creates an empty definition list.
func NewDefinitionList() *DefinitionList {
	return &DefinitionList{
		byFingerprint: make(map[uint64]int),
	}
}

// Add returns the index for def, appending it if an equal definition is
// not already present. isNew reports whether the call appended it, which
// is the writer's cue to emit the full definition on the wire.
func (l *DefinitionList) Add(def *Definition) (index int, isNew bool) {
	fp := def.Fingerprint()
	if idx, ok := l.byFingerprint[fp]; ok {
		return idx, false
	}
	idx := len(l.defs)
	l.defs = append(l.defs, def)
	l.byFingerprint[fp] = idx

	return idx, true
}

// Get resolves an index read from the wire. An index at or beyond the
// list length indicates a corrupted stream.
func (l *DefinitionList) Get(index int) (*Definition, error) {
	if index < 0 || index >= len(l.defs) {
		return nil, fmt.Errorf("%w: index %d of %d", errs.ErrInvalidTypeIndex, index, len(l.defs))
	}

	return l.defs[index], nil
}

// Len returns the number of definitions on the stream.
func (l *DefinitionList) Len() int {
	return len(l.defs)
}

// Checkpoint captures the list length before a speculative write attempt.
func (l *DefinitionList) Checkpoint() int {
	return len(l.defs)
}

// Rollback discards every definition added after the checkpoint.
func (l *DefinitionList) Rollback(checkpoint int) {
	for _, def := range l.defs[checkpoint:] {
		delete(l.byFingerprint, def.Fingerprint())
	}
	l.defs = l.defs[:checkpoint]
}
