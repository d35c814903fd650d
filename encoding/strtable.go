package encoding

import (
	"time"

	"github.com/glf-dev/glf/errs"
)

// StringTable is the per-stream string interning table used by the
// protocol 1 string encoding, mapping each unique string to a stable
// 1-based token. Tokens are positional, not content-addressed: a reader
// must replay exactly the insertions its writer performed, so a
// writer/reader pair that needs positional sync must share one table
// instance by reference.
//
// The table also carries the protocol-version-dependent timestamp codec
// state: the rolling reference time and the generic factor divisor.
// Keeping that state here means nested FieldWriter/FieldReader instances
// sharing a table also share one timestamp reference, which the wire
// format requires.
//
// The table is append-only. Checkpoint and Rollback give the packet
// writer transactional behavior: additions made while staging a packet
// that ultimately fails are discarded so the table tracks only what was
// actually emitted. Not safe for concurrent use.
type StringTable struct {
	entries []string
	tokens  map[string]int

	refNanos int64
	refValid bool
	factor   int64 // delta divisor in nanoseconds, 0 = unset
}

// Checkpoint captures the table state before a speculative write attempt.
type Checkpoint struct {
	entryCount int
	refNanos   int64
	refValid   bool
	factor     int64
}

// NewStringTable creates an empty string table.
func NewStringTable() *StringTable {
	return &StringTable{
		tokens: make(map[string]int),
	}
}

// Intern returns the 1-based token for s, adding it to the table if it is
// not yet present. isNew reports whether the call added it.
func (t *StringTable) Intern(s string) (token int, isNew bool) {
	if tok, ok := t.tokens[s]; ok {
		return tok, false
	}
	t.entries = append(t.entries, s)
	tok := len(t.entries)
	t.tokens[s] = tok

	return tok, true
}

// Lookup resolves a 1-based token back to its string.
func (t *StringTable) Lookup(token int) (string, error) {
	if token < 1 || token > len(t.entries) {
		return "", errs.ErrInvalidStringToken
	}

	return t.entries[token-1], nil
}

// Len returns the number of interned strings.
func (t *StringTable) Len() int {
	return len(t.entries)
}

// ReferenceTime returns the rolling timestamp reference, if set.
func (t *StringTable) ReferenceTime() (time.Time, bool) {
	if !t.refValid {
		return time.Time{}, false
	}

	return time.Unix(0, t.refNanos), true
}

// SetReferenceNanos replaces the rolling timestamp reference.
func (t *StringTable) SetReferenceNanos(nanos int64) {
	t.refNanos = nanos
	t.refValid = true
}

func (t *StringTable) referenceNanos() (int64, bool) {
	return t.refNanos, t.refValid
}

// Factor returns the generic delta divisor in nanoseconds, 0 if unset.
func (t *StringTable) Factor() int64 {
	return t.factor
}

// SetFactor replaces the generic delta divisor.
func (t *StringTable) SetFactor(nanos int64) {
	t.factor = nanos
}

// Checkpoint captures the current state so a failed packet write can be
// rolled back.
func (t *StringTable) Checkpoint() Checkpoint {
	return Checkpoint{
		entryCount: len(t.entries),
		refNanos:   t.refNanos,
		refValid:   t.refValid,
		factor:     t.factor,
	}
}

// Rollback discards every insertion and timestamp-state change made after
// the checkpoint was taken.
func (t *StringTable) Rollback(cp Checkpoint) {
	for _, s := range t.entries[cp.entryCount:] {
		delete(t.tokens, s)
	}
	t.entries = t.entries[:cp.entryCount]
	t.refNanos = cp.refNanos
	t.refValid = cp.refValid
	t.factor = cp.factor
}
