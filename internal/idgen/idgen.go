// Package idgen produces the correlation identifiers assigned to queued work.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator returns a new identifier on every call. Implementations must be
// safe for concurrent use and must never return the same value twice.
type Generator interface {
	NewID() string
}

// UUID generates random (version 4) UUIDs.
type UUID struct{}

func (UUID) NewID() string { return uuid.NewString() }

// Sequence generates prefix1, prefix2, ... in call order.
// Useful where identifiers must be predictable, such as tests and demos.
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NewID() string {
	return s.prefix + strconv.FormatUint(s.n.Add(1), 10)
}

var (
	_ Generator = UUID{}
	_ Generator = (*Sequence)(nil)
)
