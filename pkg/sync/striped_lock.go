package sync

import (
	"hash/fnv"
	base "sync"
)

// StripedLock is a partitioned locking mechanism that consistently maps a key
// space to a fixed set of locks. This provides concurrent data access while
// also limiting the total memory footprint.
type StripedLock struct {
	locks []base.RWMutex
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	return &StripedLock{
		locks: make([]base.RWMutex, stripes),
	}
}

// Get gets the lock for a key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	h := fnv.New32a()
	h.Write(key)
	return &l.locks[h.Sum32()%uint32(len(l.locks))]
}
