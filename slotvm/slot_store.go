// (c) 2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slotvm

import (
	"sync"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/database"
)

const (
	slotCacheSize = 8192
)

var (
	highWaterMarkKey = []byte("mark")

	_ SlotStore = &slotStore{}
)

// SlotStore is the exclusive custodian of slot contents: a sparse,
// unbounded mapping from slot index to a fixed-size opaque value, plus an
// append-only high-water mark from which fresh ranges are carved. Slot
// numbers are never reused or reordered.
type SlotStore interface {
	// GetSlot returns the value stored at [slot]. The second return is
	// false if the slot has never been written; out-of-range reads are not
	// an error.
	GetSlot(slot uint64) ([ValueLen]byte, bool, error)

	// SetSlot stores [value] at [slot], overwriting or allocating.
	SetSlot(slot uint64, value [ValueLen]byte) error

	// AllocateRange reserves [count] consecutive previously-unused slots
	// starting at the high-water mark, advances the mark by [count] and
	// returns the first reserved slot.
	AllocateRange(count uint64) (uint64, error)

	// HighWaterMark returns the first slot that has never been part of an
	// allocated range.
	HighWaterMark() (uint64, error)

	// ClearCache drops all cached slot values and the cached high-water
	// mark, forcing the next read to hit the database. Called after an
	// aborted upgrade so rolled-back writes can't be served from cache.
	ClearCache()
}

type slotStore struct {
	slotCache cache.Cacher
	slotDB    database.Database

	// singletonDB persists the high-water mark
	singletonDB database.Database

	markLock   sync.Mutex
	mark       uint64
	markLoaded bool
}

func NewSlotStore(slotDB database.Database, singletonDB database.Database) SlotStore {
	return &slotStore{
		slotCache:   &cache.LRU{Size: slotCacheSize},
		slotDB:      slotDB,
		singletonDB: singletonDB,
	}
}

func (s *slotStore) GetSlot(slot uint64) ([ValueLen]byte, bool, error) {
	if valueIntf, ok := s.slotCache.Get(slot); ok {
		if valueIntf == nil {
			return [ValueLen]byte{}, false, nil
		}
		return valueIntf.([ValueLen]byte), true, nil
	}

	raw, err := s.slotDB.Get(SlotKey(slot))
	if err == database.ErrNotFound {
		s.slotCache.Put(slot, nil)
		return [ValueLen]byte{}, false, nil
	}
	if err != nil {
		return [ValueLen]byte{}, false, err
	}

	value, err := UnmarshalValue(raw)
	if err != nil {
		return [ValueLen]byte{}, false, err
	}

	s.slotCache.Put(slot, value)
	return value, true, nil
}

func (s *slotStore) SetSlot(slot uint64, value [ValueLen]byte) error {
	s.slotCache.Put(slot, value)
	return s.slotDB.Put(SlotKey(slot), value[:])
}

func (s *slotStore) AllocateRange(count uint64) (uint64, error) {
	s.markLock.Lock()
	defer s.markLock.Unlock()

	mark, err := s.loadMark()
	if err != nil {
		return 0, err
	}

	newMark := mark + count
	if err := s.singletonDB.Put(highWaterMarkKey, PackUint64(newMark)); err != nil {
		return 0, err
	}
	s.mark = newMark
	return mark, nil
}

func (s *slotStore) HighWaterMark() (uint64, error) {
	s.markLock.Lock()
	defer s.markLock.Unlock()
	return s.loadMark()
}

func (s *slotStore) ClearCache() {
	s.markLock.Lock()
	defer s.markLock.Unlock()
	s.slotCache.Flush()
	s.markLoaded = false
}

// loadMark returns the cached high-water mark, reading it from the
// database on first use. Callers must hold [markLock].
func (s *slotStore) loadMark() (uint64, error) {
	if s.markLoaded {
		return s.mark, nil
	}

	raw, err := s.singletonDB.Get(highWaterMarkKey)
	if err == database.ErrNotFound {
		s.mark = 0
		s.markLoaded = true
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	mark, err := UnpackUint64(raw)
	if err != nil {
		return 0, err
	}
	s.mark = mark
	s.markLoaded = true
	return mark, nil
}
