// Package hashtable implements the fixed-capacity, open-addressed,
// robin-hood frontier map used by the BFS driver: 49-bit Board49 keys to
// 14-bit role/value payloads, with an insert-or-merge operation that
// OR-merges role-mask bits on collision.
package hashtable

import (
	"errors"

	"github.com/pbnjay/memory"
)

const (
	// KeyBits is the number of significant bits in a stored key.
	KeyBits = 49
	// ValueBits is the number of significant bits in a stored value.
	ValueBits = 14

	// slotKeyBits is the width of the key field in a packed slot: one bit
	// more than KeyBits, since a stored key is key+1 (0 is the empty
	// sentinel) and the maximum valid key, 2^49-1, must still fit after
	// the increment.
	slotKeyBits = KeyBits + 1

	keyMask     = uint64(1)<<KeyBits - 1
	valueMask   = uint64(1)<<ValueBits - 1
	slotKeyMask = uint64(1)<<slotKeyBits - 1
	valShift    = slotKeyBits

	// value2Mask/value2Shift pick out the low 2 bits of a 14-bit value:
	// the WDL-derived value2 field. roleMask occupies the next 5 bits.
	value2Bits   = 2
	value2Mask   = uint16(1)<<value2Bits - 1
	roleMaskBits = 5
	roleMaskMask = uint16(1)<<roleMaskBits - 1
)

var (
	// ErrTableFull is returned by InsertMerge when no empty slot is found
	// within Capacity probes.
	ErrTableFull = errors.New("hashtable: table full")
	// ErrKeyOutOfRange is returned when key is outside [0, 2^49).
	ErrKeyOutOfRange = errors.New("hashtable: key out of 49-bit range")
	// ErrValueOutOfRange is returned when value is outside [0, 2^14).
	ErrValueOutOfRange = errors.New("hashtable: value out of 14-bit range")
	// ErrValueMismatch is returned by InsertMerge when a colliding key's
	// low 2 bits (value2, the WDL tag) differ from the stored ones. A
	// mismatch means two different WDL values were derived for the same
	// board, which is always a bug upstream; this fails loudly rather
	// than silently keeping whichever value2 arrived first.
	ErrValueMismatch = errors.New("hashtable: value2 mismatch on merge")
)

// entrySize is the size in bytes of one slot (a uint64).
const entrySize = 8

// minCapacity is the smallest capacity SizeForMemoryFraction will return,
// keeping small/test runs cheap regardless of host memory.
const minCapacity = 1 << 20

// Table is a fixed-capacity robin-hood open-addressed hash map from
// 49-bit keys to 14-bit values. It is not safe for concurrent writers;
// the BFS driver guarantees a single writer (the drain step) per table
// per ply.
type Table struct {
	slots []uint64
	size  uint64
}

// New allocates a table with room for capacity slots. capacity must be
// positive; load factor should be kept comfortably below 0.75 by the
// caller (see SizeForMemoryFraction).
func New(capacity uint64) (*Table, error) {
	if capacity == 0 {
		return nil, errors.New("hashtable: capacity must be positive")
	}
	return &Table{slots: make([]uint64, capacity)}, nil
}

// SizeForMemoryFraction returns a capacity (number of slots) that would
// consume approximately fraction of total system memory, floored at
// minCapacity. It does not round to a power of two: the table uses
// modulo hashing, not masking, so any positive capacity is valid.
func SizeForMemoryFraction(fraction float64) uint64 {
	total := memory.TotalMemory()
	n := uint64(fraction * float64(total) / float64(entrySize))
	if n < minCapacity {
		return minCapacity
	}
	return n
}

// Capacity returns the number of slots in the table.
func (t *Table) Capacity() uint64 {
	return uint64(len(t.slots))
}

// Len returns the number of occupied slots.
func (t *Table) Len() uint64 {
	return t.size
}

// LoadFactor returns Len()/Capacity().
func (t *Table) LoadFactor() float64 {
	return float64(t.size) / float64(len(t.slots))
}

// Clear zeroes all slots and resets size. Slots are reused across plies.
func (t *Table) Clear() {
	clear(t.slots)
	t.size = 0
}

// hash64 is the splitmix64 finalizer: a golden-ratio increment followed
// by the three xor-multiply-shift rounds. It gives the packed 49-bit
// board key even dispersion across slots without needing a seeded or
// keyed hash.
func hash64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x ^= x >> 31
	return x
}

// home returns the home slot index for an already-incremented key
// (key+1, so that the empty sentinel 0 is never a valid occupied key).
func (t *Table) home(keyPlus uint64) uint64 {
	return hash64(keyPlus) % uint64(len(t.slots))
}

// dib returns the probe distance (displacement from home) of the
// occupant currently stored at slot index idx with home slot h.
func (t *Table) dib(idx, h uint64) uint64 {
	cap := uint64(len(t.slots))
	if idx >= h {
		return idx - h
	}
	return idx + cap - h
}

func checkKey(key uint64) error {
	if key&^keyMask != 0 {
		return ErrKeyOutOfRange
	}
	return nil
}

func checkValue(value uint16) error {
	if uint64(value)&^valueMask != 0 {
		return ErrValueOutOfRange
	}
	return nil
}

// Get returns the value stored for key, if present.
func (t *Table) Get(key uint64) (uint16, bool, error) {
	if err := checkKey(key); err != nil {
		return 0, false, err
	}
	kp := key + 1
	cap := uint64(len(t.slots))
	h := t.home(kp)
	i := h
	d := uint64(0)
	for d < cap {
		e := t.slots[i]
		if e == 0 {
			return 0, false, nil
		}
		ekp := e & slotKeyMask
		if ekp == kp {
			return uint16(e >> valShift), true, nil
		}
		occupantHome := t.home(ekp)
		occupantDIB := t.dib(i, occupantHome)
		if occupantDIB < d {
			return 0, false, nil
		}
		i++
		if i == cap {
			i = 0
		}
		d++
	}
	return 0, false, nil
}

// mergeValue computes the merged 14-bit value for a colliding key: the
// low 2 bits (value2) must agree between old and new (else
// ErrValueMismatch); the next 5 bits (role mask) are OR-merged; the
// remaining bits are zero.
func mergeValue(oldValue, newValue uint16) (uint16, error) {
	oldV2 := oldValue & value2Mask
	newV2 := newValue & value2Mask
	if oldV2 != newV2 {
		return 0, ErrValueMismatch
	}
	oldRoles := (oldValue >> value2Bits) & roleMaskMask
	newRoles := (newValue >> value2Bits) & roleMaskMask
	merged := oldV2 | ((oldRoles | newRoles) << value2Bits)
	return merged, nil
}

// InsertMerge inserts value under key if key is absent, or merges it with
// the existing entry otherwise (role mask OR, value2 asserted equal).
// No relocation happens on an in-place merge; robin-hood displacement
// only occurs while walking toward an empty slot for a brand new key.
func (t *Table) InsertMerge(key uint64, value uint16) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := checkValue(value); err != nil {
		return err
	}
	kp := key + 1
	cap := uint64(len(t.slots))
	entryKey := kp
	entryVal := value
	i := t.home(kp)
	d := uint64(0)
	for d < cap {
		e := t.slots[i]
		if e == 0 {
			t.slots[i] = entryKey | (uint64(entryVal) << valShift)
			t.size++
			return nil
		}
		ekp := e & slotKeyMask
		if ekp == entryKey {
			oldVal := uint16(e >> valShift)
			merged, err := mergeValue(oldVal, entryVal)
			if err != nil {
				return err
			}
			t.slots[i] = ekp | (uint64(merged) << valShift)
			return nil
		}
		occupantHome := t.home(ekp)
		occupantDIB := t.dib(i, occupantHome)
		if occupantDIB < d {
			// Rob the rich: the inserting element has probed further
			// than the current occupant; swap and keep relocating the
			// evicted element.
			t.slots[i] = entryKey | (uint64(entryVal) << valShift)
			entryKey = ekp
			entryVal = uint16(e >> valShift)
			d = occupantDIB
		}
		i++
		if i == cap {
			i = 0
		}
		d++
	}
	return ErrTableFull
}

// Each calls fn for every occupied slot, decoding key back to its
// original (pre-increment) value. Iteration stops early if fn returns
// false. Each must not be called concurrently with InsertMerge or Clear.
func (t *Table) Each(fn func(key uint64, value uint16) bool) {
	for _, e := range t.slots {
		if e == 0 {
			continue
		}
		key := (e & slotKeyMask) - 1
		value := uint16(e >> valShift)
		if !fn(key, value) {
			return
		}
	}
}

// EachRange calls fn for every occupied slot whose index is in
// [start, end), the same decoding Each performs. It is the primitive the
// BFS driver's parallel scan partitions the slot array with.
func (t *Table) EachRange(start, end uint64, fn func(key uint64, value uint16)) {
	if end > uint64(len(t.slots)) {
		end = uint64(len(t.slots))
	}
	for i := start; i < end; i++ {
		e := t.slots[i]
		if e == 0 {
			continue
		}
		key := (e & slotKeyMask) - 1
		value := uint16(e >> valShift)
		fn(key, value)
	}
}

// PackValue packs a value2 (the 2-bit WDL tag, 0..2) and a role mask
// (0..31) into the 14-bit value stored in the table.
func PackValue(value2 uint8, roleMask uint8) uint16 {
	return uint16(value2)&value2Mask | (uint16(roleMask)&roleMaskMask)<<value2Bits
}

// UnpackValue splits a 14-bit stored value back into its value2 and
// role-mask components.
func UnpackValue(value uint16) (value2 uint8, roleMask uint8) {
	value2 = uint8(value & value2Mask)
	roleMask = uint8((value >> value2Bits) & roleMaskMask)
	return
}
