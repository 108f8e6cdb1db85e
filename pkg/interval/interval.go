package interval

import (
	"fmt"
	"sync/atomic"
)

// ID identifies an Interval. IDs are handed out in increasing order and are
// never reused, 0 is never a valid ID.
type ID uint64

var lastID atomic.Uint64

func nextID() ID {
	return ID(lastID.Add(1))
}

type color bool

const (
	red   color = false
	black color = true
)

// Interval is a half-open range of sectors [start, start+length/sectorSize).
// It is owned by the caller, typically embedded in a request descriptor; the
// tree only links it in and never allocates or frees it.
type Interval struct {
	start  uint64
	length uint32 // bytes
	id     ID

	// maintained while linked into a tree
	end    uint64 // own end sector, set on insert
	maxEnd uint64 // max end over this node's subtree

	parent *Interval
	left   *Interval
	right  *Interval
	color  color
	tree   *Tree // nil when detached
}

// NewInterval returns a detached interval starting at sector start that
// covers length bytes.
func NewInterval(start uint64, length uint32) *Interval {
	i := &Interval{}
	i.set(start, length)
	return i
}

// Reset initializes an interval embedded by value in another struct, or
// re-targets a detached one. The interval gets a fresh ID so a stale
// (start, id) pair held elsewhere never matches it again.
func (i *Interval) Reset(start uint64, length uint32) {
	if i.tree != nil {
		panic(fmt.Errorf("%w: reset of %s", ErrAlreadyMember, i))
	}
	i.set(start, length)
}

func (i *Interval) set(start uint64, length uint32) {
	*i = Interval{
		start:  start,
		length: length,
		id:     nextID(),
	}
}

func (i *Interval) ID() ID         { return i.id }
func (i *Interval) Start() uint64  { return i.start }
func (i *Interval) Length() uint32 { return i.length }
func (i *Interval) IsMember() bool { return i.tree != nil }
func (i *Interval) Tree() *Tree    { return i.tree }

// End returns the first sector after the interval. It is computed on insert,
// so it is 0 for an interval that has never been a tree member.
func (i *Interval) End() uint64 { return i.end }

// Range returns the sector range of the interval, see End.
func (i *Interval) Range() Range { return Range{Start: i.start, End: i.end} }

// less reports whether i sorts before (start, id).
func (i *Interval) less(start uint64, id ID) bool {
	if i.start != start {
		return i.start < start
	}
	return i.id < id
}

func (i *Interval) overlaps(start, end uint64) bool {
	return i.start < end && start < i.end
}

func (i *Interval) String() string {
	return fmt.Sprintf("%d+%d#%d", i.start, i.length, i.id)
}
