package interval

import (
	"fmt"
	"math"
	"math/bits"
)

// DefaultSectorSize is the addressing unit of a block device.
const DefaultSectorSize = 512

// Tree is a red-black tree of intervals ordered by (start, id) and augmented
// with the maximum end sector of every subtree, so overlapping intervals are
// found without scanning all members.
//
// A Tree is not safe for concurrent use; callers serialize access with their
// own lock.
type Tree struct {
	name       string
	sectorSize uint32
	shift      uint // log2(sectorSize)
	root       *Interval
	count      int
	aug        augmenter
}

// New returns an empty tree. sectorSize is the addressing unit, every
// interval length must be a positive multiple of it.
func New(name string, sectorSize uint32) *Tree {
	if sectorSize == 0 || sectorSize&(sectorSize-1) != 0 {
		panic(fmt.Errorf("%w: tree %s, got %d", ErrInvalidSectorSize, name, sectorSize))
	}
	return &Tree{
		name:       name,
		sectorSize: sectorSize,
		shift:      uint(bits.TrailingZeros32(sectorSize)),
		aug:        augmenter{merge: maxSector},
	}
}

func (t *Tree) Name() string       { return t.name }
func (t *Tree) SectorSize() uint32 { return t.sectorSize }

// Len returns the number of member intervals.
func (t *Tree) Len() int { return t.count }

// end returns the query end for [start, start+length). It panics when length
// is not aligned or the end does not fit in a sector number.
func (t *Tree) end(start uint64, length uint32) uint64 {
	if length == 0 || length&(t.sectorSize-1) != 0 {
		panic(fmt.Errorf("%w: tree %s, length %d, sector size %d", ErrMisaligned, t.name, length, t.sectorSize))
	}
	sectors := uint64(length >> t.shift)
	if start > math.MaxUint64-sectors {
		panic(fmt.Errorf("%w: tree %s, start %d, length %d", ErrOverflow, t.name, start, length))
	}
	return start + sectors
}

// Insert links i into the tree. It returns false without modifying the tree
// when i is already a member of t. Inserting a misaligned interval or a member
// of another tree panics.
func (t *Tree) Insert(i *Interval) bool {
	end := t.end(i.start, i.length)
	if i.tree != nil {
		if i.tree == t {
			return false
		}
		panic(fmt.Errorf("%w: %s in tree %s, inserting into %s", ErrAlreadyMember, i, i.tree.name, t.name))
	}

	link := &t.root
	var parent *Interval
	for *link != nil {
		here := *link
		parent = here
		switch {
		case i.start < here.start:
			link = &here.left
		case i.start > here.start:
			link = &here.right
		case i.id < here.id:
			link = &here.left
		case i.id > here.id:
			link = &here.right
		default:
			// same (start, id) reached through a copied struct
			return false
		}
	}

	// every ancestor on the insertion path now covers end
	for p := parent; p != nil && p.maxEnd < end; p = p.parent {
		p.maxEnd = end
	}

	i.end = end
	i.maxEnd = end
	i.parent = parent
	i.left, i.right = nil, nil
	i.color = red
	i.tree = t
	*link = i

	t.insertFixup(i)
	t.count++
	return true
}

// Contains reports whether the tree holds the interval identified by id at
// sector start. Only nodes whose start equals start are compared by id, the
// probe itself is never looked up, so a stale id is safe to pass.
func (t *Tree) Contains(start uint64, id ID) bool {
	n := t.root
	for n != nil {
		switch {
		case start < n.start:
			n = n.left
		case start > n.start:
			n = n.right
		case id < n.id:
			n = n.left
		case id > n.id:
			n = n.right
		default:
			return true
		}
	}
	return false
}

// Remove unlinks i from the tree. It is a no-op when i is not a member of t.
func (t *Tree) Remove(i *Interval) {
	if i.tree != t {
		return
	}
	t.erase(i)
	i.parent, i.left, i.right = nil, nil, nil
	i.maxEnd = 0
	i.tree = nil
	t.count--
}

// FindOverlap returns an interval overlapping [start, start+length), or nil
// if there is none. When several intervals overlap, the one with the lowest
// start is returned and all others follow it in tree order, reachable with
// NextOverlap.
func (t *Tree) FindOverlap(start uint64, length uint32) *Interval {
	end := t.end(start, length)

	n := t.root
	for n != nil {
		switch {
		case n.left != nil && start < n.left.maxEnd:
			// overlap if any must be on the left side
			n = n.left
		case n.overlaps(start, end):
			return n
		case start >= n.start:
			// overlap if any must be on the right side
			n = n.right
		default:
			return nil
		}
	}
	return nil
}

// NextOverlap returns the interval after prev in tree order that overlaps
// [start, start+length), or nil.
func (t *Tree) NextOverlap(prev *Interval, start uint64, length uint32) *Interval {
	end := t.end(start, length)

	for n := successor(prev); n != nil; n = successor(n) {
		if n.start >= end {
			return nil
		}
		if start < n.end {
			return n
		}
	}
	return nil
}

// First returns the member with the lowest (start, id), or nil.
func (t *Tree) First() *Interval {
	if t.root == nil {
		return nil
	}
	return minimum(t.root)
}

// Last returns the member with the highest (start, id), or nil.
func (t *Tree) Last() *Interval {
	if t.root == nil {
		return nil
	}
	return maximum(t.root)
}

// Next returns the in-order successor of i, or nil. i must be a member of t.
func (t *Tree) Next(i *Interval) *Interval {
	if i.tree != t {
		return nil
	}
	return successor(i)
}

// Prev returns the in-order predecessor of i, or nil. i must be a member of t.
func (t *Tree) Prev(i *Interval) *Interval {
	if i.tree != t {
		return nil
	}
	return predecessor(i)
}

// Clear detaches every member.
func (t *Tree) Clear() {
	stack := []*Interval{}
	if t.root != nil {
		stack = append(stack, t.root)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.left != nil {
			stack = append(stack, n.left)
		}
		if n.right != nil {
			stack = append(stack, n.right)
		}
		n.parent, n.left, n.right = nil, nil, nil
		n.maxEnd = 0
		n.tree = nil
	}
	t.root = nil
	t.count = 0
}

func minimum(n *Interval) *Interval {
	for n.left != nil {
		n = n.left
	}
	return n
}

func maximum(n *Interval) *Interval {
	for n.right != nil {
		n = n.right
	}
	return n
}

func successor(n *Interval) *Interval {
	if n.right != nil {
		return minimum(n.right)
	}
	p := n.parent
	for p != nil && n == p.right {
		n, p = p, p.parent
	}
	return p
}

func predecessor(n *Interval) *Interval {
	if n.left != nil {
		return maximum(n.left)
	}
	p := n.parent
	for p != nil && n == p.left {
		n, p = p, p.parent
	}
	return p
}
