package interval

// iteratorMode tells Next how to find the following interval.
type iteratorMode int

const (
	modeAll iteratorMode = iota
	modeOverlap
)

// Iterator is a stateful in-order iterator over a tree.
type Iterator struct {
	t       *Tree
	mode    iteratorMode
	current *Interval
	started bool
	// overlap query
	start  uint64
	length uint32
}

// Iterate returns an iterator over all members in (start, id) order. It is
// important for the tree to not be modified while using the iterator.
func (t *Tree) Iterate() *Iterator {
	return &Iterator{t: t, mode: modeAll}
}

// Overlaps returns an iterator over the members overlapping
// [start, start+length) in ascending start order. A misaligned length panics
// on the first call to Next.
func (t *Tree) Overlaps(start uint64, length uint32) *Iterator {
	return &Iterator{t: t, mode: modeOverlap, start: start, length: length}
}

// Next moves to the next interval. It returns false if there is none.
func (iter *Iterator) Next() bool {
	if !iter.started {
		iter.started = true
		switch iter.mode {
		case modeOverlap:
			iter.current = iter.t.FindOverlap(iter.start, iter.length)
		default:
			iter.current = iter.t.First()
		}
		return iter.current != nil
	}
	if iter.current == nil {
		return false
	}
	switch iter.mode {
	case modeOverlap:
		iter.current = iter.t.NextOverlap(iter.current, iter.start, iter.length)
	default:
		iter.current = successor(iter.current)
	}
	return iter.current != nil
}

// Interval returns the current interval.
func (iter *Iterator) Interval() *Interval {
	return iter.current
}

// Collect drains the iterator.
func (iter *Iterator) Collect() []*Interval {
	var out []*Interval
	for iter.Next() {
		out = append(out, iter.current)
	}
	return out
}
