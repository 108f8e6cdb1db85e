// Package slots bounds the number of in-flight descriptors with a fixed-size
// table of numbered slots.
package slots

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrFull       = errors.New("no free slot")
	ErrOutOfRange = errors.New("slot out of range")
	ErrNotFound   = errors.New("slot not found")
)

// Table is a fixed-size table of slots, each holding one in-flight
// descriptor. A Table is not safe for concurrent use; the owner serializes
// access with its own lock.
type Table[T any] interface {
	Get(id int64) (T, error)
	ClaimDynamic(d T) (int64, error)
	Release(id int64) error

	Iterate() *Iterator[T]

	Size() int64
	Count() int
}

func NewTable[T any](s int64) (Table[T], error) {
	if s <= 0 {
		return nil, fmt.Errorf("table size must be positive, got %d", s)
	}
	return &table[T]{
		table: map[int64]T{},
		size:  s,
	}, nil
}

type table[T any] struct {
	table map[int64]T
	size  int64
	next  int64 // every id below next is claimed
}

func (r *table[T]) validate(id int64) error {
	if id < 0 || id > r.size-1 {
		return fmt.Errorf("%w: id %d, max allowed %d", ErrOutOfRange, id, r.size-1)
	}
	return nil
}

func (r *table[T]) Get(id int64) (T, error) {
	var d T
	if err := r.validate(id); err != nil {
		return d, err
	}
	d, ok := r.table[id]
	if !ok {
		return d, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return d, nil
}

// ClaimDynamic stores d in the lowest free slot and returns its id.
func (r *table[T]) ClaimDynamic(d T) (int64, error) {
	if int64(len(r.table)) >= r.size {
		return 0, fmt.Errorf("%w: all %d slots claimed", ErrFull, r.size)
	}
	id := r.next
	for ; id < r.size; id++ {
		if _, ok := r.table[id]; !ok {
			break
		}
	}
	if id == r.size {
		panic("free slot count and slot table disagree - should be impossible!")
	}
	r.table[id] = d
	r.next = id + 1
	return id, nil
}

// Release frees the slot. Releasing a free slot is not an error.
func (r *table[T]) Release(id int64) error {
	if err := r.validate(id); err != nil {
		return err
	}
	delete(r.table, id)
	if id < r.next {
		r.next = id
	}
	return nil
}

// Iterate returns a snapshot of the claimed slots in id order.
func (r *table[T]) Iterate() *Iterator[T] {
	keys := make([]int64, 0, len(r.table))
	vals := make(map[int64]T, len(r.table))
	for key, v := range r.table {
		keys = append(keys, key)
		vals[key] = v
	}
	sort.Slice(keys, func(i int, j int) bool {
		return keys[i] < keys[j]
	})

	return &Iterator[T]{current: -1, keys: keys, table: vals}
}

func (r *table[T]) Size() int64 { return r.size }
func (r *table[T]) Count() int  { return len(r.table) }
