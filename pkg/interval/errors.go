package interval

import "errors"

var (
	// ErrMisaligned is the panic cause when a length is zero or not a
	// multiple of the tree's sector size.
	ErrMisaligned = errors.New("length not aligned to sector size")

	// ErrInvalidSectorSize is the panic cause when a tree is created with a
	// sector size that is not a power of two.
	ErrInvalidSectorSize = errors.New("sector size must be a power of two")

	// ErrOverflow is the panic cause when an interval would end beyond the
	// last addressable sector.
	ErrOverflow = errors.New("interval end overflows sector space")

	// ErrAlreadyMember is the panic cause when an interval that belongs to a
	// tree is inserted into another tree or re-targeted.
	ErrAlreadyMember = errors.New("interval is already a tree member")
)
