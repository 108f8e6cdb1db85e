package interval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Range is a half-open range of sectors [Start, End).
type Range struct {
	Start uint64
	End   uint64
}

func RangeFrom(start, end uint64) Range {
	return Range{Start: start, End: end}
}

// ParseRange parses "start-end" with both bounds in sectors.
func ParseRange(s string) (Range, error) {
	var r Range
	h := strings.IndexByte(s, '-')
	if h == -1 {
		return r, fmt.Errorf("no hyphen in range %q", s)
	}
	from, to := s[:h], s[h+1:]
	start, err := strconv.ParseUint(from, 10, 64)
	if err != nil {
		return r, fmt.Errorf("invalid start sector %q in range %q", from, s)
	}
	end, err := strconv.ParseUint(to, 10, 64)
	if err != nil {
		return r, fmt.Errorf("invalid end sector %q in range %q", to, s)
	}
	r = Range{Start: start, End: end}
	if !r.IsValid() {
		return Range{}, fmt.Errorf("empty or inverted range %q", s)
	}
	return r, nil
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

func (r Range) IsValid() bool { return r.Start < r.End }
func (r Range) IsZero() bool  { return r == Range{} }

// Len returns the number of sectors in r.
func (r Range) Len() uint64 {
	if !r.IsValid() {
		return 0
	}
	return r.End - r.Start
}

// Bytes returns the length of r in bytes for the given sector size.
func (r Range) Bytes(sectorSize uint32) uint64 {
	return r.Len() * uint64(sectorSize)
}

func (r Range) Less(other Range) bool {
	if r.Start != other.Start {
		return r.Start < other.Start
	}
	return r.End < other.End
}

// Overlaps reports whether r and other share at least one sector.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// Intersect returns the sectors r and other have in common, or the zero
// Range when they do not overlap.
func (r Range) Intersect(other Range) Range {
	if !r.Overlaps(other) {
		return Range{}
	}
	return Range{Start: max(r.Start, other.Start), End: min(r.End, other.End)}
}

// EntirelyBefore returns whether r ends at or before the start of other.
func (r Range) EntirelyBefore(other Range) bool {
	return r.End <= other.Start
}

// CoveredBy returns whether r is entirely contained within other.
func (r Range) CoveredBy(other Range) bool {
	return other.Start <= r.Start && r.End <= other.End
}

// MergeRanges returns the minimum and sorted set of ranges that cover rr.
// It refuses to merge and returns false if any range is invalid.
func MergeRanges(rr []Range) (out []Range, valid bool) {
	// Always work on a copy, to avoid reordering the caller's slice.
	switch len(rr) {
	case 0:
		return nil, true
	case 1:
		if !rr[0].IsValid() {
			return nil, false
		}
		return append(out, rr[0]), true
	}

	sorted := make([]Range, len(rr))
	copy(sorted, rr)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	out = make([]Range, 1, len(sorted))
	out[0] = sorted[0]
	if !out[0].IsValid() {
		return nil, false
	}
	for _, r := range sorted[1:] {
		prev := &out[len(out)-1]
		switch {
		case !r.IsValid():
			return nil, false
		case prev.End < r.Start:
			// No overlap and not adjacent, no merging possible.
			//
			//   prev       r
			// s------e  s-----e
			out = append(out, r)
		case prev.End < r.End:
			// prev and r touch or partially overlap, extend prev.
			//
			//   prev
			// s------e
			//     s-----e
			//        r
			prev.End = r.End
		default:
			// r entirely contained in prev, nothing to do.
		}
	}
	return out, true
}
