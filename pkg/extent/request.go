package extent

import (
	"fmt"

	"github.com/henderiw/extenttree/pkg/interval"
	"k8s.io/apimachinery/pkg/labels"
)

const (
	// LabelOp is the label holding the kind of a request.
	LabelOp = "op"

	OpRead  = "read"
	OpWrite = "write"
)

// State is the lifecycle state of a request.
type State int

const (
	StatePending State = iota
	StateAdmitted
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAdmitted:
		return "admitted"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Request describes one storage operation against an extent. It embeds the
// interval that is linked into the extent's overlap tree. A Request declared
// by value is set up with Reset and carries no labels.
type Request struct {
	interval.Interval

	labels labels.Set
	seq    uint64 // arrival order within the extent
	slot   int64
	state  State
	waits  int
	done   chan struct{}
}

// NewRequest returns a pending request for length bytes at sector start.
// Requests without an op label are treated as writes.
func NewRequest(start uint64, length uint32, l labels.Set) *Request {
	r := &Request{labels: l}
	r.Reset(start, length)
	r.init()
	return r
}

// init prepares a request that was declared by value and set up with Reset.
func (r *Request) init() {
	if r.labels == nil {
		r.labels = labels.Set{}
	}
	if r.done == nil {
		r.done = make(chan struct{})
	}
}

func (r *Request) Labels() labels.Set { return r.labels }
func (r *Request) State() State       { return r.state }

// Waits returns how often Begin had to wait for a conflicting request.
func (r *Request) Waits() int { return r.waits }

// Done is closed once the request completed or was abandoned. It is nil for
// a request declared by value until it is begun.
func (r *Request) Done() <-chan struct{} { return r.done }

// Slot returns the in-flight slot of the request, or -1 while it is not
// tracked by an extent.
func (r *Request) Slot() int64 {
	if !r.IsMember() {
		return -1
	}
	return r.slot
}

func (r *Request) IsWrite() bool {
	return r.labels[LabelOp] != OpRead
}

func (r *Request) String() string {
	return fmt.Sprintf("%s{%s}", r.Interval.String(), r.labels.String())
}
