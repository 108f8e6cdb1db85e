// Package extent serializes conflicting storage requests against one device
// region. Every request is registered in an overlap tree before it runs and
// waits for earlier conflicting requests to complete.
package extent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/btree"
	"github.com/henderiw/extenttree/pkg/config"
	"github.com/henderiw/extenttree/pkg/interval"
	"github.com/henderiw/extenttree/pkg/slots"
	"k8s.io/apimachinery/pkg/labels"
)

const registryDegree = 32

// registryEntry indexes a request by its interval id.
type registryEntry struct {
	id  interval.ID
	req *Request
}

func lessEntry(a, b registryEntry) bool { return a.id < b.id }

type Extent struct {
	m          *sync.RWMutex
	name       string
	sectorSize uint32
	policy     config.Policy
	tree       *interval.Tree
	slots      slots.Table[*Request]
	registry   *btree.BTreeG[registryEntry]
	seq        uint64
	log        logr.Logger
}

// New returns an extent configured by cfg, a nil cfg selects the defaults.
func New(cfg *config.Config, log logr.Logger) (*Extent, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cannot create extent: %w", err)
	}
	st, err := slots.NewTable[*Request](cfg.MaxInFlight)
	if err != nil {
		return nil, fmt.Errorf("cannot create extent %s: %w", cfg.Name, err)
	}
	return &Extent{
		m:          new(sync.RWMutex),
		name:       cfg.Name,
		sectorSize: cfg.SectorSize,
		policy:     cfg.Policy,
		tree:       interval.New(cfg.Name, cfg.SectorSize),
		slots:      st,
		registry:   btree.NewG[registryEntry](registryDegree, lessEntry),
		log:        log.WithValues("extent", cfg.Name),
	}, nil
}

func (r *Extent) Name() string { return r.name }

// Begin registers req and blocks until no earlier conflicting request
// overlaps it. When ctx is done first, req is withdrawn and the context error
// returned.
func (r *Extent) Begin(ctx context.Context, req *Request) error {
	if err := r.validate(req.Start(), req.Length()); err != nil {
		return err
	}

	r.m.Lock()
	if req.state != StatePending || req.IsMember() {
		r.m.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyStarted, req)
	}
	req.init()
	slot, err := r.slots.ClaimDynamic(req)
	if err != nil {
		r.m.Unlock()
		if errors.Is(err, slots.ErrFull) {
			return fmt.Errorf("%w: extent %s, %s", ErrTooManyRequests, r.name, req)
		}
		return err
	}
	r.seq++
	req.seq = r.seq
	req.slot = slot
	r.tree.Insert(&req.Interval)
	r.registry.ReplaceOrInsert(registryEntry{id: req.ID(), req: req})

	for {
		if req.state == StateCompleted {
			r.m.Unlock()
			return fmt.Errorf("%w: %s", ErrEnded, req)
		}
		blocker := r.blocker(req)
		if blocker == nil {
			req.state = StateAdmitted
			r.m.Unlock()
			r.log.V(1).Info("request admitted", "request", req.String(), "slot", slot, "waits", req.waits)
			return nil
		}
		req.waits++
		r.m.Unlock()

		r.log.V(1).Info("request waiting", "request", req.String(), "blocker", blocker.String())
		select {
		case <-blocker.done:
		case <-ctx.Done():
			r.m.Lock()
			r.remove(req)
			r.m.Unlock()
			r.log.V(1).Info("request abandoned", "request", req.String(), "err", ctx.Err())
			return fmt.Errorf("request %s: %w", req, ctx.Err())
		}
		r.m.Lock()
	}
}

// End completes req and wakes every request waiting for it. Ending a request
// that is not tracked by r is a no-op.
func (r *Extent) End(req *Request) {
	r.m.Lock()
	defer r.m.Unlock()

	r.remove(req)
}

// TryBegin registers req only if it can be admitted right away. It reports
// whether req was admitted; on false req stays pending and can be begun later.
func (r *Extent) TryBegin(req *Request) (bool, error) {
	if err := r.validate(req.Start(), req.Length()); err != nil {
		return false, err
	}
	r.m.Lock()
	defer r.m.Unlock()

	if req.state != StatePending || req.IsMember() {
		return false, fmt.Errorf("%w: %s", ErrAlreadyStarted, req)
	}
	req.init()
	for iv := r.tree.FindOverlap(req.Start(), req.Length()); iv != nil; iv = r.tree.NextOverlap(iv, req.Start(), req.Length()) {
		if r.conflicts(r.lookup(iv.ID()), req) {
			return false, nil
		}
	}
	slot, err := r.slots.ClaimDynamic(req)
	if err != nil {
		if errors.Is(err, slots.ErrFull) {
			return false, fmt.Errorf("%w: extent %s, %s", ErrTooManyRequests, r.name, req)
		}
		return false, err
	}
	r.seq++
	req.seq = r.seq
	req.slot = slot
	req.state = StateAdmitted
	r.tree.Insert(&req.Interval)
	r.registry.ReplaceOrInsert(registryEntry{id: req.ID(), req: req})
	r.log.V(1).Info("request admitted", "request", req.String(), "slot", slot)
	return true, nil
}

// Conflicts returns the tracked requests overlapping [start, start+length)
// in ascending start order.
func (r *Extent) Conflicts(start uint64, length uint32) ([]*Request, error) {
	if err := r.validate(start, length); err != nil {
		return nil, err
	}
	r.m.RLock()
	defer r.m.RUnlock()

	var reqs []*Request
	for iv := r.tree.FindOverlap(start, length); iv != nil; iv = r.tree.NextOverlap(iv, start, length) {
		reqs = append(reqs, r.lookup(iv.ID()))
	}
	return reqs, nil
}

// Contains reports whether the request with the given id is tracked at
// sector start. A stale id is safe to pass.
func (r *Extent) Contains(start uint64, id interval.ID) bool {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.tree.Contains(start, id)
}

func (r *Extent) Get(id interval.ID) (*Request, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	e, ok := r.registry.Get(registryEntry{id: id})
	if !ok {
		return nil, fmt.Errorf("%w: extent %s, id %d", ErrNotFound, r.name, id)
	}
	return e.req, nil
}

// GetByLabel returns the tracked requests matching selector in id order.
func (r *Extent) GetByLabel(selector labels.Selector) []*Request {
	r.m.RLock()
	defer r.m.RUnlock()

	reqs := []*Request{}
	r.registry.Ascend(func(e registryEntry) bool {
		if selector.Matches(e.req.labels) {
			reqs = append(reqs, e.req)
		}
		return true
	})
	return reqs
}

func (r *Extent) GetAll() []*Request {
	return r.GetByLabel(labels.Everything())
}

// GetBySlot returns the request holding the given in-flight slot.
func (r *Extent) GetBySlot(slot int64) (*Request, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	req, err := r.slots.Get(slot)
	if err != nil {
		return nil, fmt.Errorf("%w: extent %s: %w", ErrNotFound, r.name, err)
	}
	return req, nil
}

// Stats counts the tracked requests per state.
type Stats struct {
	Capacity int64
	InFlight int
	Admitted int
	Waiting  int
}

// Stats returns a snapshot of the slot usage of r.
func (r *Extent) Stats() Stats {
	r.m.RLock()
	defer r.m.RUnlock()

	s := Stats{Capacity: r.slots.Size(), InFlight: r.slots.Count()}
	for iter := r.slots.Iterate(); iter.Next(); {
		if iter.Value().state == StateAdmitted {
			s.Admitted++
		} else {
			s.Waiting++
		}
	}
	return s
}

func (r *Extent) Count() int {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.tree.Len()
}

func (r *Extent) validate(start uint64, length uint32) error {
	if length == 0 || length%r.sectorSize != 0 {
		return fmt.Errorf("%w: extent %s, start %d, length %d, sector size %d",
			interval.ErrMisaligned, r.name, start, length, r.sectorSize)
	}
	if sectors := uint64(length / r.sectorSize); start > math.MaxUint64-sectors {
		return fmt.Errorf("%w: extent %s, start %d, length %d", interval.ErrOverflow, r.name, start, length)
	}
	return nil
}

// blocker returns an earlier request that overlaps req and conflicts with it.
func (r *Extent) blocker(req *Request) *Request {
	start, length := req.Start(), req.Length()
	for iv := r.tree.FindOverlap(start, length); iv != nil; iv = r.tree.NextOverlap(iv, start, length) {
		other := r.lookup(iv.ID())
		if other == req || other.seq > req.seq {
			continue
		}
		if r.conflicts(other, req) {
			return other
		}
	}
	return nil
}

func (r *Extent) conflicts(a, b *Request) bool {
	if r.policy == config.PolicySharedReads {
		return a.IsWrite() || b.IsWrite()
	}
	return true
}

func (r *Extent) lookup(id interval.ID) *Request {
	e, ok := r.registry.Get(registryEntry{id: id})
	if !ok {
		panic(fmt.Sprintf("extent %s: interval %d in tree but not registered - should be impossible!", r.name, id))
	}
	return e.req
}

// remove withdraws req; it must be called with r.m held.
func (r *Extent) remove(req *Request) {
	if req.Tree() != r.tree {
		return
	}
	r.tree.Remove(&req.Interval)
	r.registry.Delete(registryEntry{id: req.ID()})
	if err := r.slots.Release(req.slot); err != nil {
		panic(fmt.Sprintf("extent %s: release slot %d: %v", r.name, req.slot, err))
	}
	req.slot = -1
	req.state = StateCompleted
	close(req.done)
}
