package resource

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/jsamuelsen11/go-daemon-core/internal/ports"
)

// Compile-time interface check.
var _ ports.HealthChecker = (*Pool)(nil)

// Pool owns resources and finalizes them when freed or when it closes.
// The pool lock only protects membership; finalizers always run outside it,
// because finalizing a coroutine blocks until that coroutine exits.
type Pool struct {
	name   string
	parent *Pool

	mu     sync.Mutex
	items  []Resource
	closed bool

	// finalized is closed once every resource taken at close time has been
	// finalized.
	finalized chan struct{}
}

// NewPool creates a pool owned by parent, or a free-standing pool when
// parent is nil. Creating a pool in a closed parent is a violation.
func NewPool(parent *Pool, name string) *Pool {
	p, err := OpenPool(parent, name)
	if err != nil {
		fail(ErrPoolClosed, parent.name)
	}
	return p
}

// OpenPool is [NewPool] for callers that race with the parent's shutdown:
// it returns an error wrapping [ErrPoolClosed] instead of aborting when
// parent is already closed.
func OpenPool(parent *Pool, name string) (*Pool, error) {
	p := &Pool{name: name, parent: parent, finalized: make(chan struct{})}
	if parent != nil {
		if err := parent.TryAdd(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Class returns [PoolClass].
func (p *Pool) Class() *Class { return PoolClass }

// Add transfers ownership of r to p. Adding to a closed pool is a
// violation.
func (p *Pool) Add(r Resource) {
	if err := p.TryAdd(r); err != nil {
		fail(ErrPoolClosed, p.name)
	}
}

// TryAdd is [Pool.Add] that reports a closed pool as an error wrapping
// [ErrPoolClosed]. Every other misuse still aborts.
func (p *Pool) TryAdd(r Resource) error {
	if !Registered(r.Class()) {
		fail(ErrUnregisteredClass, r.Class().Name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("pool %s: %w", p.name, ErrPoolClosed)
	}
	if slices.Contains(p.items, r) {
		fail(ErrDuplicate, describe(r))
	}
	p.items = append(p.items, r)
	return nil
}

// Free removes r from p and finalizes it. Freeing a resource p does not own
// is a violation, which makes double frees fatal.
func (p *Pool) Free(r Resource) {
	if !p.remove(r) {
		fail(ErrNotMember, fmt.Sprintf("%s in pool %s", describe(r), p.name))
		return
	}
	r.Finalize()
}

func (p *Pool) remove(r Resource) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := slices.Index(p.items, r)
	if i < 0 {
		return false
	}
	p.items = slices.Delete(p.items, i, i+1)
	return true
}

// Contains reports whether p currently owns r.
func (p *Pool) Contains(r Resource) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.items, r)
}

// Len returns the number of resources owned directly by p.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Close detaches p from its parent and finalizes everything it owns. If p
// is already closed, including by a parent that closed first, Close only
// waits for that finalization to finish. It must not be called from a
// finalizer of one of p's own resources.
func (p *Pool) Close() {
	if p.parent != nil && !p.parent.remove(p) {
		<-p.finalized
		return
	}
	items, ok := p.shut()
	if !ok {
		<-p.finalized
		return
	}
	p.finalizeAll(items)
}

// Finalize finalizes every owned resource, newest first, and marks p
// closed. Parents call it exactly once; everyone else calls [Pool.Close].
func (p *Pool) Finalize() {
	items, ok := p.shut()
	if !ok {
		fail(ErrPoolClosed, p.name)
		return
	}
	p.finalizeAll(items)
}

// shut marks p closed and takes its resources. It reports false if p was
// already closed.
func (p *Pool) shut() ([]Resource, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, false
	}
	p.closed = true
	items := p.items
	p.items = nil
	return items, true
}

func (p *Pool) finalizeAll(items []Resource) {
	defer close(p.finalized)
	for i := len(items) - 1; i >= 0; i-- {
		items[i].Finalize()
	}
}

// Closed reports whether p has been finalized.
func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// HealthCheck reports an error once the pool is closed.
func (p *Pool) HealthCheck(_ context.Context) error {
	if p.Closed() {
		return fmt.Errorf("pool %s: %w", p.name, ErrPoolClosed)
	}
	return nil
}

// ResourceInfo describes one owned resource.
type ResourceInfo struct {
	Class string `json:"class"`
	Name  string `json:"name,omitempty"`
}

// PoolInfo is a snapshot of a pool subtree.
type PoolInfo struct {
	Name      string         `json:"name"`
	Closed    bool           `json:"closed,omitempty"`
	Resources []ResourceInfo `json:"resources,omitempty"`
	Pools     []PoolInfo     `json:"pools,omitempty"`
}

// Dump returns a snapshot of p and every nested pool.
func (p *Pool) Dump() PoolInfo {
	p.mu.Lock()
	items := slices.Clone(p.items)
	info := PoolInfo{Name: p.name, Closed: p.closed}
	p.mu.Unlock()

	for _, r := range items {
		if child, ok := r.(*Pool); ok {
			info.Pools = append(info.Pools, child.Dump())
			continue
		}
		ri := ResourceInfo{Class: r.Class().Name}
		if n, ok := r.(Named); ok {
			ri.Name = n.Name()
		}
		info.Resources = append(info.Resources, ri)
	}
	return info
}

func describe(r Resource) string {
	if n, ok := r.(Named); ok {
		return fmt.Sprintf("%s %q", r.Class().Name, n.Name())
	}
	return r.Class().Name
}
