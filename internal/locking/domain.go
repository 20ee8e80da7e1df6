package locking

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Domain is one lock of a given [Kind]. While held, lockedBy points at the
// owning stack and prev at the domain the same stack locked just before it;
// while free both are nil.
type Domain struct {
	mu   sync.Mutex
	kind Kind
	name string

	// Written only by the holder, under mu.
	prev     *Domain
	lockedAt time.Time

	lockedBy  atomic.Pointer[Stack]
	destroyed atomic.Bool
	static    bool
}

// New creates a free domain of kind k. The name appears in diagnostics only.
func New(k Kind, name string) *Domain {
	mustBeReady()
	if !k.Valid() {
		Fail(&Violation{Err: ErrBadOrder, Domain: name, Kind: k})
	}

	d := &Domain{kind: k, name: name}
	registry.add(d)
	return d
}

// Destroy retires d. Destroying a held domain, the legacy domain, or an
// already destroyed domain is a violation.
func (d *Domain) Destroy() {
	if d.static {
		Fail(NewViolation(ErrStaticDomain, d))
	}
	if d.lockedBy.Load() != nil {
		Fail(NewViolation(ErrDestroyHeld, d))
	}
	if !d.destroyed.CompareAndSwap(false, true) {
		Fail(NewViolation(ErrDestroyed, d))
	}
	registry.remove(d)
}

// Name returns the diagnostic name.
func (d *Domain) Name() string { return d.name }

// Kind returns the rank of d in the lock order.
func (d *Domain) Kind() Kind { return d.kind }

// Held reports whether any stack currently holds d.
func (d *Domain) Held() bool {
	return d.lockedBy.Load() != nil
}

// HeldBy reports whether s holds d.
func (d *Domain) HeldBy(s *Stack) bool {
	return s != nil && d.lockedBy.Load() == s
}

// DomainInfo is a diagnostic snapshot of one live domain.
type DomainInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Rank int    `json:"rank"`
	Held bool   `json:"held"`
}

// Domains returns a snapshot of every live domain, legacy included, ordered
// by rank and then name.
func Domains() []DomainInfo {
	live := registry.snapshot()
	live = append(live, legacy)

	out := make([]DomainInfo, 0, len(live))
	for _, d := range live {
		out = append(out, DomainInfo{
			Name: d.name,
			Kind: d.kind.String(),
			Rank: int(d.kind),
			Held: d.Held(),
		})
	}
	slices.SortFunc(out, func(a, b DomainInfo) int {
		if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// domainRegistry tracks live domains for diagnostics. It sits below the
// lock order itself, so it uses a plain mutex.
type domainRegistry struct {
	mu   sync.Mutex
	live map[*Domain]struct{}
}

var registry = &domainRegistry{live: make(map[*Domain]struct{})}

func (r *domainRegistry) add(d *Domain) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[d] = struct{}{}
}

func (r *domainRegistry) remove(d *Domain) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, d)
}

func (r *domainRegistry) snapshot() []*Domain {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Domain, 0, len(r.live)+1)
	for d := range r.live {
		out = append(out, d)
	}
	return out
}
