package locking

import "fmt"

// Kind is the rank of a domain in the global lock order. A domain of a lower
// kind must be locked before a domain of a higher kind whenever a goroutine
// holds both.
type Kind int

// Global lock order, first to last.
const (
	// KindLegacy is the whole daemon. Only the legacy domain has this kind.
	KindLegacy Kind = iota

	// KindService guards process-wide service state (health, registries).
	KindService

	// KindTable guards a routing table or similar keyed store.
	KindTable

	// KindAttrs guards shared attribute caches used by tables.
	KindAttrs

	kindCount
)

var kindNames = [kindCount]string{
	KindLegacy:  "the_daemon",
	KindService: "service",
	KindTable:   "table",
	KindAttrs:   "attrs",
}

// Kinds returns every declared kind in lock order.
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Valid reports whether k is a declared kind.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// checkKindTable verifies that every declared kind has a distinct name.
func checkKindTable() error {
	seen := make(map[string]Kind, kindCount)
	for k := range kindCount {
		name := kindNames[k]
		if name == "" {
			return fmt.Errorf("lock kind %d has no name", int(k))
		}
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("lock kinds %d and %d share the name %q", int(prev), int(k), name)
		}
		seen[name] = k
	}
	return nil
}
