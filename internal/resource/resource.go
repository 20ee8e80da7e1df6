// Package resource provides the pools that own the daemon's long-lived
// objects. A resource belongs to exactly one pool and is finalized exactly
// once: when it is freed explicitly, or when its pool is closed.
//
// Pools nest: a pool is itself a resource of its parent, so closing a pool
// finalizes its whole subtree, newest resources first.
//
// Every resource class must be registered before the first resource of that
// class is added; components register their classes from their own startup
// hooks.
package resource

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jsamuelsen11/go-daemon-core/internal/locking"
)

// Sentinel errors for pool misuse. Misuse is a programming error and aborts
// through [locking.Fail].
var (
	ErrUnregisteredClass = errors.New("resource class not registered")
	ErrPoolClosed        = errors.New("resource pool closed")
	ErrNotMember         = errors.New("resource not owned by pool")
	ErrDuplicate         = errors.New("resource already owned by pool")
)

// Class describes a kind of pool-owned resource.
type Class struct {
	Name string
}

// Resource is an object whose lifetime a pool owns.
type Resource interface {
	// Class returns the resource class.
	Class() *Class

	// Finalize releases everything the resource holds. The pool calls it
	// exactly once, without holding any pool lock.
	Finalize()
}

// Named is implemented by resources that carry their own diagnostic name.
type Named interface {
	Name() string
}

var classes = struct {
	sync.RWMutex
	m map[*Class]struct{}
}{m: make(map[*Class]struct{})}

// RegisterClass makes c available to pools. Registering twice is harmless.
func RegisterClass(c *Class) {
	classes.Lock()
	defer classes.Unlock()
	classes.m[c] = struct{}{}
}

// Registered reports whether c was registered.
func Registered(c *Class) bool {
	classes.RLock()
	defer classes.RUnlock()
	_, ok := classes.m[c]
	return ok
}

// PoolClass is the class of pools nested in other pools.
var PoolClass = &Class{Name: "Pool"}

var (
	rootMu sync.Mutex
	root   *Pool
)

// Init registers the pool class and creates the root pool. It must run
// before any pool is used; running it again replaces the root pool.
func Init() *Pool {
	RegisterClass(PoolClass)

	rootMu.Lock()
	defer rootMu.Unlock()
	root = NewPool(nil, "Root")
	return root
}

// Root returns the pool created by [Init].
func Root() *Pool {
	rootMu.Lock()
	defer rootMu.Unlock()
	if root == nil {
		fail(ErrPoolClosed, "Root")
	}
	return root
}

func fail(err error, what string) {
	locking.Fail(&locking.Violation{Err: fmt.Errorf("%w: %s", err, what), Kind: -1})
}
