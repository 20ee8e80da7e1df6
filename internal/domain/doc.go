// Package domain holds the error taxonomy shared by the daemon's outer
// surfaces. Invariant violations inside the core never become errors: they
// abort through locking.Fail. The errors here describe requests the core
// could not serve.
package domain
