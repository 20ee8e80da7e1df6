// Package ports defines interfaces between the daemon core and its adapters.
// Adapters (the admin HTTP surface) depend on these interfaces; the platform
// packages implement them.
package ports
