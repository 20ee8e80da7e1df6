// Package dto provides the admin API's response bodies, query parsing, and
// RFC 9457 Problem Details error responses.
package dto

import (
	"github.com/jsamuelsen11/go-daemon-core/internal/locking"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/procstat"
	"github.com/jsamuelsen11/go-daemon-core/internal/resource"
)

// HealthResponse is the body of the liveness and readiness endpoints.
// Failed lists the names of failing checkers, sorted.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Failed []string          `json:"failed,omitempty"`
}

// DomainResponse describes one live lock domain.
type DomainResponse struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Rank int    `json:"rank"`
	Held bool   `json:"held"`
}

// DomainListResponse lists live lock domains in lock order.
type DomainListResponse struct {
	Domains []DomainResponse `json:"domains"`
	Count   int              `json:"count"`
	Held    int              `json:"held"`
}

// ToDomainListResponse converts the domains passing f.
func ToDomainListResponse(infos []locking.DomainInfo, f DomainFilter) DomainListResponse {
	resp := DomainListResponse{Domains: make([]DomainResponse, 0, len(infos))}
	for _, info := range infos {
		if !f.Match(info) {
			continue
		}
		resp.Domains = append(resp.Domains, DomainResponse(info))
		if info.Held {
			resp.Held++
		}
	}
	resp.Count = len(resp.Domains)
	return resp
}

// KindResponse describes one rank of the global lock order.
type KindResponse struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// KindListResponse is the global lock order, first to last.
type KindListResponse struct {
	Kinds []KindResponse `json:"kinds"`
}

// ToKindListResponse converts the declared lock order.
func ToKindListResponse(kinds []locking.Kind) KindListResponse {
	resp := KindListResponse{Kinds: make([]KindResponse, len(kinds))}
	for i, k := range kinds {
		resp.Kinds[i] = KindResponse{Name: k.String(), Rank: int(k)}
	}
	return resp
}

// PoolResponse describes a pool subtree.
type PoolResponse struct {
	Name      string             `json:"name"`
	Closed    bool               `json:"closed,omitempty"`
	Resources []ResourceResponse `json:"resources"`
	Pools     []PoolResponse     `json:"pools"`
	Total     int                `json:"total"`
}

// ResourceResponse describes one pool-owned resource.
type ResourceResponse struct {
	Class string `json:"class"`
	Name  string `json:"name,omitempty"`
}

// ToPoolResponse converts a pool snapshot. Total counts every resource in
// the subtree, nested pools included.
func ToPoolResponse(info resource.PoolInfo) PoolResponse {
	resp := PoolResponse{
		Name:      info.Name,
		Closed:    info.Closed,
		Resources: make([]ResourceResponse, len(info.Resources)),
		Pools:     make([]PoolResponse, len(info.Pools)),
		Total:     len(info.Resources) + len(info.Pools),
	}
	for i, r := range info.Resources {
		resp.Resources[i] = ResourceResponse(r)
	}
	for i, p := range info.Pools {
		resp.Pools[i] = ToPoolResponse(p)
		resp.Total += resp.Pools[i].Total
	}
	return resp
}

// FindPool returns the first pool named name in a depth-first walk of info.
func FindPool(info resource.PoolInfo, name string) (resource.PoolInfo, bool) {
	if info.Name == name {
		return info, true
	}
	for _, child := range info.Pools {
		if found, ok := FindPool(child, name); ok {
			return found, true
		}
	}
	return resource.PoolInfo{}, false
}

// ProcessResponse is a sample of the daemon process.
type ProcessResponse struct {
	PID        int32  `json:"pid"`
	Threads    int32  `json:"threads"`
	Goroutines int    `json:"goroutines"`
	RSSBytes   uint64 `json:"rss_bytes"`
}

// ToProcessResponse converts a process sample.
func ToProcessResponse(s procstat.Snapshot) ProcessResponse {
	return ProcessResponse(s)
}
