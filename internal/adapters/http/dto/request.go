package dto

import (
	"net/url"
	"strconv"

	"github.com/jsamuelsen11/go-daemon-core/internal/domain"
	"github.com/jsamuelsen11/go-daemon-core/internal/locking"
)

const (
	msgUnknownKind = "unknown lock kind"
	msgMustBeBool  = "must be true or false"
)

// DomainFilter narrows GET /debug/domains. Zero fields match everything.
type DomainFilter struct {
	Kind string
	Held *bool
}

// ParseDomainFilter reads the kind and held query parameters.
// Returns a *domain.ValidationError if any parameter is invalid.
func ParseDomainFilter(q url.Values) (DomainFilter, error) {
	fields := make(map[string]string)
	var f DomainFilter

	if kind := q.Get("kind"); kind != "" {
		if !knownKind(kind) {
			fields["kind"] = msgUnknownKind
		}
		f.Kind = kind
	}
	if raw := q.Get("held"); raw != "" {
		held, err := strconv.ParseBool(raw)
		if err != nil {
			fields["held"] = msgMustBeBool
		} else {
			f.Held = &held
		}
	}

	if len(fields) > 0 {
		return DomainFilter{}, &domain.ValidationError{Fields: fields}
	}
	return f, nil
}

// Match reports whether info passes the filter.
func (f DomainFilter) Match(info locking.DomainInfo) bool {
	if f.Kind != "" && info.Kind != f.Kind {
		return false
	}
	if f.Held != nil && info.Held != *f.Held {
		return false
	}
	return true
}

func knownKind(name string) bool {
	for _, k := range locking.Kinds() {
		if k.String() == name {
			return true
		}
	}
	return false
}
