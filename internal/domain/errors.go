package domain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrUnavailable = errors.New("unavailable")
)

// ValidationError carries one message per rejected field. It matches
// ErrValidation under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(ErrValidation.Error())
	for i, field := range slices.Sorted(maps.Keys(e.Fields)) {
		sep := "; "
		if i == 0 {
			sep = ": "
		}
		b.WriteString(sep + field + ": " + e.Fields[field])
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError names a missing pool, sampler or other admin object. It
// matches ErrNotFound under errors.Is.
type NotFoundError struct {
	What string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.What, e.Name, ErrNotFound)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
