package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownLevel is returned for a scope level other than account, org or project.
	ErrUnknownLevel = errors.New("unknown scope level")
	// ErrTemplateCycle is returned when a template references itself, directly or transitively.
	ErrTemplateCycle = errors.New("template reference cycle")
)

// FetchError is a transport or HTTP failure talking to the remote platform.
type FetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError is a pipeline or template body that could not be decoded.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.What, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ResolutionError is a template reference that could not be turned into a ResolvedTemplate.
type ResolutionError struct {
	Ref string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve template %q: %v", e.Ref, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// EnumerationError is a failure listing organizations or projects. It aborts the run.
type EnumerationError struct {
	What string
	Err  error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("list %s: %v", e.What, e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }
