package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("authentication credentials were not provided")
	ErrForbidden    = errors.New("you do not have permission to perform this action")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrInvalidCode  = errors.New("invalid confirmation code")
	ErrCodeResent   = errors.New("Письмо повторно направлено на почту")
	ErrAlreadyTaken = errors.New("username и/или email уже заняты")
)

// notFound names the missing resource while still matching ErrNotFound.
type notFound string

func (e notFound) Error() string        { return string(e) + " not found" }
func (e notFound) Is(target error) bool { return target == ErrNotFound }

// NotFound returns an error for a missing resource of the given kind.
func NotFound(resource string) error {
	return notFound(resource)
}

// ValidationError carries per-field messages for a 400 response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
