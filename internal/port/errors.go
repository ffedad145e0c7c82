package port

import (
	"errors"
	"sort"
	"strings"
)

// Sentinel errors used across ports.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenInvalid        = errors.New("token invalid")
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailExists         = errors.New("an account with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExpired      = errors.New("session expired")
	ErrUnknownProvider     = errors.New("unknown auth provider")
	ErrProviderUnavailable = errors.New("llm provider not configured")
	ErrGeneratorNotFound   = errors.New("generator not found")
	ErrUnparsableOutput    = errors.New("model output could not be parsed")
	ErrEmptyOutput         = errors.New("model returned an empty reply")
	ErrProfileConflict     = errors.New("profile changed concurrently")
	ErrValidation          = errors.New("validation failed")
)

// ValidationError carries per-field messages. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
