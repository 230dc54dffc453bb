package parser

import (
	"errors"
	"fmt"
)

// ParseError represents an error detected while resolving a query or
// registering handlers.
//
// Parse errors are never recovered inside the parser. They abort the
// current pass or registration and propagate to the caller.
type ParseError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Key is the dispatch key involved, when there is one.
	Key string

	// PassID identifies the resolution pass, when there is one.
	PassID string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes parse errors.
type ErrorCode string

const (
	// ErrCodeUnimplementedRemote indicates a key reached a remote pass
	// without a registered remote policy.
	ErrCodeUnimplementedRemote ErrorCode = "UNIMPLEMENTED_REMOTE_BEHAVIOR"

	// ErrCodeMalformedIdent indicates a value where an ident was required
	// is not a well-formed ident.
	ErrCodeMalformedIdent ErrorCode = "MALFORMED_IDENT"

	// ErrCodeDuplicateHandler indicates a second handler for the same key.
	ErrCodeDuplicateHandler ErrorCode = "DUPLICATE_HANDLER"
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Key != "" && e.PassID != "" {
		return fmt.Sprintf("%s: %s (key=%s, pass=%s)", e.Code, e.Message, e.Key, e.PassID)
	}
	if e.Key != "" {
		return fmt.Sprintf("%s: %s (key=%s)", e.Code, e.Message, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnimplementedRemote returns true if the error reports a missing remote
// policy. Uses errors.As to handle wrapped errors.
func IsUnimplementedRemote(err error) bool {
	return hasCode(err, ErrCodeUnimplementedRemote)
}

// IsMalformedIdent returns true if the error reports a malformed ident.
func IsMalformedIdent(err error) bool {
	return hasCode(err, ErrCodeMalformedIdent)
}

// IsDuplicateHandler returns true if the error reports a duplicate
// registration.
func IsDuplicateHandler(err error) bool {
	return hasCode(err, ErrCodeDuplicateHandler)
}

func hasCode(err error, code ErrorCode) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// NewUnimplementedRemoteError creates a ParseError for a key with no
// remote policy.
func NewUnimplementedRemoteError(key string) *ParseError {
	return &ParseError{
		Code:    ErrCodeUnimplementedRemote,
		Message: fmt.Sprintf("no remote behavior registered for %s", key),
		Key:     key,
	}
}

// NewMalformedIdentError creates a ParseError for a non-ident value found
// at path where an ident was expected.
func NewMalformedIdentError(key, path string, got any) *ParseError {
	return &ParseError{
		Code:    ErrCodeMalformedIdent,
		Message: fmt.Sprintf("expected ident at %s, got %T", path, got),
		Key:     key,
		Details: map[string]string{
			"path": path,
			"got":  fmt.Sprintf("%v", got),
		},
	}
}

// NewIdentCycleError creates a ParseError for an ident whose resolution
// leads back to the same ident.
func NewIdentCycleError(table, ident string) *ParseError {
	return &ParseError{
		Code:    ErrCodeMalformedIdent,
		Message: fmt.Sprintf("ident %s resolves back to itself", ident),
		Key:     table,
		Details: map[string]string{"ident": ident},
	}
}

// NewDuplicateHandlerError creates a ParseError for a repeated
// registration of kind ("local", "remote" or "mutation") under key.
func NewDuplicateHandlerError(kind, key string) *ParseError {
	return &ParseError{
		Code:    ErrCodeDuplicateHandler,
		Message: fmt.Sprintf("%s handler already registered", kind),
		Key:     key,
		Details: map[string]string{"kind": kind},
	}
}
