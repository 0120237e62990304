package traffic

import (
	"errors"
	"fmt"
)

var (
	// ErrSerializerClosed is returned when work is submitted after Close.
	ErrSerializerClosed = errors.New("write serializer closed")

	// ErrInvalidURL is returned when an override URL cannot be used as a prefix.
	ErrInvalidURL = errors.New("invalid override url")

	// ErrUnknownMessage is returned for unsupported control messages.
	ErrUnknownMessage = errors.New("unknown control message")
)

// StorageError represents an error from the durable backend.
type StorageError struct {
	Backend   string // "memory", "sqlite"
	Operation string // "get", "set", "decode", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// RuleError represents a rejected change to the active override rule set.
type RuleError struct {
	RuleID    int
	Operation string // "set", "clear", "update"
	Cause     error
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("rule error [rule_id=%d, operation=%s]: %v", e.RuleID, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RuleError) Unwrap() error {
	return e.Cause
}

// NewRuleError creates a new RuleError.
func NewRuleError(ruleID int, operation string, cause error) *RuleError {
	return &RuleError{
		RuleID:    ruleID,
		Operation: operation,
		Cause:     cause,
	}
}

// ControlError represents a malformed or failed control message.
type ControlError struct {
	Type    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ControlError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("control error [type=%s]: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("control error [type=%s]: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ControlError) Unwrap() error {
	return e.Cause
}

// NewControlError creates a new ControlError.
func NewControlError(msgType, message string, cause error) *ControlError {
	return &ControlError{
		Type:    msgType,
		Message: message,
		Cause:   cause,
	}
}
