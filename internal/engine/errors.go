package engine

import "fmt"

// StoreErrorKind classifies record store failures so callers can decide
// whether a retry is worthwhile. This package never retries on its own.
type StoreErrorKind string

const (
	StoreThrottled StoreErrorKind = "throttled"
	StoreNotFound  StoreErrorKind = "not_found"
	StoreUnknown   StoreErrorKind = "unknown"
)

// StoreError is a failure surfaced by a RecordStore implementation.
type StoreError struct {
	Kind StoreErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("record store %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("record store %s", e.Kind)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err with a store failure kind.
func NewStoreError(kind StoreErrorKind, err error) *StoreError {
	return &StoreError{Kind: kind, Err: err}
}

// ObjectStoreErrorKind classifies object store failures.
type ObjectStoreErrorKind string

const (
	ObjectNotFound     ObjectStoreErrorKind = "not_found"
	ObjectAccessDenied ObjectStoreErrorKind = "access_denied"
	ObjectUnknown      ObjectStoreErrorKind = "unknown"
)

// ObjectStoreError is a failure surfaced by an ObjectStore implementation.
type ObjectStoreError struct {
	Kind ObjectStoreErrorKind
	Err  error
}

func (e *ObjectStoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("object store %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("object store %s", e.Kind)
}

func (e *ObjectStoreError) Unwrap() error { return e.Err }

// NewObjectStoreError wraps err with an object store failure kind.
func NewObjectStoreError(kind ObjectStoreErrorKind, err error) *ObjectStoreError {
	return &ObjectStoreError{Kind: kind, Err: err}
}

// ConfigError reports missing or malformed configuration, including key
// material. It is fatal at startup and never caught and retried.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config: " + e.Msg }

// NewConfigError creates a ConfigError with the given message.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}
