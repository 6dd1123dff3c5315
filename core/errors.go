package core

import (
	"errors"
	"fmt"
)

// Validation errors. They are raised before any state is mutated.
var (
	ErrKeyTooLong        = errors.New("key too long")
	ErrUnsupportedType   = errors.New("unsupported value type")
	ErrNestingTooDeep    = errors.New("collection nested too deep")
	ErrInvalidKeyType    = errors.New("key must be a string")
	ErrInvalidKey        = errors.New("invalid key")
	ErrUnknownField      = errors.New("unknown field")
	ErrFieldKindMismatch = errors.New("field kind mismatch")
)

// State errors.
var (
	ErrCannotRemoveCollection = errors.New("can not remove a populated collection")
	ErrNotFound               = errors.New("not found")
	ErrCollectionAttached     = errors.New("collection already attached")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrNoCode                 = errors.New("account has no code")
	ErrLibraryNotCallable     = errors.New("library can not be called")
	ErrDependencyNotLibrary   = errors.New("dependency is not a library")
)

// Execution errors.
var (
	ErrCorruptEncoding   = errors.New("corrupt encoding")
	ErrMethodNotFound    = errors.New("method not found")
	ErrCallDepthExceeded = errors.New("call depth exceeded")
	ErrReentrantCall     = errors.New("reentrant call")
	ErrRequireFailed     = errors.New("require failed")
)

// ValidationError reports a rejected key or value.
type ValidationError struct {
	Kind   error
	Key    string
	Detail string
}

func (e *ValidationError) Error() string {
	msg := e.Kind.Error()
	if e.Key != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Key)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// StateError reports an operation that the current state does not allow.
type StateError struct {
	Kind error
	Key  string
}

func (e *StateError) Error() string {
	if e.Key == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Key)
}

func (e *StateError) Unwrap() error { return e.Kind }

// CorruptEncodingError is returned when stored bytes can not be decoded.
type CorruptEncodingError struct {
	Key    string
	Data   []byte
	Reason string
}

func (e *CorruptEncodingError) Error() string {
	return fmt.Sprintf("corrupt encoding at %q: %s", e.Key, e.Reason)
}

func (e *CorruptEncodingError) Is(target error) bool { return target == ErrCorruptEncoding }

// MethodNotFoundError is returned when the called method is not in the
// contract's method table.
type MethodNotFoundError struct {
	Contract Address
	Method   string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method %q not found on contract %s", e.Method, e.Contract)
}

func (e *MethodNotFoundError) Is(target error) bool { return target == ErrMethodNotFound }

// CallError wraps the failure of a nested contract call.
type CallError struct {
	Contract Address
	Method   string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call %s.%s: %v", e.Contract, e.Method, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// PanicError holds a value recovered from a panicking contract method.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("contract panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
