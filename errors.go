// Package culite structured error types for better error handling
package culite

import (
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Memory errors
	ErrTypeMemory ErrorType = iota
	// Invalid argument errors
	ErrTypeInvalidArg
	// Execution errors
	ErrTypeExecution
	// Device errors
	ErrTypeDevice
	// Module loading and symbol resolution errors
	ErrTypeModule
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying error if any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("culite %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("culite %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeMemory:
		return "Memory"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	case ErrTypeExecution:
		return "Execution"
	case ErrTypeDevice:
		return "Device"
	case ErrTypeModule:
		return "Module"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewMemoryError creates a memory-related error
func NewMemoryError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeMemory,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &Error{
		Type:    ErrTypeInvalidArg,
		Op:      op,
		Message: message,
	}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeExecution,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewDeviceError creates a device error
func NewDeviceError(op string, message string) error {
	return &Error{
		Type:    ErrTypeDevice,
		Op:      op,
		Message: message,
	}
}

// NewModuleError creates a module loading or symbol resolution error
func NewModuleError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeModule,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Common pre-defined errors

var (
	// ErrNotInitialized indicates the runtime has not been initialized with Init
	ErrNotInitialized = NewDeviceError("Init", "runtime not initialized")

	// ErrInvalidDevice indicates an invalid device ID
	ErrInvalidDevice = NewDeviceError("DeviceGet", "invalid device ID")

	// ErrContextDestroyed indicates use of a context after Destroy
	ErrContextDestroyed = NewInvalidArgError("Context", "context has been destroyed")

	// ErrInvalidSize indicates invalid size parameter
	ErrInvalidSize = NewInvalidArgError("MemAlloc", "size must be positive")

	// ErrDoubleFree indicates double free attempt
	ErrDoubleFree = NewMemoryError("MemFree", "double free detected", nil)

	// ErrModuleUnloaded indicates use of a module after Unload
	ErrModuleUnloaded = NewModuleError("Module", "module has been unloaded", nil)

	// ErrSymbolNotFound indicates a kernel name absent from a module manifest
	ErrSymbolNotFound = NewModuleError("Function", "symbol not found", nil)
)

// IsMemoryError checks if an error is a memory error
func IsMemoryError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeMemory
	}
	return false
}

// IsInvalidArgError checks if an error is an invalid argument error
func IsInvalidArgError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeInvalidArg
	}
	return false
}

// IsModuleError checks if an error is a module error
func IsModuleError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeModule
	}
	return false
}
