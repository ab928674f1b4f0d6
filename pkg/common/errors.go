//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package common provides shared types and utilities used across the
// policy engine packages.
//
// # Error Handling
//
// The [EvalError] type provides structured error information for runtime
// policy evaluation failures, including kind codes suitable for decision
// record diagnostics.
package common

import "fmt"

// ErrorKind classifies a runtime evaluation failure.
//
// Evaluation is late-bound typed: every operator checks the runtime variants
// of its operands and raises a kinded error rather than coercing. The kind
// is machine-readable and stable so it can be surfaced in decision records.
type ErrorKind int

// Evaluation error kinds.
const (
	// TypeMismatch indicates an operator was applied to operands of the
	// wrong runtime type.
	TypeMismatch ErrorKind = iota
	// AttributeNotFound indicates an attribute access on an entity or
	// record that does not carry the attribute.
	AttributeNotFound
	// EntityNotFound indicates an attribute access on an entity that is
	// absent from the store. Distinct from AttributeNotFound; callers must
	// not conflate the two.
	EntityNotFound
	// ArithmeticOverflow indicates checked integer arithmetic overflowed.
	ArithmeticOverflow
	// UnknownExtensionFunction indicates a call to an extension function
	// that is not in the registry, or with the wrong arity.
	UnknownExtensionFunction
	// ExtensionError indicates an extension function rejected its input,
	// such as an unparsable IP address or decimal literal.
	ExtensionError
)

// String returns the stable name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "TypeMismatch"
	case AttributeNotFound:
		return "AttributeNotFound"
	case EntityNotFound:
		return "EntityNotFound"
	case ArithmeticOverflow:
		return "ArithmeticOverflow"
	case UnknownExtensionFunction:
		return "UnknownExtensionFunction"
	case ExtensionError:
		return "ExtensionError"
	default:
		return "UnknownError"
	}
}

// EvalError represents an error encountered while evaluating a policy
// condition.
//
// EvalError is scoped to a single policy: the authorizer recovers it at the
// policy boundary, records it in the response diagnostics, and treats the
// policy as not satisfied (fail closed). It never escapes an Authorize call.
type EvalError struct {
	// Kind is the machine-readable error classification.
	Kind ErrorKind
	// Reason is a human-readable description of the error.
	Reason string
}

// Error implements the error interface, returning a formatted string
// containing both the kind and the reason message.
func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// NewEvalError creates a new [EvalError] with the specified kind and a
// formatted message.
func NewEvalError(kind ErrorKind, format string, args ...interface{}) *EvalError {
	return &EvalError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
