// Package errors provides structured error types for the JDI-MCP server.
// These errors include helpful hints and suggestions that guide the LLM
// to correct course when something goes wrong.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a category of error for programmatic handling
type ErrorCode string

const (
	// Session errors
	CodeNotConnected     ErrorCode = "NOT_CONNECTED"
	CodeAlreadyConnected ErrorCode = "ALREADY_CONNECTED"
	CodeLaunchError      ErrorCode = "LAUNCH_ERROR"
	CodeConnectError     ErrorCode = "CONNECT_ERROR"
	CodePortUnavailable  ErrorCode = "PORT_UNAVAILABLE"

	// Symbol resolution errors
	CodeClassNotFound  ErrorCode = "CLASS_NOT_FOUND"
	CodeFieldNotFound  ErrorCode = "FIELD_NOT_FOUND"
	CodeMethodNotFound ErrorCode = "METHOD_NOT_FOUND"
	CodeNoCodeAtLine   ErrorCode = "NO_CODE_AT_LINE"
	CodeNotThrowable   ErrorCode = "NOT_THROWABLE"
	CodeNoDebugInfo    ErrorCode = "NO_DEBUG_INFO"

	// Thread and frame errors
	CodeThreadNotFound     ErrorCode = "THREAD_NOT_FOUND"
	CodeThreadNotSuspended ErrorCode = "THREAD_NOT_SUSPENDED"
	CodeFrameOutOfRange    ErrorCode = "FRAME_OUT_OF_RANGE"
	CodeNativeFrame        ErrorCode = "NATIVE_FRAME"
	CodeObjectNotFound     ErrorCode = "OBJECT_NOT_FOUND"

	// Expression and invocation errors
	CodeInvalidExpression ErrorCode = "INVALID_EXPRESSION"
	CodeNullDereference   ErrorCode = "NULL_DEREFERENCE"
	CodeOverloadAmbiguous ErrorCode = "OVERLOAD_AMBIGUOUS"
	CodeTypeMismatch      ErrorCode = "TYPE_MISMATCH"
	CodeThrownException   ErrorCode = "THROWN_EXCEPTION"

	// Capability and lifecycle errors
	CodeCapabilityMissing ErrorCode = "CAPABILITY_MISSING"
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeVMDisconnected    ErrorCode = "VM_DISCONNECTED"
	CodeInterrupted       ErrorCode = "INTERRUPTED"
	CodeInternalError     ErrorCode = "INTERNAL_ERROR"

	// Parameter errors
	CodeMissingParameter ErrorCode = "MISSING_PARAMETER"
	CodeInvalidParameter ErrorCode = "INVALID_PARAMETER"
	CodeNotFound         ErrorCode = "NOT_FOUND"
)

// DebugError is a structured error type that includes helpful information
// for the LLM to understand what went wrong and how to fix it.
type DebugError struct {
	// Code is a machine-readable error category
	Code ErrorCode `json:"code"`

	// Message is a human/LLM-readable description of what went wrong
	Message string `json:"message"`

	// Hint provides actionable guidance on how to fix the error
	Hint string `json:"hint,omitempty"`

	// Details contains additional context (e.g., the invalid value, expected format)
	Details map[string]interface{} `json:"details,omitempty"`

	// Cause is the underlying error, if any
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *DebugError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Hint != "" {
		sb.WriteString(" | Hint: ")
		sb.WriteString(e.Hint)
	}

	return sb.String()
}

// Unwrap returns the underlying error for error chaining
func (e *DebugError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to the error
func (e *DebugError) WithDetails(key string, value interface{}) *DebugError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *DebugError) WithCause(err error) *DebugError {
	e.Cause = err
	return e
}

// --- Session Errors ---

// NotConnected creates an error for operations requiring a live session
func NotConnected() *DebugError {
	return &DebugError{
		Code:    CodeNotConnected,
		Message: "not connected to a VM",
		Hint:    "Use debug_launch, debug_attach_socket, or debug_attach_pid to start a session first.",
	}
}

// AlreadyConnected creates an error when a connect is attempted mid-session
func AlreadyConnected(details string) *DebugError {
	return &DebugError{
		Code:    CodeAlreadyConnected,
		Message: "already connected to a VM",
		Hint:    "Use debug_disconnect to end the current session before connecting again.",
		Details: map[string]interface{}{
			"currentConnection": details,
		},
	}
}

// LaunchFailed creates an error for debuggee launch failures
func LaunchFailed(mainClass string, err error) *DebugError {
	return &DebugError{
		Code:    CodeLaunchError,
		Message: fmt.Sprintf("failed to launch %s: %v", mainClass, err),
		Hint:    "Check that the main class and classpath are correct and that 'java' is on PATH.",
		Cause:   err,
		Details: map[string]interface{}{
			"mainClass": mainClass,
		},
	}
}

// ConnectFailed creates an error for attach failures
func ConnectFailed(address string, err error) *DebugError {
	return &DebugError{
		Code:    CodeConnectError,
		Message: fmt.Sprintf("failed to attach to %s: %v", address, err),
		Hint:    "Ensure the target JVM was started with -agentlib:jdwp=transport=dt_socket,server=y and is listening on that address.",
		Cause:   err,
		Details: map[string]interface{}{
			"address": address,
		},
	}
}

// PortUnavailable creates an error when no free debug port could be found
func PortUnavailable(err error) *DebugError {
	return &DebugError{
		Code:    CodePortUnavailable,
		Message: fmt.Sprintf("could not allocate a local debug port: %v", err),
		Hint:    "Another process may be exhausting ephemeral ports. Retry, or attach to an already-running JVM instead.",
		Cause:   err,
	}
}

// --- Symbol Errors ---

// ClassNotFound creates an error for an unloaded or unknown class
func ClassNotFound(className string) *DebugError {
	return &DebugError{
		Code:    CodeClassNotFound,
		Message: fmt.Sprintf("class not found: %s", className),
		Hint:    "The class may not be loaded yet. Breakpoints on unloaded classes are deferred automatically; for other operations, let the program run until the class is prepared.",
		Details: map[string]interface{}{
			"className": className,
		},
	}
}

// FieldNotFound creates an error for a missing field
func FieldNotFound(className, fieldName string) *DebugError {
	return &DebugError{
		Code:    CodeFieldNotFound,
		Message: fmt.Sprintf("field '%s' not found in %s", fieldName, className),
		Hint:    "Use object_fields to list the fields the class actually declares.",
		Details: map[string]interface{}{
			"className": className,
			"fieldName": fieldName,
		},
	}
}

// MethodNotFound creates an error for a missing method
func MethodNotFound(className, methodName string) *DebugError {
	return &DebugError{
		Code:    CodeMethodNotFound,
		Message: fmt.Sprintf("method '%s' not found in %s", methodName, className),
		Hint:    "Check the spelling, or use '*' to match any method of the class.",
		Details: map[string]interface{}{
			"className":  className,
			"methodName": methodName,
		},
	}
}

// NoCodeAtLine creates an error when a line holds no executable code
func NoCodeAtLine(className string, line int) *DebugError {
	return &DebugError{
		Code:    CodeNoCodeAtLine,
		Message: fmt.Sprintf("no executable code at line %d in %s", line, className),
		Hint:    "The line may be blank, a comment, or a declaration. Pick a line with a statement on it.",
		Details: map[string]interface{}{
			"className": className,
			"line":      line,
		},
	}
}

// NotThrowable creates an error when an exception class is not a Throwable
func NotThrowable(className string) *DebugError {
	return &DebugError{
		Code:    CodeNotThrowable,
		Message: fmt.Sprintf("%s is not a Throwable", className),
		Hint:    "Exception breakpoints require a class extending java.lang.Throwable, or '*' for all exceptions.",
		Details: map[string]interface{}{
			"className": className,
		},
	}
}

// NoDebugInfo creates an error for classes compiled without debug info
func NoDebugInfo() *DebugError {
	return &DebugError{
		Code:    CodeNoDebugInfo,
		Message: "debug information not available",
		Hint:    "Recompile the target with -g to include line numbers and local variable tables.",
	}
}

// --- Thread and Frame Errors ---

// ThreadNotFound creates an error for an unknown thread id
func ThreadNotFound(threadID int64) *DebugError {
	return &DebugError{
		Code:    CodeThreadNotFound,
		Message: fmt.Sprintf("thread not found with ID: %d", threadID),
		Hint:    "Use threads_list to see live threads and their IDs.",
		Details: map[string]interface{}{
			"threadId": threadID,
		},
	}
}

// ThreadNotSuspended creates an error for operations needing a suspended thread
func ThreadNotSuspended(threadName string) *DebugError {
	return &DebugError{
		Code:    CodeThreadNotSuspended,
		Message: fmt.Sprintf("thread '%s' is not suspended", threadName),
		Hint:    "Set a breakpoint and wait_for_stop, or call suspend first. Inspection and invocation require a suspended thread.",
		Details: map[string]interface{}{
			"threadName": threadName,
		},
	}
}

// FrameOutOfRange creates an error for a bad frame index
func FrameOutOfRange(index, max int) *DebugError {
	return &DebugError{
		Code:    CodeFrameOutOfRange,
		Message: fmt.Sprintf("frame index %d out of range (max: %d)", index, max),
		Hint:    "Use stack_frames to see how deep the stack is.",
		Details: map[string]interface{}{
			"index": index,
			"max":   max,
		},
	}
}

// NativeFrame creates an error when an operation lands in native code
func NativeFrame(threadName string) *DebugError {
	return &DebugError{
		Code:    CodeNativeFrame,
		Message: fmt.Sprintf("thread '%s' is in native code", threadName),
		Hint:    "Stepping is only possible in Java code. Set a breakpoint in Java code and resume first.",
		Details: map[string]interface{}{
			"threadName": threadName,
		},
	}
}

// ObjectNotFound creates an error for a failed object-by-id resolution
func ObjectNotFound(objectID int64) *DebugError {
	return &DebugError{
		Code:    CodeObjectNotFound,
		Message: fmt.Sprintf("object not found with ID: %d", objectID),
		Hint:    "Object IDs are only resolvable while a frame referencing the object is suspended. Re-run variables_local to get a current ID.",
		Details: map[string]interface{}{
			"objectId": objectID,
		},
	}
}

// --- Expression and Invocation Errors ---

// InvalidExpression creates an error for unparseable or unresolvable expressions
func InvalidExpression(expr, reason string) *DebugError {
	return &DebugError{
		Code:    CodeInvalidExpression,
		Message: fmt.Sprintf("cannot evaluate '%s': %s", expr, reason),
		Hint:    "Supported: literals, 'this', variable names, field chains (a.b.c) and calls (a.b()). Arguments may be literals or @id object references.",
		Details: map[string]interface{}{
			"expression": expr,
		},
	}
}

// NullDereference creates an error for member access on null
func NullDereference(member string) *DebugError {
	return &DebugError{
		Code:    CodeNullDereference,
		Message: fmt.Sprintf("cannot access '%s' on null", member),
		Hint:    "An intermediate value in the chain is null. Evaluate the prefix of the expression to find which one.",
		Details: map[string]interface{}{
			"member": member,
		},
	}
}

// OverloadAmbiguous creates an error when overload selection fails
func OverloadAmbiguous(methodName string, signatures []string) *DebugError {
	return &DebugError{
		Code:    CodeOverloadAmbiguous,
		Message: fmt.Sprintf("cannot select overload of '%s'", methodName),
		Hint:    fmt.Sprintf("Pass methodSignature to disambiguate. Candidates: %s", strings.Join(signatures, ", ")),
		Details: map[string]interface{}{
			"methodName": methodName,
			"candidates": signatures,
		},
	}
}

// TypeMismatch creates an error for argument or assignment conversion failures
func TypeMismatch(value, targetType string) *DebugError {
	return &DebugError{
		Code:    CodeTypeMismatch,
		Message: fmt.Sprintf("cannot convert '%s' to %s", value, targetType),
		Hint:    "Primitives take bare literals, strings take quoted text, object parameters take '@id' references from variables_local.",
		Details: map[string]interface{}{
			"value":      value,
			"targetType": targetType,
		},
	}
}

// ThrownException creates an error for an invocation that threw in the target
func ThrownException(exceptionType string, objectID int64) *DebugError {
	return &DebugError{
		Code:    CodeThrownException,
		Message: fmt.Sprintf("method threw %s @%d", exceptionType, objectID),
		Hint:    fmt.Sprintf("Inspect the exception with object_fields(objectId=%d) or invoke getMessage() on it.", objectID),
		Details: map[string]interface{}{
			"exceptionType": exceptionType,
			"objectId":      objectID,
		},
	}
}

// --- Capability and Lifecycle Errors ---

// CapabilityMissing creates an error for unsupported target capabilities
func CapabilityMissing(capability string) *DebugError {
	return &DebugError{
		Code:    CodeCapabilityMissing,
		Message: fmt.Sprintf("target VM does not support %s", capability),
		Hint:    "This JVM does not advertise the capability. A current HotSpot JVM supports all monitor and watchpoint events.",
		Details: map[string]interface{}{
			"capability": capability,
		},
	}
}

// Timeout creates an error for operations that ran out of time
func Timeout(operation string, seconds int) *DebugError {
	return &DebugError{
		Code:    CodeTimeout,
		Message: fmt.Sprintf("%s timed out after %d seconds", operation, seconds),
		Hint:    "The target may be busy or the condition may never occur. Retry with a longer timeout, or suspend and inspect.",
		Details: map[string]interface{}{
			"operation": operation,
			"seconds":   seconds,
		},
	}
}

// VMDisconnected creates an error for operations against a vanished target
func VMDisconnected() *DebugError {
	return &DebugError{
		Code:    CodeVMDisconnected,
		Message: "VM disconnected",
		Hint:    "The debuggee exited or the connection dropped. Start a new session with debug_launch or debug_attach_socket.",
	}
}

// Internal wraps an unexpected failure
func Internal(err error) *DebugError {
	return &DebugError{
		Code:    CodeInternalError,
		Message: fmt.Sprintf("internal error: %v", err),
		Hint:    "This is a broker-side failure, not a debuggee state problem.",
		Cause:   err,
	}
}

// --- Parameter Errors ---

// MissingParameter creates an error for missing required parameters
func MissingParameter(paramName, description string) *DebugError {
	return &DebugError{
		Code:    CodeMissingParameter,
		Message: fmt.Sprintf("required parameter '%s' is missing", paramName),
		Hint:    description,
		Details: map[string]interface{}{
			"parameter": paramName,
		},
	}
}

// InvalidParameter creates an error for invalid parameter values
func InvalidParameter(paramName string, value interface{}, expected string) *DebugError {
	return &DebugError{
		Code:    CodeInvalidParameter,
		Message: fmt.Sprintf("invalid value for parameter '%s': %v", paramName, value),
		Hint:    fmt.Sprintf("Expected: %s", expected),
		Details: map[string]interface{}{
			"parameter": paramName,
			"value":     value,
			"expected":  expected,
		},
	}
}

// IDNotFound creates an error for an unknown artefact id (bp-N, wa-N, ...)
func IDNotFound(kind, id string) *DebugError {
	return &DebugError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Hint:    fmt.Sprintf("Use the matching list tool to see current %s IDs.", kind),
		Details: map[string]interface{}{
			"id": id,
		},
	}
}

// --- Helper for wrapping generic errors ---

// Wrap wraps a generic error with context
func Wrap(code ErrorCode, message string, hint string, err error) *DebugError {
	return &DebugError{
		Code:    code,
		Message: message,
		Hint:    hint,
		Cause:   err,
	}
}

// FromError creates a DebugError from a generic error, attempting to preserve any existing structure
func FromError(err error) *DebugError {
	var de *DebugError
	if stderrors.As(err, &de) {
		return de
	}
	return &DebugError{
		Code:    CodeInternalError,
		Message: err.Error(),
		Hint:    "An unexpected error occurred. Please check the error message for details.",
		Cause:   err,
	}
}
