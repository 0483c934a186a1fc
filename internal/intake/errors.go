package intake

import (
	"errors"
	"fmt"
)

// ErrorKind classifies flow failures. Every kind except an explicit
// end-of-call resolves to a re-prompt or a recovery node; none of them
// terminate the session.
type ErrorKind string

const (
	// KindMissingField: a required structured argument was absent.
	// The same node is re-prompted.
	KindMissingField ErrorKind = "missing_field"
	// KindAmbiguousInput: an argument was present but not a recognized
	// value. The same node is re-prompted without advancing.
	KindAmbiguousInput ErrorKind = "ambiguous_input"
	// KindParseFailure: free-text address failed structural tagging or
	// state-name resolution. Routed to the format-invalid recovery node.
	KindParseFailure ErrorKind = "parse_failure"
	// KindValidationRejected: the validation service rejected the address.
	KindValidationRejected ErrorKind = "validation_rejected"
	// KindServiceUnavailable: an external dependency is unreachable or
	// unconfigured. The flow degrades and proceeds.
	KindServiceUnavailable ErrorKind = "service_unavailable"
	// KindInternalInconsistency: the model referenced state that does not
	// exist (stale offer index, unknown function). State is repaired and
	// the node re-rendered.
	KindInternalInconsistency ErrorKind = "internal_inconsistency"
)

// FlowError is the typed error produced by handlers and transitions.
type FlowError struct {
	Kind  ErrorKind
	Field string
	Msg   string
	Err   error
}

func (e *FlowError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("intake: %s (%s): %s: %v", e.Kind, e.Field, e.Msg, e.Err)
	case e.Field != "":
		return fmt.Sprintf("intake: %s (%s): %s", e.Kind, e.Field, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("intake: %s: %s: %v", e.Kind, e.Msg, e.Err)
	default:
		return fmt.Sprintf("intake: %s: %s", e.Kind, e.Msg)
	}
}

func (e *FlowError) Unwrap() error { return e.Err }

func missingField(field string) *FlowError {
	return &FlowError{Kind: KindMissingField, Field: field, Msg: "required argument absent"}
}

func ambiguousInput(field, msg string) *FlowError {
	return &FlowError{Kind: KindAmbiguousInput, Field: field, Msg: msg}
}

func internalInconsistency(msg string) *FlowError {
	return &FlowError{Kind: KindInternalInconsistency, Msg: msg}
}

// KindOf extracts the ErrorKind from err, or "" when err is not a FlowError.
func KindOf(err error) ErrorKind {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Recoverable reports whether the error resolves to a re-prompt of the
// current node rather than a failed turn.
func Recoverable(err error) bool {
	switch KindOf(err) {
	case KindMissingField, KindAmbiguousInput, KindInternalInconsistency:
		return true
	}
	return false
}
