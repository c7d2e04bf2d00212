// Package shcerr defines the closed error taxonomy used across this module.
// Every failure a caller can observe is one of the Kinds below, carrying a
// stable Code string and a human-readable message. Foreign errors from
// underlying primitives (compression, JSON, crypto) are wrapped with their
// message text attached, never their stack.
package shcerr

import "fmt"

// Kind identifies which part of the pipeline produced an error.
type Kind int

const (
	// FhirValidation covers Bundle or VC structural invariant failures.
	FhirValidation Kind = iota
	// Jws covers JWT payload invariants, key import, signing, verification,
	// compression/decompression, and format failures.
	Jws
	// QrCode covers numeric encode/decode, prefix/chunk shape, and size
	// overflow failures.
	QrCode
	// FileFormat covers a malformed .smart-health-card wrapper.
	FileFormat
	// FileVerification covers a wrapper that parses but fails verification.
	FileVerification
	// Verification covers facade-level verification preconditions.
	Verification
	// Creation covers facade-level creation preconditions.
	Creation
)

func (k Kind) String() string {
	switch k {
	case FhirValidation:
		return "FHIR_VALIDATION_ERROR"
	case Jws:
		return "JWS_ERROR"
	case QrCode:
		return "QR_CODE_ERROR"
	case FileFormat:
		return "FILE_FORMAT_ERROR"
	case FileVerification:
		return "FILE_VERIFICATION_ERROR"
	case Verification:
		return "VERIFICATION_ERROR"
	case Creation:
		return "CREATION_ERROR"
	default:
		return "SMART_HEALTH_CARD_ERROR"
	}
}

// Error is the single error type returned by every package in this module.
// It satisfies errors.Is/As against its wrapped cause via Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New builds an Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a foreign error's message to a typed Error of the given
// kind. If cause is already a *shcerr.Error it is returned unchanged so
// that typed errors bubble up through the facade without being re-wrapped.
func Wrap(kind Kind, message string, cause error) *Error {
	if existing, ok := cause.(*Error); ok {
		return existing
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Code returns the stable taxonomy code string for this error.
func (e *Error) Code() string {
	return e.Kind.String()
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
