// Package errors defines the structured error type shared across
// services. Every error carries a machine-readable code that maps to a
// gRPC status and an i18n message template.
package errors

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"
)

// Domain identifies this module in ErrorInfo details on the wire.
const Domain = "github.com/louisbranch/lodestone"

// Error is a coded error. Message is the internal text for logs;
// user-facing text is rendered from the code via the i18n catalog.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches two coded errors by code alone, so sentinel comparisons
// survive rewrapping with different messages.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New returns a coded error with an internal message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata returns a coded error carrying template metadata for
// localized rendering.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap returns a coded error with an underlying cause reachable via
// errors.Is and errors.As.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ToGRPCStatus renders the error as a gRPC status. The status message
// is the internal message; userMessage travels in a LocalizedMessage
// detail and the code plus metadata in an ErrorInfo detail.
func (e *Error) ToGRPCStatus(locale string, userMessage string) error {
	grpcCode := e.Code.GRPCCode()
	st := status.New(grpcCode, e.Message)

	detailed, err := st.WithDetails(
		&errdetails.ErrorInfo{
			Reason:   string(e.Code),
			Domain:   Domain,
			Metadata: e.Metadata,
		},
		&errdetails.LocalizedMessage{
			Locale:  locale,
			Message: userMessage,
		},
	)
	if err != nil {
		// Details are best effort; the bare status still carries the code.
		return st.Err()
	}
	return detailed.Err()
}
