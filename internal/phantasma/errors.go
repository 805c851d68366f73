package phantasma

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed RPC call.
type ErrorKind int

const (
	// ErrorKindAPI: the node answered with a structured error.
	ErrorKindAPI ErrorKind = iota + 1
	// ErrorKindWebRequest: the endpoint was unreachable or answered non-2xx.
	ErrorKindWebRequest
	// ErrorKindFailedParsingJSON: the body was not valid JSON.
	ErrorKindFailedParsingJSON
	// ErrorKindMalformedResponse: valid JSON without result or error.
	ErrorKindMalformedResponse
)

// String returns the operator-facing name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindAPI:
		return "API_ERROR"
	case ErrorKindWebRequest:
		return "WEB_REQUEST_ERROR"
	case ErrorKindFailedParsingJSON:
		return "FAILED_PARSING_JSON"
	case ErrorKindMalformedResponse:
		return "MALFORMED_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// Sentinels for errors.Is matching against *Error.
var (
	ErrAPI               = errors.New("api error")
	ErrWebRequest        = errors.New("web request error")
	ErrFailedParsingJSON = errors.New("failed parsing json")
	ErrMalformedResponse = errors.New("malformed response")
)

// Error is returned by HTTPClient for every failed call.
type Error struct {
	Kind    ErrorKind
	Method  string
	Message string // server message for API errors
	Err     error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the same kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAPI:
		return e.Kind == ErrorKindAPI
	case ErrWebRequest:
		return e.Kind == ErrorKindWebRequest
	case ErrFailedParsingJSON:
		return e.Kind == ErrorKindFailedParsingJSON
	case ErrMalformedResponse:
		return e.Kind == ErrorKindMalformedResponse
	}
	return false
}

// KindOf extracts the ErrorKind of err, or 0 if err is not an RPC error.
func KindOf(err error) ErrorKind {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Kind
	}
	return 0
}

// retryable reports whether a failed call may succeed when repeated.
// Only transport failures are; a node that answered is taken at its word.
func retryable(err error) bool {
	return KindOf(err) == ErrorKindWebRequest
}
