package predictor

import (
	"errors"
	"fmt"
)

// ErrResponseTooLarge is the cause of a TransportError for a 200 body over the read limit.
var ErrResponseTooLarge = errors.New("response body exceeds 4 MiB")

// TruncatedMarker is appended to the text of a ServerError body cut at the read limit.
const TruncatedMarker = " [truncated]"

// ReasonMalformedResponse marks a 200 response that lacks a required field.
const ReasonMalformedResponse = "malformed response"

// ServerError is returned when the backend answered but not with a usable result:
// either a non-200 status, or a 200 whose body is missing a required field.
// Truncated is set when Body was cut at the read limit.
type ServerError struct {
	StatusCode int
	Body       string
	Reason     string
	Truncated  bool
}

func (e *ServerError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("backend %s (status %d): %s", e.Reason, e.StatusCode, e.BodyText())
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.BodyText())
}

// BodyText is Body with TruncatedMarker appended when it was cut.
func (e *ServerError) BodyText() string {
	if e.Truncated {
		return e.Body + TruncatedMarker
	}
	return e.Body
}

// Malformed reports whether the backend returned 200 with an unusable body.
func (e *ServerError) Malformed() bool {
	return e.Reason == ReasonMalformedResponse
}

// TransportError is returned when the backend could not be reached or its
// response could not be read: refused connections, DNS failures, timeouts,
// throttling, truncated or non-JSON bodies.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Message is the underlying cause without the operation prefix.
func (e *TransportError) Message() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Err.Error()
}

// IsServerError reports whether err carries a *ServerError.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// IsTransportError reports whether err carries a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
