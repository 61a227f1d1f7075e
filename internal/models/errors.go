package models

import "fmt"

// ErrorType identifies the category of error that occurred.
type ErrorType string

const (
	// The server answered with a non-2xx status.
	ErrRequestFailed ErrorType = "request_failed"

	// No answer was received.
	ErrTransportFailed ErrorType = "transport_failed"

	// The request could not be assembled locally (e.g. upload file unreadable).
	ErrRequestInvalid ErrorType = "request_invalid"

	// No trigger has the requested name; nothing was sent.
	ErrTriggerNotFound ErrorType = "trigger_not_found"
)

// RequestError is returned when the server replies with a non-2xx status.
// Body holds the raw reply so it can be shown unmodified.
type RequestError struct {
	StatusCode int
	Body       []byte
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed: HTTP %d", e.StatusCode)
}
