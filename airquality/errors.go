// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package airquality

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/smogmap/smogmap/location"
)

// Error is returned by the retrieval client and the orchestrator.
type Error struct {
	Type       ErrorType
	StatusCode int // only for ErrorTypeServer
	Message    string
	Err        error
}

// ErrorType classifies failures.
type ErrorType int

const (
	// ErrorTypeInvalidRequest the request could not be built.
	ErrorTypeInvalidRequest ErrorType = iota
	// ErrorTypeServer the endpoint answered with a non-200 status.
	ErrorTypeServer
	// ErrorTypeDecode the body did not match the expected schema.
	ErrorTypeDecode
	// ErrorTypeTransport the round trip itself failed.
	ErrorTypeTransport
	// ErrorTypeLocationPermissionDenied no location access.
	ErrorTypeLocationPermissionDenied
	// ErrorTypeLocationTimeout location did not resolve in time.
	ErrorTypeLocationTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeInvalidRequest:
		return "invalid request"
	case ErrorTypeServer:
		return "server error"
	case ErrorTypeDecode:
		return "decode error"
	case ErrorTypeTransport:
		return "transport error"
	case ErrorTypeLocationPermissionDenied:
		return "location permission denied"
	case ErrorTypeLocationTimeout:
		return "location timeout"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Type.String()
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errorType(err error) (ErrorType, bool) {
	var aqErr *Error
	if errors.As(err, &aqErr) {
		return aqErr.Type, true
	}

	return 0, false
}

// IsServerError reports whether err is a non-200 answer.
func IsServerError(err error) bool {
	t, ok := errorType(err)

	return ok && t == ErrorTypeServer
}

// IsDecodeError reports whether err is a schema violation.
func IsDecodeError(err error) bool {
	t, ok := errorType(err)

	return ok && t == ErrorTypeDecode
}

// IsTransportError reports whether err is a connection level failure.
func IsTransportError(err error) bool {
	t, ok := errorType(err)

	return ok && t == ErrorTypeTransport
}

// IsInvalidRequest reports whether the request could not be built.
func IsInvalidRequest(err error) bool {
	t, ok := errorType(err)

	return ok && t == ErrorTypeInvalidRequest
}

// StatusCode returns the HTTP status carried by a server error, or 0.
func StatusCode(err error) int {
	var aqErr *Error
	if errors.As(err, &aqErr) && aqErr.Type == ErrorTypeServer {
		return aqErr.StatusCode
	}

	return 0
}

// ClassifyHTTPStatus builds the server error for a non-200 status.
func ClassifyHTTPStatus(statusCode int) *Error {
	msg := fmt.Sprintf("server returned status %d", statusCode)
	if text := http.StatusText(statusCode); text != "" {
		msg = fmt.Sprintf("server returned status %d (%s)", statusCode, text)
	}

	return &Error{
		Type:       ErrorTypeServer,
		StatusCode: statusCode,
		Message:    msg,
	}
}

// FromLocationError maps a location provider failure into the taxonomy.
// Anything that is not a permission problem counts as a timeout: the
// provider failed to produce a fix in time.
func FromLocationError(err error) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, location.ErrPermissionDenied) {
		return &Error{Type: ErrorTypeLocationPermissionDenied, Message: "location permission denied", Err: err}
	}

	return &Error{Type: ErrorTypeLocationTimeout, Message: "location unavailable", Err: err}
}

// transportError wraps a failed round trip.
func transportError(err error) *Error {
	msg := "request failed"

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg = "request timed out"
	case errors.Is(err, context.Canceled):
		msg = "request canceled"
	}

	return &Error{Type: ErrorTypeTransport, Message: msg, Err: err}
}

// HumanMessage renders err for people looking at a card.
func HumanMessage(err error) string {
	var aqErr *Error
	if !errors.As(err, &aqErr) {
		return "Something went wrong: " + err.Error()
	}

	switch aqErr.Type {
	case ErrorTypeServer:
		return fmt.Sprintf("The air quality service is unavailable (HTTP %d). Try again later.", aqErr.StatusCode)
	case ErrorTypeDecode:
		return "The air quality service sent data we could not read."
	case ErrorTypeTransport:
		return "Could not reach the air quality service. Check your connection."
	case ErrorTypeInvalidRequest:
		return "The request to the air quality service is invalid. Check the configured URL."
	case ErrorTypeLocationPermissionDenied:
		return "Location access was denied."
	case ErrorTypeLocationTimeout:
		return "Your location could not be determined in time."
	default:
		return aqErr.Error()
	}
}
