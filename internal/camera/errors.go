// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package camera

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrCameraNotFound      = errors.New("upstream: camera not found")
	ErrNotFound            = errors.New("upstream: resource not found")
	ErrUnauthorized        = errors.New("upstream: credential rejected")
	ErrUpstreamUnavailable = errors.New("upstream: host unreachable or transport failure")
	ErrUpstreamError       = errors.New("upstream: internal error (5xx)")
	ErrBadResponse         = errors.New("upstream: invalid response format or malformed data")
	ErrTimeout             = errors.New("upstream: request timed out")
)

// UpstreamError wraps a sentinel error with call context.
type UpstreamError struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error // Nested lower-level error (e.g. net.Error)
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("camera: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the transport cause, so callers can
// match ErrTimeout as well as context.Canceled.
func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// IsTransient reports whether err is an upstream availability problem, as
// opposed to a lookup miss. Only transient errors trip the circuit breaker.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrCameraNotFound) && !errors.Is(err, ErrNotFound)
}

func classifyStatus(op string, status int, body string) error {
	if len(body) > 256 {
		body = body[:256]
	}
	var sentinel error
	switch {
	case status == http.StatusNotFound:
		sentinel = ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = ErrUnauthorized
	case status >= 500:
		sentinel = ErrUpstreamError
	default:
		sentinel = ErrBadResponse
	}
	return &UpstreamError{Sentinel: sentinel, Operation: op, Status: status, Body: body}
}

func classifyTransport(op string, err error) error {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	sentinel := ErrUpstreamUnavailable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		sentinel = ErrTimeout
	}
	return &UpstreamError{Sentinel: sentinel, Operation: op, Err: err}
}
