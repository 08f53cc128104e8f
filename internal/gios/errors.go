package gios

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ShapeError reports a response whose top-level JSON shape does not match
// the expected kind (array vs object).
type ShapeError struct {
	Endpoint string
	Expected string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("gios: %s: expected top-level JSON %s", e.Endpoint, e.Expected)
}

// ParseError reports a body that validated at the top level but failed to
// decode.
type ParseError struct {
	Endpoint string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gios: %s: %v", e.Endpoint, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-success HTTP outcome.
type StatusError struct {
	Endpoint string
	Code     int
	Status   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gios: %s: unexpected status %s", e.Endpoint, e.Status)
}

// IsConnectionError reports whether err is one of the connectivity failures
// that collapse to the single stable connection_error category: host not
// found, connection refused, or an unreachable network. Other transport
// errors are the caller's to log and discard.
func IsConnectionError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}

// IsMalformed reports whether err is a parse or shape failure, as opposed to
// a transport one.
func IsMalformed(err error) bool {
	var shapeErr *ShapeError
	var parseErr *ParseError
	return errors.As(err, &shapeErr) || errors.As(err, &parseErr)
}
