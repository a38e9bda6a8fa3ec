package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// StatusError is returned when the API responds with a non-2xx status other
// than 429.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// RateLimitError is returned when the API responds with HTTP 429 (Too Many
// Requests). It carries an optional RetryAfter duration parsed from the
// Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("rate limited: %s", e.Body)
}

// ParseRetryAfter parses the Retry-After header value as either seconds
// (integer) or an HTTP-date (RFC 7231). Returns zero if unparseable or if the
// date is in the past.
func ParseRetryAfter(val string) time.Duration {
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		d := time.Until(t)
		if d > 0 {
			return d
		}
		return 0
	}
	return 0
}

// FailureKind classifies a query failure for logging. Every kind maps to the
// same absent Result; the distinction exists so that a single log line is
// enough to diagnose the failure without retrying.
type FailureKind string

const (
	FailureConnection FailureKind = "connection"
	FailureStatus     FailureKind = "status"
	FailureTimeout    FailureKind = "timeout"
	FailureRateLimit  FailureKind = "rate_limit"
	FailureOther      FailureKind = "other"
)

// ClassifyFailure maps an error from a query attempt to its FailureKind.
func ClassifyFailure(err error) FailureKind {
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return FailureRateLimit
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return FailureStatus
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return FailureTimeout
		}
		return FailureConnection
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return FailureConnection
	}

	return FailureOther
}
