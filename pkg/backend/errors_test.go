package backend_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quorumlabs/council/pkg/backend"
)

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), backend.ParseRetryAfter(""))
	assert.Equal(t, 30*time.Second, backend.ParseRetryAfter("30"))
	assert.Equal(t, time.Duration(0), backend.ParseRetryAfter("not-a-number"))

	// HTTP-date in the future parses to a positive duration.
	future := time.Now().Add(time.Minute).UTC().Format(time.RFC1123)
	d := backend.ParseRetryAfter(future)
	assert.Greater(t, d, 50*time.Second)

	// A past date yields zero, never a negative wait.
	past := time.Now().Add(-time.Minute).UTC().Format(time.RFC1123)
	assert.Equal(t, time.Duration(0), backend.ParseRetryAfter(past))
}

type fakeNetError struct{ timeout bool }

func (e *fakeNetError) Error() string   { return "net trouble" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want backend.FailureKind
	}{
		{"rate limit", &backend.RateLimitError{}, backend.FailureRateLimit},
		{"wrapped rate limit", fmt.Errorf("do request: %w", &backend.RateLimitError{}), backend.FailureRateLimit},
		{"status", &backend.StatusError{Code: 500}, backend.FailureStatus},
		{"deadline", context.DeadlineExceeded, backend.FailureTimeout},
		{"wrapped deadline", fmt.Errorf("do request: %w", context.DeadlineExceeded), backend.FailureTimeout},
		{"net timeout", &fakeNetError{timeout: true}, backend.FailureTimeout},
		{"net non-timeout", &fakeNetError{}, backend.FailureConnection},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, backend.FailureConnection},
		{"other", errors.New("mystery"), backend.FailureOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, backend.ClassifyFailure(tt.err))
		})
	}
}
