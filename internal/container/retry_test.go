// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryWithBackoff(t *testing.T) {
	t.Parallel()

	errTransient := errors.New("database is locked")
	errPermanent := errors.New("permission denied")

	tests := []struct {
		name      string
		attempts  int
		failUntil int
		retry     bool
		failWith  error
		wantCalls int
		wantErr   error
	}{
		{name: "first attempt succeeds", attempts: 3, wantCalls: 1},
		{name: "retries then succeeds", attempts: 5, failUntil: 2, retry: true, failWith: errTransient, wantCalls: 3},
		{name: "exhausts attempts", attempts: 3, failUntil: 99, retry: true, failWith: errTransient, wantCalls: 3, wantErr: errTransient},
		{name: "permanent error stops at once", attempts: 5, failUntil: 99, failWith: errPermanent, wantCalls: 1, wantErr: errPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			calls := 0
			err := RetryWithBackoff(context.Background(), tt.attempts, time.Millisecond, func(attempt int) (bool, error) {
				calls++
				if attempt < tt.failUntil {
					return tt.retry, tt.failWith
				}
				return false, nil
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RetryWithBackoff() error = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryWithBackoffStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryWithBackoff(ctx, 5, time.Hour, func(int) (bool, error) {
		calls++
		cancel()
		return true, errors.New("OCI runtime error")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RetryWithBackoff() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
