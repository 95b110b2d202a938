package ledger

import (
	"context"
	"errors"
	"testing"
)

type fakeNetError struct{ msg string }

func (e *fakeNetError) Error() string   { return e.msg }
func (e *fakeNetError) Timeout() bool   { return true }
func (e *fakeNetError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"execution reverted", errors.New("execution reverted: Already voted"), ErrAlreadyVoted},
		{"bare revert message", errors.New("VM Exception while processing transaction: revert"), ErrAlreadyVoted},
		{"connection refused", errors.New("dial tcp 127.0.0.1:7545: connect: connection refused"), ErrUnavailable},
		{"deadline exceeded", context.DeadlineExceeded, ErrUnavailable},
		{"cancellation", context.Canceled, ErrUnavailable},
		// A timeout whose message happens to mention revert is still
		// transport-level.
		{"net error mentioning revert", &fakeNetError{msg: "timeout waiting for revert check"}, ErrUnavailable},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := classify(tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
