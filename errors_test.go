package bastion_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/byte4ever/bastion"
)

// ---------------------------------------------------------------------------
// Transient / Permanent wrapping and detection
// ---------------------------------------------------------------------------

func TestTransientWrapsError(t *testing.T) {
	cause := errors.New("connection reset")
	err := bastion.Transient(cause)

	if err == nil {
		t.Fatal("Transient(non-nil) returned nil")
	}
	if got := err.Error(); got != "transient: connection reset" {
		t.Fatalf("Error() = %q, want %q", got, "transient: connection reset")
	}
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is(Transient(cause), cause) = false, want true")
	}
}

func TestTransientAndPermanentNilReturnNil(t *testing.T) {
	if err := bastion.Transient(nil); err != nil {
		t.Fatalf("Transient(nil) = %v, want nil", err)
	}
	if err := bastion.Permanent(nil); err != nil {
		t.Fatalf("Permanent(nil) = %v, want nil", err)
	}
}

func TestIsTransientClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unclassified", errors.New("x"), true},
		{"transient", bastion.Transient(errors.New("x")), true},
		{"permanent", bastion.Permanent(errors.New("x")), false},
		{"wrapped permanent", fmt.Errorf("ctx: %w", bastion.Permanent(errors.New("x"))), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bastion.IsTransient(tt.err); got != tt.want {
				t.Fatalf("IsTransient() = %v, want %v", got, tt.want)
			}
			if tt.err != nil {
				if got := bastion.IsPermanent(tt.err); got == tt.want {
					t.Fatalf("IsPermanent() = %v, want %v", got, !tt.want)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Engine errors
// ---------------------------------------------------------------------------

func TestSentinelErrorsAreResilienceErrors(t *testing.T) {
	for _, err := range []error{
		bastion.ErrInvalidConfiguration,
		bastion.ErrTimeoutExceeded,
		bastion.ErrCancelled,
		&bastion.TimeoutError{Timeout: time.Second},
	} {
		var re bastion.ResilienceError
		if !errors.As(err, &re) || !re.IsResilience() {
			t.Fatalf("%v is not a ResilienceError", err)
		}
	}
}

func TestTimeoutErrorMatchesSentinel(t *testing.T) {
	err := error(&bastion.TimeoutError{PolicyKey: "api", Timeout: 2 * time.Second})

	if !errors.Is(err, bastion.ErrTimeoutExceeded) {
		t.Fatal("errors.Is(TimeoutError, ErrTimeoutExceeded) = false")
	}
	if got, want := err.Error(), "api: timeout exceeded after 2s"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}

	anon := &bastion.TimeoutError{Timeout: time.Millisecond}
	if got, want := anon.Error(), "timeout exceeded after 1ms"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestCancelledOutcomeWrapsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := bastion.NewRetry(1, bastion.Constant(time.Hour), bastion.HandleError[int]())
	if err != nil {
		t.Fatalf("NewRetry() error = %v", err)
	}

	o := p.Execute(ctx, func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})

	if !errors.Is(o.Err, bastion.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", o.Err)
	}
	if !errors.Is(o.Err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled in chain", o.Err)
	}
}
