// Package retry runs fallible store operations under a bounded, fixed-backoff
// retry policy.
//
// Every failure is classified before the loop decides anything:
//
//   - transient (connectivity, timeouts, serialization conflicts): retried
//     until the policy's attempt budget is spent;
//   - terminal (uniqueness conflicts, credential and encoding errors,
//     non-transient SQL errors, cancellation): returned at once.
//
// An operation moves through Attempting(n) and ends in exactly one of
// Succeeded, FailedTerminal or FailedExhausted.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/dsqlctl/internal/common"
	"github.com/dmitrijs2005/dsqlctl/internal/logging"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
)

var (
	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBackoff is returned when the backoff is negative.
	ErrNegativeBackoff = errors.New("backoff must not be negative")
)

// State is where an operation stands in the retry state machine.
type State int

const (
	StateAttempting State = iota
	StateSucceeded
	StateFailedTerminal
	StateFailedExhausted
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateFailedTerminal:
		return "failed"
	case StateFailedExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Policy bounds how often and how fast an operation is retried.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultPolicy returns 3 attempts with a 500ms pause between them.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: defaultMaxAttempts, Backoff: defaultBackoff}
}

// Validate reports whether p can drive an Executor.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if p.Backoff < 0 {
		return ErrNegativeBackoff
	}
	return nil
}

// Operation is one attempt of a unit of work.
type Operation[T any] func(ctx context.Context) (T, error)

// Error describes a failed operation: its name, how many attempts ran, the
// final state and the last observed cause.
type Error struct {
	Op       string
	Attempts int
	State    State
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s after %d attempt(s): %v", e.Op, e.State, e.Attempts, e.Err)
}

// Unwrap exposes the cause and, for exhausted operations, the
// common.ErrorRetriesExhausted and common.ErrorTransient sentinels.
func (e *Error) Unwrap() []error {
	if e.State == StateFailedExhausted {
		return []error{common.ErrorRetriesExhausted, common.ErrorTransient, e.Err}
	}
	return []error{e.Err}
}

// Executor applies a Policy and a Classifier to operations.
type Executor struct {
	policy   Policy
	classify Classifier
	logger   logging.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithClassifier replaces DefaultClassifier.
func WithClassifier(c Classifier) Option {
	return func(e *Executor) { e.classify = c }
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l logging.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor validates policy and builds an Executor.
func NewExecutor(policy Policy, opts ...Option) (*Executor, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	e := &Executor{policy: policy, classify: DefaultClassifier, logger: logging.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Run is Do for operations without a result.
func (e *Executor) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, e, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do executes fn until it succeeds, fails terminally, or the attempt budget
// is spent. The first call is attempt 1; fn is never invoked more than
// MaxAttempts times. Backoff sleeps block only the calling goroutine and end
// early when ctx is done.
//
// Failures are returned as *Error.
func Do[T any](ctx context.Context, e *Executor, op string, fn Operation[T]) (T, error) {
	var (
		result  T
		attempt int
		lastErr error
		state   = StateAttempting
	)

	backoff := goretry.BackoffFunc(func() (time.Duration, bool) {
		if attempt >= e.policy.MaxAttempts {
			return 0, true
		}
		return e.policy.Backoff, false
	})

	err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		v, err := fn(ctx)
		if err == nil {
			result = v
			state = StateSucceeded
			return nil
		}

		lastErr = err
		if e.classify(err) == ClassTerminal {
			state = StateFailedTerminal
			return err
		}

		e.logger.Warn(ctx, "operation failed",
			"op", op, "attempt", attempt, "max_attempts", e.policy.MaxAttempts, "error", err)
		return goretry.RetryableError(err)
	})

	if err == nil {
		return result, nil
	}

	if state == StateAttempting {
		// go-retry either ran out of backoff or saw ctx end between attempts.
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			state = StateFailedTerminal
			lastErr = err
		} else {
			state = StateFailedExhausted
		}
	}
	if lastErr == nil {
		lastErr = err
	}

	var zero T
	return zero, &Error{Op: op, Attempts: attempt, State: state, Err: lastErr}
}
