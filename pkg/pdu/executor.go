package pdu

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lestrrat-go/backoff/v2"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxAttempts matches the retry budget the original field
	// tooling used against flaky controller firmware.
	DefaultMaxAttempts = 5
	DefaultInterval    = 1 * time.Second
)

// OperationExecutor executes one Operation against one Target and
// always yields exactly one Outcome; errors never escape it.
type OperationExecutor interface {
	Execute(ctx context.Context, target Target, op Operation) Outcome
}

// Executor performs a single logical operation with bounded
// retry-with-backoff over a Transport. Transient transport errors,
// non-2xx responses outside the fatal set, empty bodies, and
// malformed payloads are retried up to MaxAttempts; credential
// rejections and malformed operations fail immediately.
type Executor struct {
	Transport   Transport
	Codec       Codec
	MaxAttempts int
	Interval    time.Duration
}

func (e *Executor) attempts() int {
	if e.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return e.MaxAttempts
}

func (e *Executor) interval() time.Duration {
	if e.Interval <= 0 {
		return DefaultInterval
	}
	return e.Interval
}

// Execute drives one Operation to a terminal Success or Failure
// Outcome, recording the attempt count consumed.
func (e *Executor) Execute(ctx context.Context, target Target, op Operation) Outcome {
	outcome := Outcome{Target: target, Operation: op}

	policy := backoff.Constant(
		backoff.WithInterval(e.interval()),
		backoff.WithMaxRetries(e.attempts()-1),
	)

	// The controller runs its own goroutine until its context ends, so
	// returning early (the success path) must cancel it explicitly.
	bctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var last error
	b := policy.Start(bctx)
	for backoff.Continue(b) {
		outcome.Attempts++
		state, err := e.attempt(ctx, target, op)
		if err == nil {
			outcome.OK = true
			outcome.State = state
			return outcome
		}

		var fatal *FatalError
		if errors.As(err, &fatal) {
			outcome.Failure = fatal.Kind
			outcome.Message = fatal.Err.Error()
			return outcome
		}

		last = err
		if outcome.Attempts >= e.attempts() {
			break
		}
		log.Debug().
			Str("target", target.Host).
			Str("operation", op.String()).
			Int("attempt", outcome.Attempts).
			Err(err).
			Msg("attempt failed, retrying")
	}

	if last == nil {
		// The backoff loop never ran an attempt; the context must have
		// been cancelled before the first one.
		last = ctx.Err()
	}
	outcome.Failure = FailureExhausted
	outcome.Message = fmt.Sprintf("exceeded %d attempts: %v", outcome.Attempts, last)
	return outcome
}

// attempt performs one exchange and classifies the result. A plain
// error is retriable; a *FatalError ends the operation immediately.
func (e *Executor) attempt(ctx context.Context, target Target, op Operation) (string, error) {
	req, err := e.Codec.Request(op)
	if err != nil {
		return "", &FatalError{Kind: FailureInvalid, Err: err}
	}

	res, err := e.Transport.Send(ctx, target, req)
	if err != nil {
		// Connection-level failures (refused, timeout, TLS) are the
		// expected transient mode for these controllers.
		return "", fmt.Errorf("transport: %w", err)
	}

	switch res.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", &FatalError{Kind: FailureAuth, Err: fmt.Errorf("authentication rejected (%d)", res.Status)}
	case http.StatusBadRequest, http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusUnprocessableEntity:
		return "", &FatalError{Kind: FailureInvalid, Err: fmt.Errorf("controller rejected request (%d)", res.Status)}
	}
	if res.Status < 200 || res.Status > 299 {
		return "", fmt.Errorf("controller returned %d", res.Status)
	}

	state, err := e.Codec.Decode(op, res)
	if err != nil {
		if errors.Is(err, ErrUnknownName) {
			return "", &FatalError{Kind: FailureInvalid, Err: err}
		}
		return "", fmt.Errorf("decode response: %w", err)
	}
	return state, nil
}
