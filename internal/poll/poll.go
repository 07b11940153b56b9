// Package poll implements the bounded wait loops used for asynchronous
// cloud operations: call a predicate on a fixed interval until it reports
// done, fails, or an absolute deadline passes.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrDeadline is returned when the predicate never reported done within the
// timeout.
var ErrDeadline = errors.New("poll: deadline exceeded")

// Wait calls fn every interval until it returns done, returns an error, the
// context is canceled, or timeout elapses. The first call happens
// immediately. fn errors are returned as-is and stop the loop.
func Wait(ctx context.Context, interval, timeout time.Duration, fn func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	return ErrDeadline
}
