// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/smogmap/smogmap/spatial"
)

// Pending is a location request that is resolved exactly once, by
// whichever of success, failure or timeout happens first.
type Pending struct {
	completed atomic.Bool
	done      chan struct{}
	point     spatial.Point
	err       error
}

// NewPending returns an unresolved request.
func NewPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// Complete resolves the request. It returns false, and changes nothing,
// when the request was already resolved.
func (p *Pending) Complete(point spatial.Point, err error) bool {
	if !p.completed.CompareAndSwap(false, true) {
		return false
	}

	p.point, p.err = point, err
	close(p.done)

	return true
}

// Completed reports whether the request has been resolved.
func (p *Pending) Completed() bool {
	return p.completed.Load()
}

// Done is closed once the request is resolved.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result blocks until the request is resolved.
func (p *Pending) Result() (spatial.Point, error) {
	<-p.done

	return p.point, p.err
}

// Resolve asks provider for a fix and gives up after timeout with
// ErrTimeout. A non-positive timeout uses DefaultTimeout.
func Resolve(ctx context.Context, provider Provider, timeout time.Duration) (spatial.Point, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pending := NewPending()

	go func() {
		point, err := provider.CurrentLocation(ctx)

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		case err == nil:
			err = point.Validate()
		}

		pending.Complete(point, err)
	}()

	select {
	case <-pending.Done():
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}

		pending.Complete(spatial.Point{}, err)
	}

	return pending.Result()
}
