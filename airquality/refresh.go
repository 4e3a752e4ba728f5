// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package airquality

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is a snapshot of what is displayed.
type State struct {
	Generation uint64     `json:"generation"`
	Busy       bool       `json:"busy"`
	Result     *Result    `json:"-"`
	Card       *Card      `json:"card,omitempty"`
	LastError  error      `json:"-"`
	Message    string     `json:"error,omitempty"`
	FellBack   bool       `json:"fellBack"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// Refresher keeps the displayed reading. Only the newest refresh is
// applied; starting a refresh cancels the one in flight.
type Refresher struct {
	orchestrator *Orchestrator

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	state      State
	subs       map[int]func(State)
	nextSub    int
}

// NewRefresher returns a Refresher with nothing displayed.
func NewRefresher(orchestrator *Orchestrator) *Refresher {
	return &Refresher{
		orchestrator: orchestrator,
		subs:         make(map[int]func(State)),
	}
}

// State returns the current snapshot.
func (r *Refresher) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Subscribe registers fn to receive every new snapshot. The returned
// function removes the subscription.
func (r *Refresher) Subscribe(fn func(State)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		delete(r.subs, id)
	}
}

// publish must be called with r.mu held; it returns the notifier to run
// once the lock is released.
func (r *Refresher) publish() func() {
	state := r.state

	subs := make([]func(State), 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}

	return func() {
		for _, s := range subs {
			s(state)
		}
	}
}

// begin starts a new generation and cancels the previous one.
func (r *Refresher) begin(ctx context.Context) (context.Context, context.CancelFunc, uint64) {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}

	r.generation++
	gen := r.generation
	r.cancel = cancel
	r.state.Generation = gen
	r.state.Busy = true
	notify := r.publish()
	r.mu.Unlock()
	notify()

	return ctx, cancel, gen
}

func (r *Refresher) run(ctx context.Context, cancel context.CancelFunc, gen uint64, source DataSource) State {
	defer cancel()

	result, err := r.orchestrator.FetchWithFallback(ctx, source)

	r.mu.Lock()
	if gen != r.generation {
		state := r.state
		r.mu.Unlock()

		slog.Debug("dropping superseded refresh", "generation", gen, "current", state.Generation)

		return state
	}

	r.cancel = nil
	r.state.Busy = false

	if err != nil {
		// the previous reading stays displayed
		r.state.LastError = err
		r.state.Message = HumanMessage(err)
	} else {
		now := time.Now()
		r.state.Result = result
		r.state.Card = NewCard(result.Reading, result.Coordinate)
		r.state.FellBack = result.FellBack
		r.state.LastError = nil
		r.state.Message = ""
		r.state.UpdatedAt = &now
	}

	state := r.state
	notify := r.publish()
	r.mu.Unlock()
	notify()

	return state
}

// Refresh fetches a reading from source and waits for it. It returns the
// state after the refresh; when a newer refresh started meanwhile, the
// result is discarded and the returned state is the current one.
func (r *Refresher) Refresh(ctx context.Context, source DataSource) State {
	ctx, cancel, gen := r.begin(ctx)

	return r.run(ctx, cancel, gen, source)
}

// RefreshAsync starts a refresh in the background and returns its
// generation. The refresh is detached from ctx cancellation but keeps its
// values.
func (r *Refresher) RefreshAsync(ctx context.Context, source DataSource) uint64 {
	ctx, cancel, gen := r.begin(context.WithoutCancel(ctx))

	go r.run(ctx, cancel, gen, source)

	return gen
}

// Cancel aborts the refresh in flight, if any.
func (r *Refresher) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
}
