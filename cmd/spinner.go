// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// spinner shows activity on stderr while a request is in flight. It is a
// no-op when stderr is not a terminal.
type spinner struct {
	description string

	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	stop chan struct{}
	done chan struct{}
}

func newSpinner(description string) *spinner {
	return &spinner{description: description}
}

// Set starts or stops the spinner.
func (s *spinner) Set(busy bool) {
	if s == nil || !isatty.IsTerminal(os.Stderr.Fd()) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if busy == (s.bar != nil) {
		return
	}

	if !busy {
		close(s.stop)
		<-s.done
		_ = s.bar.Clear()
		s.bar = nil

		return
	}

	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(s.description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func(bar *progressbar.ProgressBar, stop, done chan struct{}) {
		defer close(done)

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				_ = bar.Finish()

				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}(s.bar, s.stop, s.done)
}
