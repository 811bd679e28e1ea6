package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner animates a single status line on a terminal. On a non-terminal
// writer (pipes, CI) it stays silent so output remains line-oriented.
type Spinner struct {
	w       io.Writer
	enabled bool

	mu   sync.Mutex
	msg  string
	done chan struct{}
	wg   sync.WaitGroup
}

// NewSpinner creates a spinner writing to w. Animation only happens when w
// is a terminal and quiet is unset.
func NewSpinner(w io.Writer, quiet bool) *Spinner {
	return &Spinner{w: w, enabled: !quiet && isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start begins the animation. Calling Start on a disabled spinner is a
// no-op, so callers never branch.
func (s *Spinner) Start(msg string) {
	if !s.enabled {
		return
	}
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return
	}
	s.msg = msg
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()
}

// SetMessage swaps the status text without restarting the animation.
func (s *Spinner) SetMessage(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

// Stop halts the animation and clears the line. Safe to call when the
// spinner never started.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if s.done == nil {
		s.mu.Unlock()
		return
	}
	close(s.done)
	s.done = nil
	s.mu.Unlock()

	s.wg.Wait()
	fmt.Fprint(s.w, "\r\033[K")
}

func (s *Spinner) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	frame := 0
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.msg
			s.mu.Unlock()
			fmt.Fprintf(s.w, "\r\033[K%s %s", successStyle.Render(spinnerFrames[frame]), msg)
			frame = (frame + 1) % len(spinnerFrames)
		}
	}
}
