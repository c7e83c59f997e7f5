package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// spinnerFrames are drawn in order, one per spinnerInterval.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner draws a progress indicator on one terminal line until it is
// stopped or its context is cancelled.
type Spinner struct {
	out     io.Writer
	message string
	ctx     context.Context
	cancel  context.CancelFunc
	started chan struct{}
	stopped chan struct{}
	start   sync.Once
	stop    sync.Once

	mu     sync.Mutex
	halted bool // Stop came before the context ended
}

// newSpinnerWithContext creates a spinner on stderr that stops when ctx is
// cancelled.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	return newSpinnerTo(ctx, os.Stderr, message)
}

func newSpinnerTo(ctx context.Context, w io.Writer, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		out:     w,
		message: message,
		ctx:     spinnerCtx,
		cancel:  cancel,
		started: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins the animation. Calling it more than once has no effect.
func (s *Spinner) Start() {
	s.start.Do(func() {
		close(s.started)
		go s.run()
	})
}

func (s *Spinner) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			s.clearLine()
			return
		case <-ticker.C:
			frame := spinnerFrames[i%len(spinnerFrames)]
			s.mu.Lock()
			fmt.Fprintf(s.out, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
			s.mu.Unlock()
		}
	}
}

// Stop ends the animation and clears the line. It is safe to call more
// than once and on a spinner that never started.
func (s *Spinner) Stop() {
	s.stop.Do(func() {
		s.mu.Lock()
		s.halted = s.ctx.Err() == nil
		s.mu.Unlock()

		s.cancel()
		select {
		case <-s.started:
			<-s.stopped
		default:
		}
	})
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", len([]rune(s.message))+4))
}

// StopWithSuccess stops the spinner and leaves a success line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	s.finish(styleIconSuccess.Render(iconSuccess), message)
}

// StopWithError stops the spinner and leaves an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	s.finish(styleIconError.Render(iconError), message)
}

func (s *Spinner) finish(icon, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, icon+" "+message)
}

// Cancelled reports whether the spinner's context was cancelled from
// outside, as opposed to a regular Stop.
func (s *Spinner) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx.Err() != nil && !s.halted
}
