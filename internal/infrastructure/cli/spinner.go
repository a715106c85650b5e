package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Spinner animates a label on a terminal while a command runs. On anything
// other than a terminal it prints nothing.
type Spinner struct {
	frames   []string
	interval time.Duration
	writer   io.Writer
	enabled  bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewSpinner creates a spinner on w.
func NewSpinner(w io.Writer) *Spinner {
	f, ok := w.(*os.File)
	return &Spinner{
		frames:   []string{"|", "/", "-", "\\"},
		interval: 100 * time.Millisecond,
		writer:   w,
		enabled:  ok && isatty.IsTerminal(f.Fd()),
	}
}

// Start shows label until Stop. Calling Start twice is a no-op.
func (s *Spinner) Start(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.writer, "\r%s %s", s.frames[i%len(s.frames)], label)
			select {
			case <-stop:
				fmt.Fprint(s.writer, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}(s.stop, s.done)
}

// Stop clears the line and waits for the animation to end.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
}
