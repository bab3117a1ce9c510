package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerTick = 80 * time.Millisecond

// Spinner animates a progress message on stderr. Without a terminal it
// prints the message once and stays silent.
type Spinner struct {
	message string
	out     io.Writer
	tty     bool

	stop     chan struct{}
	stopOnce sync.Once
	done     sync.WaitGroup
}

// NewSpinner creates a spinner for message. Call Start, then Stop.
func NewSpinner(message string) *Spinner {
	fd := os.Stderr.Fd()
	return &Spinner{
		message: message,
		out:     os.Stderr,
		tty:     isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
		stop:    make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	if !s.tty {
		fmt.Fprintf(s.out, "%s...\n", s.message)
		return
	}
	s.done.Add(1)
	go s.run()
}

func (s *Spinner) run() {
	defer s.done.Done()
	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-s.stop:
			fmt.Fprint(s.out, "\r\033[K")
			return
		case <-ticker.C:
			fmt.Fprintf(s.out, "\r%s %s", Accent.Render(spinnerFrames[frame%len(spinnerFrames)]), s.message)
		}
	}
}

// Stop ends the animation and clears the line. Safe to call more than once.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.done.Wait()
}

// Spin runs fn while a spinner shows message. With quiet set no spinner is
// shown.
func Spin(message string, quiet bool, fn func() error) error {
	if quiet {
		return fn()
	}
	s := NewSpinner(message)
	s.Start()
	defer s.Stop()
	return fn()
}
