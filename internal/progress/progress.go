// Package progress renders job waits on the terminal.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Indicator shows the lifetime of one wait.
type Indicator interface {
	Start(message string)
	Update(message string)
	Complete(message string)
	Fail(message string)
	Stop()
}

// Indicator kinds accepted by --progress.
const (
	KindAuto    = "auto"
	KindSpinner = "spinner"
	KindLine    = "line"
	KindLight   = "light"
	KindTUI     = "tui"
	KindNone    = "none"
)

// Kinds lists the values accepted by NewIndicator and the tui view.
var Kinds = []string{KindAuto, KindSpinner, KindLine, KindLight, KindTUI, KindNone}

// Spinner redraws one status line in place.
type Spinner struct {
	writer   io.Writer
	frames   []string
	interval time.Duration

	mu      sync.Mutex
	message string
	active  bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{
		writer:   w,
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 120 * time.Millisecond,
	}
}

// Start begins spinning with message.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	if s.active {
		s.message = message
		s.mu.Unlock()
		return
	}
	s.message = message
	s.active = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.run()
}

func (s *Spinner) run() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		s.mu.Lock()
		fmt.Fprintf(s.writer, "\r\033[K%s %s", s.frames[i%len(s.frames)], s.message)
		s.mu.Unlock()

		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}
	}
}

// Update replaces the spinner message.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Complete stops the spinner with a success line.
func (s *Spinner) Complete(message string) {
	s.Stop()
	fmt.Fprintf(s.writer, "✅ %s\n", message)
}

// Fail stops the spinner with a failure line.
func (s *Spinner) Fail(message string) {
	s.Stop()
	fmt.Fprintf(s.writer, "❌ %s\n", message)
}

// Stop ends the spinner and clears its line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh
	fmt.Fprint(s.writer, "\r\033[K")
}

// LineByLine prints every update on its own line. It suits logs and pipes.
type LineByLine struct {
	writer io.Writer
	silent bool
}

// NewLineByLine creates a line-by-line indicator writing to w.
func NewLineByLine(w io.Writer) *LineByLine {
	return &LineByLine{writer: w}
}

// NewQuietLineByLine prints only start and end lines.
func NewQuietLineByLine(w io.Writer) *LineByLine {
	return &LineByLine{writer: w, silent: true}
}

func (l *LineByLine) Start(message string) {
	fmt.Fprintf(l.writer, "🔄 %s\n", message)
}

func (l *LineByLine) Update(message string) {
	if !l.silent {
		fmt.Fprintf(l.writer, "   %s\n", message)
	}
}

func (l *LineByLine) Complete(message string) {
	fmt.Fprintf(l.writer, "✅ %s\n", message)
}

func (l *LineByLine) Fail(message string) {
	fmt.Fprintf(l.writer, "❌ %s\n", message)
}

func (l *LineByLine) Stop() {}

// Light is a minimal ASCII-only indicator.
type Light struct {
	writer io.Writer
}

// NewLight creates a light indicator writing to w.
func NewLight(w io.Writer) *Light {
	return &Light{writer: w}
}

func (l *Light) Start(message string)    { fmt.Fprintf(l.writer, "> %s\n", message) }
func (l *Light) Update(message string)   { fmt.Fprintf(l.writer, "  %s\n", message) }
func (l *Light) Complete(message string) { fmt.Fprintf(l.writer, "ok %s\n", message) }
func (l *Light) Fail(message string)     { fmt.Fprintf(l.writer, "!! %s\n", message) }
func (l *Light) Stop()                   {}

// NewIndicator picks an indicator for kind. Non-interactive output always
// gets line-by-line updates; "tui" is handled by the tui package.
func NewIndicator(w io.Writer, interactive bool, kind string) Indicator {
	if kind == KindNone {
		return NewNullIndicator()
	}
	if !interactive {
		return NewLineByLine(w)
	}

	switch kind {
	case KindSpinner, KindAuto, "":
		return NewSpinner(w)
	case KindLight:
		return NewLight(w)
	default:
		return NewLineByLine(w)
	}
}

// NullIndicator prints nothing.
type NullIndicator struct{}

// NewNullIndicator creates an indicator that does nothing.
func NewNullIndicator() *NullIndicator {
	return &NullIndicator{}
}

func (n *NullIndicator) Start(message string)    {}
func (n *NullIndicator) Update(message string)   {}
func (n *NullIndicator) Complete(message string) {}
func (n *NullIndicator) Fail(message string)     {}
func (n *NullIndicator) Stop()                   {}
