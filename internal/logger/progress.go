package logger

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress marks the start and the outcome of a startup step.
type Progress interface {
	Start(operation string)
	Stop(operation string)
	Fail(operation string)
}

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

const spinnerInterval = 120 * time.Millisecond

// SpinnerProgress animates a braille spinner next to the step name until
// Stop or Fail prints the final ✓ or ✕ line. It cannot be restarted.
type SpinnerProgress struct {
	mu       sync.Mutex
	w        io.Writer
	done     chan struct{}
	doneOnce sync.Once
	finished bool
}

// NewSpinnerProgress writes to w, or discards output when w is nil.
func NewSpinnerProgress(w io.Writer) *SpinnerProgress {
	if w == nil {
		w = io.Discard
	}
	return &SpinnerProgress{w: w, done: make(chan struct{})}
}

func (p *SpinnerProgress) Start(operation string) {
	go p.spin(operation)
}

func (p *SpinnerProgress) Stop(operation string) {
	p.finish('✓', operation)
}

func (p *SpinnerProgress) Fail(operation string) {
	p.finish('✕', operation)
}

func (p *SpinnerProgress) spin(operation string) {
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-p.done:
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		if p.finished {
			p.mu.Unlock()
			return
		}
		fmt.Fprintf(p.w, "\r%c %s", spinnerFrames[frame%len(spinnerFrames)], operation)
		p.mu.Unlock()
	}
}

func (p *SpinnerProgress) finish(mark rune, operation string) {
	p.doneOnce.Do(func() { close(p.done) })

	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = true
	fmt.Fprintf(p.w, "\r%c %s\n", mark, operation)
}
