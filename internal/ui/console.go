package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"APKBackup/internal/logger"
)

// Console shows the startup steps of a run: an animated spinner on a
// terminal, plain "step... ok" lines elsewhere so piped output stays readable.
type Console struct {
	logger      logger.Logger
	output      io.Writer
	interactive bool
	progress    logger.Progress
	started     time.Time
}

// NewConsole writes to output, or stdout when output is nil.
func NewConsole(log logger.Logger, output io.Writer) *Console {
	if output == nil {
		output = os.Stdout
	}
	return &Console{
		logger:      log,
		output:      output,
		interactive: supportsColor(output),
	}
}

// StartProgress announces a step. Only one step runs at a time.
func (c *Console) StartProgress(step string) {
	c.started = time.Now()
	if c.interactive {
		c.progress = logger.NewSpinnerProgress(c.output)
		c.progress.Start(step)
		return
	}
	fmt.Fprintf(c.output, "%s...\n", step)
}

// StopProgress marks the current step as done.
func (c *Console) StopProgress(step string) {
	c.finish(step, true)
}

// FailProgress marks the current step as failed.
func (c *Console) FailProgress(step string) {
	c.finish(step, false)
}

func (c *Console) finish(step string, ok bool) {
	elapsed := time.Since(c.started).Round(time.Millisecond)
	if c.logger != nil {
		c.logger.Debug("Step %q finished in %s (ok=%t)", step, elapsed, ok)
	}

	if c.progress != nil {
		if ok {
			c.progress.Stop(step)
		} else {
			c.progress.Fail(step)
		}
		c.progress = nil
		return
	}

	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	fmt.Fprintf(c.output, "%s... %s\n", step, outcome)
}
