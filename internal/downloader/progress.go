package downloader

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Transfer is a snapshot of one artifact download. Total is -1 when the
// server sent no Content-Length.
type Transfer struct {
	Name    string
	Done    int64
	Total   int64
	Elapsed time.Duration
}

// Percent is the completed share in [0, 100], or -1 when Total is unknown.
func (t Transfer) Percent() float64 {
	if t.Total <= 0 {
		return -1
	}
	p := float64(t.Done) / float64(t.Total) * 100
	if p > 100 {
		p = 100
	}
	return p
}

// Rate is the average throughput in bytes per second.
func (t Transfer) Rate() uint64 {
	if t.Elapsed <= 0 {
		return 0
	}
	return uint64(float64(t.Done) / t.Elapsed.Seconds())
}

// ProgressReporter receives download progress.
type ProgressReporter interface {
	Started(t Transfer)
	Progressed(t Transfer)
	Finished(t Transfer)
}

// NoopProgressReporter discards all progress events.
type NoopProgressReporter struct{}

func (*NoopProgressReporter) Started(Transfer)    {}
func (*NoopProgressReporter) Progressed(Transfer) {}
func (*NoopProgressReporter) Finished(Transfer)   {}

const (
	barWidth        = 30
	redrawThreshold = 200 * time.Millisecond
)

// ConsoleProgressReporter draws a single redrawn bar line per artifact.
type ConsoleProgressReporter struct {
	w        io.Writer
	lastDraw time.Time
}

// NewConsoleProgressReporter writes to w, or stdout when w is nil.
func NewConsoleProgressReporter(w io.Writer) *ConsoleProgressReporter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleProgressReporter{w: w}
}

func (c *ConsoleProgressReporter) Started(t Transfer) {
	size := "size unknown"
	if t.Total > 0 {
		size = humanize.IBytes(uint64(t.Total)) + " total"
	}
	fmt.Fprintf(c.w, "  %s: starting download (%s)\n", t.Name, size)
	c.lastDraw = time.Now()
}

func (c *ConsoleProgressReporter) Progressed(t Transfer) {
	if time.Since(c.lastDraw) < redrawThreshold {
		return
	}
	c.lastDraw = time.Now()
	fmt.Fprintf(c.w, "\r%s", c.line(t))
}

func (c *ConsoleProgressReporter) Finished(t Transfer) {
	fmt.Fprintf(c.w, "\r%s\n", c.line(t))
}

func (c *ConsoleProgressReporter) line(t Transfer) string {
	rate := humanize.IBytes(t.Rate()) + "/s"
	pct := t.Percent()
	if pct < 0 {
		return fmt.Sprintf("  %s: %s downloaded %s", t.Name, humanize.IBytes(uint64(t.Done)), rate)
	}

	filled := int(barWidth * pct / 100)
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat(" ", barWidth-filled-1)
	}
	return fmt.Sprintf("  %s: [%s] %5.1f%% (%s/%s) %s", t.Name, bar, pct,
		humanize.IBytes(uint64(t.Done)), humanize.IBytes(uint64(t.Total)), rate)
}

// meter counts bytes read through it and relays them to a reporter.
type meter struct {
	r        io.Reader
	reporter ProgressReporter
	transfer Transfer
	start    time.Time
}

func newMeter(r io.Reader, name string, total int64, reporter ProgressReporter) *meter {
	if reporter == nil {
		reporter = &NoopProgressReporter{}
	}
	m := &meter{
		r:        r,
		reporter: reporter,
		transfer: Transfer{Name: name, Total: total},
		start:    time.Now(),
	}
	reporter.Started(m.transfer)
	return m
}

func (m *meter) Read(p []byte) (int, error) {
	n, err := m.r.Read(p)
	if n > 0 {
		m.transfer.Done += int64(n)
		m.transfer.Elapsed = time.Since(m.start)
		m.reporter.Progressed(m.transfer)
	}
	return n, err
}

// finish reports completion; an unknown total becomes the byte count read.
func (m *meter) finish() Transfer {
	m.transfer.Elapsed = time.Since(m.start)
	if m.transfer.Total <= 0 {
		m.transfer.Total = m.transfer.Done
	}
	m.reporter.Finished(m.transfer)
	return m.transfer
}
