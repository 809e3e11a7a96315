package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	runewidth "github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Printer renders the banners, separators and tables shown during a run.
type Printer struct {
	out     io.Writer
	success *color.Color
	info    *color.Color
	warn    *color.Color
	error   *color.Color
	faint   *color.Color
}

// NewPrinter constructs a Printer writing to out (stdout when nil), with
// colour enabled only for terminals and when NO_COLOR is unset.
func NewPrinter(out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	enabled := supportsColor(out) && os.Getenv("NO_COLOR") == ""

	p := &Printer{
		out:     out,
		success: color.New(color.FgGreen, color.Bold),
		info:    color.New(color.FgCyan, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		error:   color.New(color.FgRed, color.Bold),
		faint:   color.New(color.Faint),
	}

	for _, c := range []*color.Color{p.success, p.info, p.warn, p.error, p.faint} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

// PrintBanner renders the application banner.
func (p *Printer) PrintBanner(version string) {
	lines := []string{
		"==========================================",
		"    _    ____  _  __  ____             _",
		"   / \\  |  _ \\| |/ / | __ )  __ _  ___| | __",
		"  / _ \\ | |_) | ' /  |  _ \\ / _` |/ __| |/ /",
		" / ___ \\|  __/| . \\  | |_) | (_| | (__|   <",
		"/_/   \\_\\_|   |_|\\_\\ |____/ \\__,_|\\___|_|\\_\\",
		"",
		"Release archive for App Center apps " + version,
		"==========================================",
	}
	for _, line := range lines {
		p.success.Fprintln(p.out, line)
	}
}

// PrintSeparator prints a repeated character separator.
func (p *Printer) PrintSeparator(char string, length int) {
	if length <= 0 {
		return
	}
	fmt.Fprintln(p.out, strings.Repeat(char, length))
}

// PrintRelease announces the release about to be processed.
func (p *Printer) PrintRelease(app, version, id string) {
	p.PrintSeparator("-", 60)
	fmt.Fprintf(p.out, "%s %s %s %s\n",
		p.info.Sprint("App:"), app,
		p.info.Sprint("Release:"), p.warn.Sprintf("v%s (#%s)", version, id))
}

// PrintStatus renders a one-line outcome with a coloured mark.
func (p *Printer) PrintStatus(label, status string) {
	fmt.Fprintf(p.out, "[ %s ] %s: %s\n", p.mark(status), label, status)
}

func (p *Printer) mark(status string) string {
	switch status {
	case "Success", "Cached", "Skipped", "Local":
		return p.success.Sprint("✓")
	case "Failed":
		return p.error.Sprint("✕")
	default:
		return p.faint.Sprint("-")
	}
}

// PrintTable writes rows under headers with columns padded to their display width.
func (p *Printer) PrintTable(title string, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	total := 0
	for _, w := range widths {
		total += w + 3
	}

	p.PrintSeparator("=", total)
	if title != "" {
		p.success.Fprintln(p.out, title)
		p.PrintSeparator("-", total)
	}
	p.info.Fprintln(p.out, formatRow(headers, widths))
	for _, row := range rows {
		fmt.Fprintln(p.out, formatRow(row, widths))
	}
	p.PrintSeparator("=", total)
}

func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = runewidth.FillRight(cell, w)
	}
	return strings.TrimRight(strings.Join(parts, " | "), " ")
}

func supportsColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
