package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Formatter renders one entry, including its trailing newline.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Entry is a single log record.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
	Fields  []Field
	Run     RunContext
}

// TextFormatter renders entries as
//
//	15:04:05 [INFO] [app#release] message key=value run_id=...
//
// The release tag is present only for entries logged with a release context.
type TextFormatter struct {
	TimestampFormat string
	Color           bool
}

var levelColors = map[Level]*color.Color{
	LevelDebug: color.New(color.FgCyan),
	LevelInfo:  color.New(color.FgBlue),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
}

var faint = color.New(color.Faint)

func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = time.RFC3339
	}

	var b strings.Builder
	b.WriteString(entry.Time.Format(layout))
	b.WriteString(" [")
	b.WriteString(f.paint(levelColors[entry.Level], entry.Level.String()))
	b.WriteString("] ")

	if tag := entry.Run.tag(); tag != "" {
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("] ")
	}
	b.WriteString(entry.Message)

	for _, field := range entry.Fields {
		b.WriteString(" ")
		b.WriteString(f.paint(faint, fmt.Sprintf("%s=%v", field.Key, field.Value)))
	}
	if entry.Run.RunID != "" {
		b.WriteString(" ")
		b.WriteString(f.paint(faint, "run_id="+entry.Run.RunID))
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}

func (f *TextFormatter) paint(c *color.Color, text string) string {
	if !f.Color || c == nil {
		return text
	}
	return c.Sprint(text)
}

// JSONFormatter renders entries as newline-delimited JSON objects. Run
// metadata is emitted as run_id, app and release keys.
type JSONFormatter struct {
	TimestampFormat string
}

func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = time.RFC3339Nano
	}

	record := make(map[string]interface{}, len(entry.Fields)+6)
	for _, field := range entry.Fields {
		record[field.Key] = field.Value
	}
	for _, field := range entry.Run.fields() {
		record[field.Key] = field.Value
	}
	record["time"] = entry.Time.Format(layout)
	record["level"] = entry.Level.String()
	record["msg"] = entry.Message

	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// colorEnabled reports whether w is a terminal and NO_COLOR is unset.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
