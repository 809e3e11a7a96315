package logger

// ColoredLogger is the interactive console logger: short timestamps and
// level colours when writing to a terminal. JSON output is left as is.
type ColoredLogger struct {
	*StandardLogger
}

// NewColoredLogger accepts the same options as NewStandardLogger.
func NewColoredLogger(opts ...Option) *ColoredLogger {
	base := options{level: LevelInfo, clock: "15:04:05", color: true}
	return &ColoredLogger{StandardLogger: newStandardLogger(base, opts)}
}
