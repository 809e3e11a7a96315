package logger

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockEntry is one recorded emission.
type MockEntry struct {
	Level   Level
	Message string
	Fields  []Field
	Run     RunContext
}

// Field returns the value of the named field and whether it was present.
func (e MockEntry) Field(key string) (interface{}, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

type mockStore struct {
	mu      sync.Mutex
	entries []MockEntry
	level   Level
}

// MockLogger records entries in memory for test assertions. Loggers derived
// with With record into the same store.
type MockLogger struct {
	store  *mockStore
	fields []Field
}

// NewMockLogger records every level.
func NewMockLogger() *MockLogger {
	return &MockLogger{store: &mockStore{level: LevelDebug}}
}

func (m *MockLogger) Debug(format string, args ...interface{}) {
	m.record(context.Background(), LevelDebug, fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Info(format string, args ...interface{}) {
	m.record(context.Background(), LevelInfo, fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Warn(format string, args ...interface{}) {
	m.record(context.Background(), LevelWarn, fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Error(format string, args ...interface{}) {
	m.record(context.Background(), LevelError, fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) DebugContext(ctx context.Context, msg string, fields ...Field) {
	m.record(ctx, LevelDebug, msg, fields)
}

func (m *MockLogger) InfoContext(ctx context.Context, msg string, fields ...Field) {
	m.record(ctx, LevelInfo, msg, fields)
}

func (m *MockLogger) WarnContext(ctx context.Context, msg string, fields ...Field) {
	m.record(ctx, LevelWarn, msg, fields)
}

func (m *MockLogger) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	m.record(ctx, LevelError, msg, fields)
}

func (m *MockLogger) With(fields ...Field) Logger {
	merged := append(append([]Field{}, m.fields...), fields...)
	return &MockLogger{store: m.store, fields: merged}
}

func (m *MockLogger) SetLevel(level Level) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.level = level
}

func (m *MockLogger) GetLevel() Level {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.level
}

func (m *MockLogger) record(ctx context.Context, level Level, msg string, fields []Field) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if level < m.store.level {
		return
	}
	m.store.entries = append(m.store.entries, MockEntry{
		Level:   level,
		Message: msg,
		Fields:  append(append([]Field{}, m.fields...), fields...),
		Run:     RunFromContext(ctx),
	})
}

// GetEntries returns a copy of everything recorded so far.
func (m *MockLogger) GetEntries() []MockEntry {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return append([]MockEntry(nil), m.store.entries...)
}

// Find returns the first entry at level whose message contains substring.
func (m *MockLogger) Find(level Level, substring string) (MockEntry, bool) {
	for _, entry := range m.GetEntries() {
		if entry.Level == level && strings.Contains(entry.Message, substring) {
			return entry, true
		}
	}
	return MockEntry{}, false
}

// HasEntry reports whether an entry at level contains substring.
func (m *MockLogger) HasEntry(level Level, substring string) bool {
	_, ok := m.Find(level, substring)
	return ok
}

// CountEntries counts entries at level.
func (m *MockLogger) CountEntries(level Level) int {
	n := 0
	for _, entry := range m.GetEntries() {
		if entry.Level == level {
			n++
		}
	}
	return n
}

// Reset drops all recorded entries.
func (m *MockLogger) Reset() {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entries = nil
}
