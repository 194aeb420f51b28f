// Package logging provides per-component file logging for the bridge.
// All outcomes of scanning, brokering, and delivery are observable only
// through the inbox page itself and through these logs, so every component
// gets its own named logger writing into one session-scoped file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger writes level-prefixed entries for a single component. All
// components of one process share a session file under
// ~/.gpt-bridge/logs/; if that file cannot be created the logger falls
// back to stderr rather than failing the component.
type Logger struct {
	sessionID string
	component string
	file      *os.File
	logger    *log.Logger
	logPath   string
	mu        sync.Mutex
	closeOnce sync.Once
}

var (
	sessionID     string
	sessionIDOnce sync.Once

	logDir  string
	dirOnce sync.Once
	dirErr  error
)

func currentSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

func ensureLogDir() error {
	dirOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			dirErr = fmt.Errorf("resolve home directory: %w", err)
			return
		}
		logDir = filepath.Join(home, ".gpt-bridge", "logs")
		if err := os.MkdirAll(logDir, 0750); err != nil {
			dirErr = fmt.Errorf("create log directory: %w", err)
		}
	})
	return dirErr
}

// NewLogger creates a logger for a component, writing to
// ~/.gpt-bridge/logs/<session-id>-bridge.log. On failure it returns a
// stderr-backed logger together with the error so callers can surface the
// degraded mode.
func NewLogger(component string) (*Logger, error) {
	if err := ensureLogDir(); err != nil {
		return fallbackLogger(component, err), err
	}

	sessID := currentSessionID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-bridge.log", sessID))

	// Append mode: every component of the session shares the file.
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		wrapped := fmt.Errorf("open log file: %w", err)
		return fallbackLogger(component, wrapped), wrapped
	}

	return &Logger{
		sessionID: sessID,
		component: component,
		file:      file,
		logger:    log.New(file, "", 0),
		logPath:   logPath,
	}, nil
}

func fallbackLogger(component string, err error) *Logger {
	logger := log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags)
	logger.Printf("WARNING: file logging unavailable, using stderr: %v", err)
	return &Logger{
		sessionID: currentSessionID(),
		component: component,
		logger:    logger,
	}
}

func (l *Logger) write(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, fmt.Sprintf(format, v...))
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) { l.write("DEBUG", format, v...) }

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...interface{}) { l.write("INFO", format, v...) }

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) { l.write("WARN", format, v...) }

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) { l.write("ERROR", format, v...) }

// Writer returns the underlying destination, for handing to libraries that
// want an io.Writer.
func (l *Logger) Writer() io.Writer {
	if l.file != nil {
		return l.file
	}
	return os.Stderr
}

// SessionID returns the process-wide logging session ID.
func (l *Logger) SessionID() string { return l.sessionID }

// LogPath returns the log file path, or "" in fallback mode.
func (l *Logger) LogPath() string { return l.logPath }

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// SessionID returns the process-wide logging session ID.
func SessionID() string { return currentSessionID() }
