package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// setupTestDir points the package at a temp log directory and resets the
// session state so tests do not touch the real home directory.
func setupTestDir(t *testing.T) {
	t.Helper()

	tempDir := t.TempDir()

	origLogDir := logDir
	origDirErr := dirErr
	origDirOnce := dirOnce
	origSessionID := sessionID
	origSessionIDOnce := sessionIDOnce

	logDir = tempDir
	dirErr = nil
	dirOnce = sync.Once{}
	dirOnce.Do(func() {})
	sessionID = ""
	sessionIDOnce = sync.Once{}

	t.Cleanup(func() {
		logDir = origLogDir
		dirErr = origDirErr
		dirOnce = origDirOnce
		sessionID = origSessionID
		sessionIDOnce = origSessionIDOnce
	})
}

func TestNewLogger(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("broker")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Close()

	if logger.component != "broker" {
		t.Errorf("component = %q, want broker", logger.component)
	}
	if logger.sessionID == "" {
		t.Error("expected non-empty session ID")
	}
	if _, err := os.Stat(logger.logPath); os.IsNotExist(err) {
		t.Errorf("log file missing at %s", logger.logPath)
	}
}

func TestLoggerLevels(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("scan")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Close()

	logger.Debugf("debug %d", 1)
	logger.Infof("info %d", 2)
	logger.Warnf("warn %d", 3)
	logger.Errorf("error %d", 4)

	content, err := os.ReadFile(logger.logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	for _, want := range []string{
		"[scan] [DEBUG] debug 1",
		"[scan] [INFO] info 2",
		"[scan] [WARN] warn 3",
		"[scan] [ERROR] error 4",
	} {
		if !strings.Contains(string(content), want) {
			t.Errorf("log missing %q\ncontent:\n%s", want, content)
		}
	}
}

func TestComponentsShareSessionFile(t *testing.T) {
	setupTestDir(t)

	l1, err := NewLogger("scheduler")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l1.Close()

	l2, err := NewLogger("delivery")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l2.Close()

	if l1.sessionID != l2.sessionID {
		t.Errorf("session IDs differ: %q vs %q", l1.sessionID, l2.sessionID)
	}
	if l1.logPath != l2.logPath {
		t.Errorf("log paths differ: %q vs %q", l1.logPath, l2.logPath)
	}

	l1.Infof("from scheduler")
	l2.Infof("from delivery")

	content, err := os.ReadFile(l1.logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(content), "[scheduler]") || !strings.Contains(string(content), "[delivery]") {
		t.Errorf("expected entries from both components, got:\n%s", content)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("first close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}
}

func TestLogPathFormat(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Close()

	fileName := filepath.Base(logger.logPath)
	if !strings.HasSuffix(fileName, "-bridge.log") {
		t.Errorf("log file = %q, want suffix -bridge.log", fileName)
	}
}
