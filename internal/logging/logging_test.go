package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultLevelIsWarn(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Stderr: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("shown", "job_id", "job-1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "job_id=job-1") {
		t.Fatalf("warn line missing: %s", out)
	}
}

func TestDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Debug: true, Stderr: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("poll", "attempt", 3)
	if !strings.Contains(buf.String(), "attempt=3") {
		t.Fatalf("debug line missing: %s", buf.String())
	}
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cortexctl.log")
	var stderr bytes.Buffer
	logger, closeFn, err := New(Options{File: path, Stderr: &stderr})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("analysis accepted", "job_id", "job-9")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "job_id=job-9") {
		t.Fatalf("log file missing entry: %s", data)
	}
	if stderr.Len() != 0 {
		t.Fatalf("stderr should stay quiet when logging to a file: %s", stderr.String())
	}
}
