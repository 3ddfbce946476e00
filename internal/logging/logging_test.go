package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDailyWriterWriteAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewDailyWriterWithPrefix(dir, "", 0)
	if err != nil {
		t.Fatalf("NewDailyWriterWithPrefix: %v", err)
	}
	defer writer.Close()

	if writer.retentionDays != defaultRetentionDays {
		t.Fatalf("expected default retention, got %d", writer.retentionDays)
	}
	if _, err := writer.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	date := time.Now().Format("20060102")
	data, err := os.ReadFile(filepath.Join(dir, "stocklog-"+date+".log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("log content missing")
	}
}

func TestDailyWriterRotatesAtMidnight(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2024, time.March, 4, 23, 59, 0, 0, time.UTC)
	writer, err := newDailyWriter(dir, "test", 7, func() time.Time { return clock })
	if err != nil {
		t.Fatalf("newDailyWriter: %v", err)
	}
	defer writer.Close()

	_, _ = writer.Write([]byte("before\n"))
	clock = clock.Add(2 * time.Minute)
	_, _ = writer.Write([]byte("after\n"))

	first, err := os.ReadFile(filepath.Join(dir, "test-20240304.log"))
	if err != nil || string(first) != "before\n" {
		t.Fatalf("unexpected first file: %q %v", first, err)
	}
	second, err := os.ReadFile(filepath.Join(dir, "test-20240305.log"))
	if err != nil || string(second) != "after\n" {
		t.Fatalf("unexpected second file: %q %v", second, err)
	}
}

func TestDailyWriterCleanup(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	files := map[string]bool{
		"test-20240301.log":  false, // past retention
		"test-20240309.log":  true,
		"other-20240101.log": true,
		"test-notadate.log":  true,
	}
	for name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	writer, err := newDailyWriter(dir, "test", 3, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newDailyWriter: %v", err)
	}
	defer writer.Close()

	for name, keep := range files {
		_, err := os.Stat(filepath.Join(dir, name))
		if keep && err != nil {
			t.Errorf("expected %s to remain: %v", name, err)
		}
		if !keep && err == nil {
			t.Errorf("expected %s to be removed", name)
		}
	}
}

func TestDailyWriterCloseNil(t *testing.T) {
	w := &DailyWriter{}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-2", slog.Level(-2)},
		{"verbose", slog.LevelWarn},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.in, slog.LevelWarn); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewHandlerFormatFromEnv(t *testing.T) {
	t.Setenv(envLogFormat, "json")
	var buf bytes.Buffer
	slog.New(newHandler(&buf, slog.LevelInfo)).Info("hello", "k", 1)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "hello" {
		t.Fatalf("unexpected entry: %v", entry)
	}

	t.Setenv(envLogFormat, "")
	buf.Reset()
	slog.New(newHandler(&buf, slog.LevelInfo)).Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level, got %q", buf.String())
	}
}

func TestNewLogger(t *testing.T) {
	previous := slog.Default()
	defer slog.SetDefault(previous)
	t.Setenv(envLogLevel, "debug")

	dir := t.TempDir()
	logger, writer, err := NewLogger(dir, slog.LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer writer.Close()
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("expected env level override to enable debug")
	}
}
