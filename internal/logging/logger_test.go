package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNoopWhenDebugDisabled(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, Config{DebugMode: false}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	Resolver("should not be written")

	if _, err := os.Stat(filepath.Join(dir, "logs")); !os.IsNotExist(err) {
		t.Error("logs directory created despite debug mode off")
	}
}

func TestWritesCategoryFile(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, Config{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	Resolver("resolved sound=%s", "pirates")
	ResolverDebug("raw reply len=%d", 42)

	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	if err != nil {
		t.Fatalf("reading logs dir: %v", err)
	}
	var found string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_resolver.log") {
			found = filepath.Join(dir, "logs", e.Name())
		}
	}
	if found == "" {
		t.Fatal("no resolver log file created")
	}

	data, err := os.ReadFile(found)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "resolved sound=pirates") {
		t.Errorf("log content missing entry: %s", data)
	}
	if !strings.Contains(string(data), "[DEBUG] raw reply len=42") {
		t.Errorf("debug entry missing: %s", data)
	}
}

func TestCategoryFilter(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		DebugMode:  true,
		Level:      "info",
		Categories: map[string]bool{"playback": false},
	}
	if err := Initialize(dir, cfg); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	if IsCategoryEnabled(CategoryPlayback) {
		t.Error("playback category should be disabled")
	}
	if !IsCategoryEnabled(CategoryResolver) {
		t.Error("unlisted category should default to enabled")
	}

	Playback("must not appear")

	entries, _ := os.ReadDir(filepath.Join(dir, "logs"))
	for _, e := range entries {
		if strings.Contains(e.Name(), "playback") {
			t.Errorf("disabled category produced a file: %s", e.Name())
		}
	}
}

func TestLevelGate(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, Config{DebugMode: true, Level: "warn"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	l := Get(CategoryServer)
	l.Info("info suppressed")
	l.Warn("warn kept")

	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	if err != nil {
		t.Fatalf("reading logs dir: %v", err)
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), "_server.log") {
			continue
		}
		data, _ := os.ReadFile(filepath.Join(dir, "logs", e.Name()))
		if strings.Contains(string(data), "info suppressed") {
			t.Error("info message written at warn level")
		}
		if !strings.Contains(string(data), "warn kept") {
			t.Error("warn message missing")
		}
	}
}
