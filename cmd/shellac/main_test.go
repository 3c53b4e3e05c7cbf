package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
library_root = %q
data_dir = %q
log_dir = %q
`,
		filepath.Join(base, "music"),
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Fatalf("output should name the target, got %q", output)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite must fail")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("init with --overwrite: %v", err)
	}
}

func TestStatsCommandEmptyLibrary(t *testing.T) {
	cfgPath := writeTestConfig(t)

	output, err := runCommand(t, "--config", cfgPath, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(output, "Active") {
		t.Fatalf("expected stats table, got %q", output)
	}
}

func TestHistoryCommandEmpty(t *testing.T) {
	cfgPath := writeTestConfig(t)

	output, err := runCommand(t, "--config", cfgPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(output, "No folders vetted yet") {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestPurgeRequiresConfirmation(t *testing.T) {
	cfgPath := writeTestConfig(t)

	if _, err := runCommand(t, "--config", cfgPath, "library", "purge"); err == nil {
		t.Fatal("purge without --yes must be refused")
	}
	output, err := runCommand(t, "--config", cfgPath, "library", "purge", "--yes")
	if err != nil {
		t.Fatalf("purge --yes: %v", err)
	}
	if !strings.Contains(output, "Purged 0") {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestMatchCommandRejectsBadThreshold(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := runCommand(t, "--config", cfgPath, "match", "--threshold", "1.5", "/nowhere/track.mp3")
	if err == nil || !strings.Contains(err.Error(), "threshold") {
		t.Fatalf("out-of-range threshold must be rejected before file access, got %v", err)
	}
}

func TestVerifyCommandEmptyLibrary(t *testing.T) {
	cfgPath := writeTestConfig(t)

	output, err := runCommand(t, "--config", cfgPath, "library", "verify")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(output, "Verified 0 records") {
		t.Fatalf("unexpected output: %q", output)
	}
}
