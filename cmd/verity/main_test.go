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
	configPath := filepath.Join(base, "verity.toml")
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\n\n[calibration]\nfixture_dir = %q\n",
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "fixtures"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := execute(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output: %q", out)
	}

	if _, err := execute(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}

	out, err = execute(t, "config", "validate", "--path", target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "valid") {
		t.Fatalf("output: %q", out)
	}
}

func TestQueueListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := execute(t, "--config", configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "empty") {
		t.Fatalf("output: %q", out)
	}
}

func TestSubmitSpoolsValidFile(t *testing.T) {
	configPath := writeTestConfig(t)

	submission := filepath.Join(t.TempDir(), "sub.json")
	payload := `{"contentRef":"case-1/a.png","contentType":"ocr","analyzerId":"tesseract","value":"hi","rawConfidence":0.9}`
	if err := os.WriteFile(submission, []byte(payload), 0o644); err != nil {
		t.Fatalf("write submission: %v", err)
	}

	out, err := execute(t, "--config", configPath, "submit", submission)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(out, "Queued") {
		t.Fatalf("output: %q", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write bad: %v", err)
	}
	if _, err := execute(t, "--config", configPath, "submit", bad); err == nil {
		t.Fatal("malformed submission should be rejected before spooling")
	}
}

func TestCalibrationReportEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := execute(t, "--config", configPath, "calibration", "report")
	if err != nil {
		t.Fatalf("calibration report: %v", err)
	}
	if !strings.Contains(out, "No calibration runs") {
		t.Fatalf("output: %q", out)
	}
}
