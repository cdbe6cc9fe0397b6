package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout runs fn and returns what it wrote to stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func TestRunHelp(t *testing.T) {
	output := captureStdout(t, runHelp)

	for _, expected := range []string{
		"kura serve",
		"kura ingest",
		"kura ask",
		"--replace",
		"--from-file",
		"GEMINI_API_KEY",
		"DATABASE_URL",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("expected help output to contain %q\nGot: %s", expected, output)
		}
	}
	if strings.Contains(output, "KURA_POSTGRES_URL") {
		t.Error("help output names an environment variable the config never reads")
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"kura", "bogus"}

	err := Execute()
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown command")
	}
	if !strings.Contains(err.Error(), "bogus") {
		t.Errorf("error %q should name the unknown command", err)
	}
}

func TestExecuteNoArgsShowsHelp(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"kura"}

	var err error
	output := captureStdout(t, func() { err = Execute() })
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(output, "Usage:") {
		t.Errorf("expected help output, got: %s", output)
	}
}

func TestExecuteVersion(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"kura", "--version"}

	var err error
	output := captureStdout(t, func() { err = Execute() })
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(output, "kura "+Version) {
		t.Errorf("expected version output, got: %s", output)
	}
}
