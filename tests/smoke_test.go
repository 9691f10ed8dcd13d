package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

var binaryPath string

func TestMain(m *testing.M) {
	projectRoot, err := filepath.Abs("..")
	if err != nil {
		panic("Failed to get project root: " + err.Error())
	}

	binDir := filepath.Join(projectRoot, "bin")
	if err := os.MkdirAll(binDir, 0755); err != nil {
		panic("Failed to create bin directory: " + err.Error())
	}

	binaryPath = filepath.Join(binDir, "docuscan_test")

	cmd := exec.Command("go", "build", "-o", binaryPath, filepath.Join(projectRoot, "cmd", "docuscan"))
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	if err != nil {
		panic("Failed to build test binary: " + err.Error() + "\n" + string(output))
	}

	exitCode := m.Run()

	os.Remove(binaryPath)
	os.Exit(exitCode)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	input, _ := os.Open("/dev/null")
	cmd.Stdin = input
	defer input.Close()

	output, err := cmd.CombinedOutput()
	return string(output), err
}

func TestBinaryVersion(t *testing.T) {
	output, err := run(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if len(output) == 0 {
		t.Fatal("version produced no output")
	}
}

func TestBinaryHelp(t *testing.T) {
	output, err := run(t, "help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	if len(output) == 0 {
		t.Fatal("help produced no output")
	}
}

func TestBinaryNoArgs(t *testing.T) {
	// No arguments prints usage and exits nonzero.
	output, err := run(t)
	if err == nil {
		t.Fatal("expected a nonzero exit without arguments")
	}
	if len(output) == 0 {
		t.Fatal("expected usage output")
	}
}

func TestBinaryProcessWithoutFile(t *testing.T) {
	output, err := run(t, "process", "-data", t.TempDir())
	if err == nil {
		t.Fatal("expected a nonzero exit without an input file")
	}
	if len(output) == 0 {
		t.Fatal("expected an error message")
	}
}

func TestBinaryHistoryEmpty(t *testing.T) {
	output, err := run(t, "history", "-data", t.TempDir())
	if err != nil {
		t.Fatalf("history failed: %v\n%s", err, output)
	}
	if len(output) == 0 {
		t.Fatal("history produced no output")
	}
}

func TestBinaryUnsupportedFile(t *testing.T) {
	dataDir := t.TempDir()
	path := filepath.Join(dataDir, "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0644); err != nil {
		t.Fatal(err)
	}

	// Fails before any network activity: unknown extension.
	output, err := run(t, "process", "-data", dataDir, path)
	if err == nil {
		t.Fatal("expected a nonzero exit for an unsupported file")
	}
	if len(output) == 0 {
		t.Fatal("expected an error message")
	}
}
