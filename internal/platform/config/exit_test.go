package config

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
	"testing"
)

func captureExit(t *testing.T) (*bytes.Buffer, *int) {
	t.Helper()
	var out bytes.Buffer
	code := -1
	prevWriter, prevExit := exitWriter, exitFunc
	exitWriter = &out
	exitFunc = func(c int) { code = c }
	t.Cleanup(func() {
		exitWriter, exitFunc = prevWriter, prevExit
	})
	return &out, &code
}

func TestExitfReportsHealthcheckFailure(t *testing.T) {
	out, code := captureExit(t)

	Exitf("unhealthy: %v", `connect to duel.lobby: status NOT_SERVING`)

	if *code != 1 {
		t.Fatalf("exit code = %d, want 1", *code)
	}
	if got, want := out.String(), "unhealthy: connect to duel.lobby: status NOT_SERVING\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestExitfReportsFlagParseFailure(t *testing.T) {
	out, code := captureExit(t)

	Exitf("parse flags: %v", "invalid value \"soon\" for flag -timeout")

	if *code != 1 {
		t.Fatalf("exit code = %d, want 1", *code)
	}
	if !strings.HasPrefix(out.String(), "parse flags: invalid value") {
		t.Fatalf("output = %q, want parse flags prefix", out.String())
	}
}

// TestExitfTerminatesProcess runs Exitf with the real os.Exit in a child
// process, since the exit cannot be observed in-process.
func TestExitfTerminatesProcess(t *testing.T) {
	if os.Getenv("DUEL_TEST_EXITF_CHILD") == "1" {
		Exitf("unhealthy: %s", "duel.lobby not serving")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitfTerminatesProcess$")
	cmd.Env = append(os.Environ(), "DUEL_TEST_EXITF_CHILD=1")
	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != 1 {
		t.Fatalf("exit code = %d, want 1", exitErr.ExitCode())
	}
	if !strings.Contains(string(out), "unhealthy: duel.lobby not serving") {
		t.Fatalf("output = %q, want healthcheck failure", out)
	}
}
