package executor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/hakoenv/hako/internal/model"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell environment")
	}
}

func testPlan(t *testing.T, commands ...model.Command) *model.RunPlan {
	t.Helper()
	dir := t.TempDir()
	return &model.RunPlan{
		EnvName:     "tests",
		Commands:    commands,
		Env:         []string{"PATH=" + os.Getenv("PATH")},
		WorkDir:     dir,
		EnvDir:      filepath.Join(dir, ".hako", "tests"),
		SkipInstall: true,
	}
}

func TestRunAllPass(t *testing.T) {
	skipOnWindows(t)
	x := New()
	x.Stdout = &bytes.Buffer{}

	plan := testPlan(t,
		model.Command{Line: "true"},
		model.Command{Line: "echo done"},
	)
	result := x.Run(context.Background(), plan)

	if result.Status != model.StatusPassed {
		t.Fatalf("status = %s, want passed (reason: %s)", result.Status, result.Reason)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d", result.ExitCode)
	}
	if len(result.Commands) != 2 {
		t.Errorf("expected 2 command results, got %d", len(result.Commands))
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")

	x := New()
	x.Stdout = &bytes.Buffer{}
	plan := testPlan(t,
		model.Command{Line: "false"},
		model.Command{Line: "touch " + marker},
	)
	result := x.Run(context.Background(), plan)

	if result.Status != model.StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if result.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", result.ExitCode)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Error("second command ran after unrecovered failure")
	}
}

// A tolerated failure must not stop execution, and the environment still
// passes when every later command succeeds.
func TestToleratedFailureContinues(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")

	x := New()
	x.Stdout = &bytes.Buffer{}
	plan := testPlan(t,
		model.Command{Line: "false", Tolerated: true},
		model.Command{Line: "touch " + marker},
	)
	result := x.Run(context.Background(), plan)

	if result.Status != model.StatusPassed {
		t.Fatalf("status = %s, want passed", result.Status)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("second command did not run: %v", err)
	}
	if !result.Commands[0].Tolerated || result.Commands[0].ExitCode != 1 {
		t.Errorf("first command result: %+v", result.Commands[0])
	}
}

func TestCommandNotFound(t *testing.T) {
	skipOnWindows(t)
	x := New()
	x.Stdout = &bytes.Buffer{}
	plan := testPlan(t, model.Command{Line: "hako-no-such-binary-xyz"})
	result := x.Run(context.Background(), plan)

	if result.Status != model.StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if result.Commands[0].ExitCode != exitCommandNotFound {
		t.Errorf("exit code = %d, want %d", result.Commands[0].ExitCode, exitCommandNotFound)
	}
}

func TestSkippedPlan(t *testing.T) {
	x := New()
	result := x.Run(context.Background(), &model.RunPlan{
		EnvName:    "mac-only",
		Skipped:    true,
		SkipReason: "platform linux not in [mac]",
	})
	if result.Status != model.StatusSkipped {
		t.Fatalf("status = %s, want skipped", result.Status)
	}
}

func TestInstallFailureIsNonFatal(t *testing.T) {
	skipOnWindows(t)
	var out bytes.Buffer
	x := New()
	x.Stdout = &out

	plan := testPlan(t, model.Command{Line: "echo survived"})
	plan.SkipInstall = false
	plan.Installer = "false"
	plan.Deps = []string{"broken-dep"}

	result := x.Run(context.Background(), plan)
	if result.Status != model.StatusPassed {
		t.Fatalf("status = %s, want passed", result.Status)
	}
	if len(result.InstallErrs) != 1 {
		t.Fatalf("expected 1 install error, got %v", result.InstallErrs)
	}
	if !strings.Contains(out.String(), "survived") {
		t.Error("command did not run after install failure")
	}
}

func TestRunLogWritten(t *testing.T) {
	skipOnWindows(t)
	x := New()
	x.Stdout = &bytes.Buffer{}
	plan := testPlan(t, model.Command{Line: "true"})
	x.Run(context.Background(), plan)

	data, err := os.ReadFile(filepath.Join(plan.EnvDir, "log", "run.jsonl"))
	if err != nil {
		t.Fatalf("run log not written: %v", err)
	}
	if !strings.Contains(string(data), `"kind":"command"`) {
		t.Errorf("unexpected log content: %s", data)
	}
}

func TestShellQuoting(t *testing.T) {
	skipOnWindows(t)
	var out bytes.Buffer
	x := New()
	x.Stdout = &out

	plan := testPlan(t, model.Command{Line: `sh -c "echo one two"`})
	result := x.Run(context.Background(), plan)
	if result.Status != model.StatusPassed {
		t.Fatalf("status = %s, want passed", result.Status)
	}
	if strings.TrimSpace(out.String()) != "one two" {
		t.Errorf("output = %q", out.String())
	}
}
