// Package executor runs resolved plans: best-effort dependency
// installation followed by the command list, strictly in declared order.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"mvdan.cc/sh/v3/shell"

	"github.com/hakoenv/hako/internal/events"
	"github.com/hakoenv/hako/internal/model"
)

// exitCommandNotFound mirrors the shell convention for unrunnable
// commands.
const exitCommandNotFound = 127

// Executor executes run plans. The zero value writes command output to
// stdout/stderr.
type Executor struct {
	Stdout io.Writer
	Stderr io.Writer
	// Events, when set, receives a command_finished event per executed
	// command.
	Events *events.Bus
}

func New() *Executor {
	return &Executor{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes one plan to completion. Commands run strictly in declared
// order; the first non-zero exit stops the environment unless the command
// is tolerated. Dependency install failures are reported individually and
// never stop the run by themselves.
func (x *Executor) Run(ctx context.Context, plan *model.RunPlan) model.EnvResult {
	started := time.Now()
	result := model.EnvResult{Env: plan.EnvName, Status: model.StatusRunning}

	if plan.Skipped {
		result.Status = model.StatusSkipped
		result.Reason = plan.SkipReason
		result.Duration = time.Since(started)
		return result
	}

	// Setup failures are execution failures, not configuration errors.
	if err := os.MkdirAll(plan.EnvDir, 0755); err != nil {
		result.Status = model.StatusFailed
		result.ExitCode = 1
		result.Reason = fmt.Sprintf("create env directory: %v", err)
		result.Duration = time.Since(started)
		return result
	}

	runLog, err := OpenRunLog(plan.EnvDir)
	if err != nil {
		log.Printf("executor: %s: %v", plan.EnvName, err)
		runLog = nil
	}
	defer runLog.Close()

	if !plan.SkipInstall {
		x.installDeps(ctx, plan, &result, runLog)
	}

	for _, cmd := range plan.Commands {
		cr := x.runCommand(ctx, plan, cmd)
		result.Commands = append(result.Commands, cr)
		if x.Events != nil {
			x.Events.Publish(events.Event{
				Type: events.EventCommandFinished, Env: plan.EnvName,
				Line: cmd.Line, ExitCode: cr.ExitCode,
			})
		}
		if err := runLog.Append(LogEntry{
			Kind: "command", Line: cmd.Line, ExitCode: cr.ExitCode,
			Tolerated: cmd.Tolerated, Error: cr.Err,
		}); err != nil {
			log.Printf("executor: %s: %v", plan.EnvName, err)
		}
		if cr.Failed() {
			result.Status = model.StatusFailed
			result.ExitCode = cr.ExitCode
			result.Reason = fmt.Sprintf("command failed: %s", cmd.Line)
			result.Duration = time.Since(started)
			return result
		}
	}

	result.Status = model.StatusPassed
	result.Duration = time.Since(started)
	return result
}

// installDeps runs the installer once per dependency. Each failure is
// recorded and logged, then installation continues with the next entry.
func (x *Executor) installDeps(ctx context.Context, plan *model.RunPlan, result *model.EnvResult, runLog *RunLog) {
	deps := plan.Deps
	if plan.UseDevelop {
		deps = append(append([]string{}, deps...), "-e .")
	}
	for _, dep := range deps {
		line := strings.TrimSpace(plan.Installer + " " + dep)
		cr := x.runCommand(ctx, plan, model.Command{Line: line})
		if err := runLog.Append(LogEntry{Kind: "install", Line: line, ExitCode: cr.ExitCode, Error: cr.Err}); err != nil {
			log.Printf("executor: %s: %v", plan.EnvName, err)
		}
		if cr.ExitCode != 0 {
			msg := fmt.Sprintf("install %q failed (exit %d)", dep, cr.ExitCode)
			log.Printf("executor: %s: %s", plan.EnvName, msg)
			result.InstallErrs = append(result.InstallErrs, msg)
		}
	}
}

func (x *Executor) runCommand(ctx context.Context, plan *model.RunPlan, cmd model.Command) model.CommandResult {
	started := time.Now()
	cr := model.CommandResult{Line: cmd.Line, Tolerated: cmd.Tolerated}

	envMap := environMap(plan.Env)
	fields, err := shell.Fields(cmd.Line, func(name string) string {
		return envMap[name]
	})
	if err != nil {
		cr.ExitCode = exitCommandNotFound
		cr.Err = fmt.Sprintf("split command: %v", err)
		cr.Duration = time.Since(started)
		return cr
	}
	if len(fields) == 0 {
		cr.Duration = time.Since(started)
		return cr
	}

	x.checkExternal(plan, fields[0])

	c := exec.CommandContext(ctx, fields[0], fields[1:]...)
	c.Dir = plan.WorkDir
	c.Env = plan.Env
	c.Stdout = x.stdout()
	c.Stderr = x.stderr()

	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cr.ExitCode = exitErr.ExitCode()
		} else {
			cr.ExitCode = exitCommandNotFound
			cr.Err = err.Error()
		}
	}
	cr.Duration = time.Since(started)
	return cr
}

// checkExternal warns when a command is not on the environment's external
// allowlist. Permissive: the command still runs.
func (x *Executor) checkExternal(plan *model.RunPlan, name string) {
	if len(plan.AllowExternals) == 0 {
		return
	}
	base := filepath.Base(name)
	for _, allowed := range plan.AllowExternals {
		if allowed == base || allowed == name {
			return
		}
	}
	log.Printf("executor: %s: %q is not in allowexternals", plan.EnvName, base)
}

func (x *Executor) stdout() io.Writer {
	if x.Stdout != nil {
		return x.Stdout
	}
	return os.Stdout
}

func (x *Executor) stderr() io.Writer {
	if x.Stderr != nil {
		return x.Stderr
	}
	return os.Stderr
}

func environMap(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, kv := range env {
		if eq := strings.IndexByte(kv, '='); eq > 0 {
			m[kv[:eq]] = kv[eq+1:]
		}
	}
	return m
}
