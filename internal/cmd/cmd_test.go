package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hako.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := CmdRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

const cliConfig = `[hako]
envlist = good

[env:good]
skipinstall = true
commands = true

[env:bad]
skipinstall = true
commands = false
`

func TestSelectorExpansion(t *testing.T) {
	path := writeConfig(t, `[hako]
envlist = {a,b}-x, plain

[env]
commands = true
`)
	out, err := execute(t, "show", "-c", path, "-e", "{a,b}-x,plain")
	require.NoError(t, err)
	assert.Contains(t, out, "[a-x]")
	assert.Contains(t, out, "[b-x]")
	assert.Contains(t, out, "[plain]")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hako "+version)
}

func TestRunSuccess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell environment")
	}
	path := writeConfig(t, cliConfig)
	out, err := execute(t, "run", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "good: ok")
}

func TestRunFailureExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell environment")
	}
	path := writeConfig(t, cliConfig)
	_, err := execute(t, "run", "-c", path, "-e", "bad")
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
}

func TestRunConfigErrorExitCode(t *testing.T) {
	path := writeConfig(t, "[hako\nbroken")
	_, err := execute(t, "run", "-c", path)
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestRunUnknownEnvExitCode(t *testing.T) {
	path := writeConfig(t, cliConfig)
	_, err := execute(t, "run", "-c", path, "-e", "nonsense")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestListOutput(t *testing.T) {
	path := writeConfig(t, cliConfig)
	out, err := execute(t, "list", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "good")
	assert.Contains(t, out, "bad")
}

func TestShowPlan(t *testing.T) {
	path := writeConfig(t, cliConfig)
	out, err := execute(t, "show", "-c", path, "-e", "good")
	require.NoError(t, err)
	assert.Contains(t, out, "[good]")
	assert.Contains(t, out, "command: true")
	assert.Contains(t, out, "install: skipped")
}

func TestRunWritesReport(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell environment")
	}
	path := writeConfig(t, cliConfig)
	reportPath := filepath.Join(t.TempDir(), "report.yaml")
	_, err := execute(t, "run", "-c", path, "--report", reportPath)
	require.NoError(t, err)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "good")
}

func TestExitCodeMapping(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(assert.AnError))
	assert.Equal(t, 2, ExitCode(&exitCodeError{code: 2, err: assert.AnError}))
}
