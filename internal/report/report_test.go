package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/hakoenv/hako/internal/config"
	"github.com/hakoenv/hako/internal/model"
)

func sampleSummary() *model.RunSummary {
	return &model.RunSummary{
		Started: time.Now().UTC(),
		Envs: []model.EnvResult{
			{Env: "tests", Status: model.StatusPassed, Duration: 3 * time.Second},
			{Env: "docs", Status: model.StatusFailed, ExitCode: 1, Reason: "command failed: sphinx-build"},
			{Env: "mac-only", Status: model.StatusSkipped, Reason: "platform linux not in [mac]"},
		},
	}
}

func TestWriteAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, Write(path, sampleSummary()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc File
	require.NoError(t, yamlv3.Unmarshal(data, &doc))
	assert.Equal(t, reportSchemaVersion, doc.SchemaVersion)
	assert.Equal(t, 1, doc.ExitCode)
	require.Len(t, doc.Envs, 3)
	assert.Equal(t, "tests", doc.Envs[0].Env)
	assert.Equal(t, model.StatusFailed, doc.Envs[1].Status)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(filepath.Join(dir, "report.yaml"), sampleSummary()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "report.yaml", entries[0].Name())
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, sampleSummary())

	out := buf.String()
	assert.Contains(t, out, "tests: ok")
	assert.Contains(t, out, "docs: failed (exit 1)")
	assert.Contains(t, out, "mac-only: skipped")
	assert.NotContains(t, out, "congratulations")
}

func TestPrintSummaryAllPassed(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, &model.RunSummary{Envs: []model.EnvResult{
		{Env: "tests", Status: model.StatusPassed},
	}})
	assert.Contains(t, buf.String(), "congratulations")
}

func TestPrintEnvList(t *testing.T) {
	cfg := `[hako]
envlist = tests, docs

[env:docs]
description = build the documentation
platform = linux
commands = sphinx-build -b html . _build

[env:lint]
commands = flake8
`
	f, err := config.Parse("hako.ini", []byte(cfg))
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintEnvList(&buf, f)
	out := buf.String()

	assert.Contains(t, out, "tests")
	assert.Contains(t, out, "docs")
	assert.Contains(t, out, "lint")
	assert.Contains(t, out, "build the documentation")
	// docs is both declared and in the default envlist: one row only.
	assert.Equal(t, 1, strings.Count(out, "docs"))
}
