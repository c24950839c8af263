package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `# build environments
[hako]
envlist = {windows,linux}-tests, unit, docs
workdir = .hako

[env]
deps =
    pytest
    !windows-!mac: pytest-xdist
setenv =
    PYTHONHASHSEED = 0
passenv = CI, HOME
commands =
    pytest {posargs}

[env:docs]
description = build the documentation
changedir = docs
deps = sphinx
commands = sphinx-build -b html . _build

[env:coverage]
platform = linux, mac
skipinstall = true
commands =
    - coverage run
    coverage report
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "hako.ini")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSample(t *testing.T) {
	f, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"windows-tests", "linux-tests", "unit", "docs"}, f.EnvList)
	assert.Equal(t, ".hako", f.WorkDir)
	assert.Equal(t, defaultInstaller, f.Installer)

	require.Len(t, f.Base.Deps, 2)
	assert.Equal(t, "pytest", f.Base.Deps[0].Text)
	assert.True(t, f.Base.Deps[0].Guard.IsEmpty())
	assert.Equal(t, "!windows-!mac", f.Base.Deps[1].Guard.String())
	assert.Equal(t, "pytest-xdist", f.Base.Deps[1].Text)

	require.Contains(t, f.Envs, "docs")
	docs := f.Envs["docs"]
	assert.Equal(t, "docs", docs.ChangeDir)
	require.Len(t, docs.Deps, 1)
	assert.Equal(t, "sphinx", docs.Deps[0].Text)
	// setenv and passenv inherit from [env]
	require.Len(t, docs.SetEnv, 1)
	assert.Equal(t, "PYTHONHASHSEED", docs.SetEnv[0].Name)
	assert.Equal(t, []string{"CI", "HOME"}, docs.PassEnv)

	cov := f.Envs["coverage"]
	assert.Equal(t, []string{"linux", "mac"}, cov.Platforms)
	assert.True(t, cov.SkipInstall)
	require.Len(t, cov.Commands, 2)
	assert.Equal(t, "- coverage run", cov.Commands[0].Text)
	assert.Equal(t, "coverage report", cov.Commands[1].Text)
}

func TestSpecSynthesized(t *testing.T) {
	f, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	spec := f.Spec("windows-tests")
	assert.Equal(t, "windows-tests", spec.Name)
	// Inherits the base command list.
	require.Len(t, spec.Commands, 1)
	assert.Equal(t, "pytest {posargs}", spec.Commands[0].Text)
}

func TestGuardDetection(t *testing.T) {
	cases := []struct {
		in        string
		guard     string
		text      string
	}{
		{"pytest", "", "pytest"},
		{"!windows-!mac: sh -c \"X\"", "!windows-!mac", "sh -c \"X\""},
		{"dev: pip install -e .", "dev", "pip install -e ."},
		// A Windows path is not a guard.
		{`c:\tools\run.bat`, "", `c:\tools\run.bat`},
		// No whitespace after the colon: not a guard.
		{"ftp://host:21/x", "", "ftp://host:21/x"},
	}
	for _, c := range cases {
		gl, err := parseGuardedLine("test.ini", valueLine{text: c.in, line: 1})
		require.NoError(t, err, c.in)
		assert.Equal(t, c.guard, gl.Guard.String(), c.in)
		assert.Equal(t, c.text, gl.Text, c.in)
	}
}

func TestExpandBraces(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"unit", []string{"unit"}},
		{"{a,b}", []string{"a", "b"}},
		{"{windows}-{tests,unit,dev}", []string{"windows-tests", "windows-unit", "windows-dev"}},
		{"{a,b}-x-{c,d}", []string{"a-x-c", "a-x-d", "b-x-c", "b-x-d"}},
	}
	for _, c := range cases {
		if got := ExpandBraces(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("ExpandBraces(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"tests", []string{"tests"}},
		{"tests,unit", []string{"tests", "unit"}},
		{"{a,b}-x,unit", []string{"{a,b}-x", "unit"}},
		{" tests , unit ", []string{"tests", "unit"}},
		{"a\nb", []string{"a", "b"}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SplitList(c.in), c.in)
	}
}

func TestUnknownFactorWarning(t *testing.T) {
	cfg := `[hako]
envlist = tests

[env:tests]
commands =
    wnidows: echo oops
`
	f, err := Load(writeConfig(t, cfg))
	require.NoError(t, err)
	require.Len(t, f.Warnings, 1)
	assert.Contains(t, f.Warnings[0], "wnidows")
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"[hako\nenvlist = a",
		"key = value\n",
		"[hako]\nbogus = x\n",
		"[env:tests]\nsetenv =\n    NOEQUALS\n",
		"[env:tests]\nskipinstall = maybe\n",
		"[mystery]\n",
	}
	for _, c := range cases {
		_, err := Parse("test.ini", []byte(c))
		require.Error(t, err, c)
		var cerr *Error
		require.ErrorAs(t, err, &cerr, c)
	}
}

// Parsing then re-serializing an environment spec preserves guards and
// line order.
func TestMarshalRoundTrip(t *testing.T) {
	f, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	text := f.Envs["coverage"].Marshal()
	f2, err := Parse("roundtrip.ini", []byte(text))
	require.NoError(t, err)

	orig := f.Envs["coverage"]
	re := f2.Envs["coverage"]
	require.Len(t, re.Commands, len(orig.Commands))
	for i := range orig.Commands {
		assert.Equal(t, orig.Commands[i].Guard.String(), re.Commands[i].Guard.String())
		assert.Equal(t, orig.Commands[i].Text, re.Commands[i].Text)
	}
	assert.Equal(t, orig.Platforms, re.Platforms)
	assert.Equal(t, orig.SkipInstall, re.SkipInstall)
}
