// Package config loads hako.ini configuration files: named environment
// sections with factor-guarded dependency and command lines.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hakoenv/hako/internal/factor"
	"github.com/hakoenv/hako/internal/model"
)

const (
	// DefaultFileName is looked up in the working directory when no
	// explicit config path is given.
	DefaultFileName = "hako.ini"

	globalSection = "hako"
	baseSection   = "env"
	envPrefix     = "env:"

	defaultWorkDir   = ".hako"
	defaultInstaller = "python -m pip install"
)

// File is a loaded configuration: the global options plus every declared
// environment specification.
type File struct {
	Path string
	// Dir is the directory containing the config file ({inidir}).
	Dir string

	// EnvList is the default environment selection, generative
	// expressions already expanded.
	EnvList   []string
	WorkDir   string
	Installer string

	// Base is the [env] section every environment inherits from.
	Base *model.EnvSpec
	// Envs holds declared [env:NAME] sections by name.
	Envs map[string]*model.EnvSpec
	// EnvOrder preserves section declaration order for listings.
	EnvOrder []string

	// Warnings collects non-fatal findings such as guard factors never
	// declared anywhere (likely typos).
	Warnings []string
}

// Load reads and parses the configuration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse parses configuration text. The path is used for error reporting
// and for {inidir}.
func Parse(path string, data []byte) (*File, error) {
	sections, err := parseSections(path, data)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	f := &File{
		Path:      path,
		Dir:       filepath.Dir(abs),
		WorkDir:   defaultWorkDir,
		Installer: defaultInstaller,
		Base:      &model.EnvSpec{},
		Envs:      make(map[string]*model.EnvSpec),
	}

	for _, sec := range sections {
		switch {
		case sec.name == globalSection:
			if err := f.parseGlobal(sec); err != nil {
				return nil, err
			}
		case sec.name == baseSection:
			spec, err := f.parseEnvSection(sec, &model.EnvSpec{})
			if err != nil {
				return nil, err
			}
			f.Base = spec
		case strings.HasPrefix(sec.name, envPrefix):
			name := strings.TrimSpace(sec.name[len(envPrefix):])
			if name == "" {
				return nil, errf(f.Path, sec.line, "empty environment name in section %q", sec.name)
			}
			if _, dup := f.Envs[name]; dup {
				return nil, errf(f.Path, sec.line, "duplicate environment section %q", name)
			}
			spec, err := f.parseEnvSection(sec, f.Base)
			if err != nil {
				return nil, err
			}
			spec.Name = name
			f.Envs[name] = spec
			f.EnvOrder = append(f.EnvOrder, name)
		default:
			return nil, errf(f.Path, sec.line, "unknown section %q", sec.name)
		}
	}

	f.scanUnknownFactors()
	return f, nil
}

func (f *File) parseGlobal(sec *rawSection) error {
	for _, k := range sec.keys {
		switch k.name {
		case "envlist":
			for _, item := range SplitList(k.joined()) {
				f.EnvList = append(f.EnvList, ExpandBraces(item)...)
			}
		case "workdir":
			f.WorkDir = k.joined()
		case "installer":
			f.Installer = k.joined()
		default:
			return errf(f.Path, k.line, "unknown option %q in [%s]", k.name, globalSection)
		}
	}
	return nil
}

// parseEnvSection builds an EnvSpec, starting from a copy of base.
func (f *File) parseEnvSection(sec *rawSection, base *model.EnvSpec) (*model.EnvSpec, error) {
	spec := *base
	spec.Name = ""

	for _, k := range sec.keys {
		switch k.name {
		case "description":
			spec.Description = k.joined()
		case "deps":
			lines, err := f.parseGuardedLines(k)
			if err != nil {
				return nil, err
			}
			spec.Deps = lines
		case "commands":
			lines, err := f.parseGuardedLines(k)
			if err != nil {
				return nil, err
			}
			spec.Commands = lines
		case "setenv":
			vars, err := f.parseSetEnv(k)
			if err != nil {
				return nil, err
			}
			spec.SetEnv = vars
		case "passenv":
			spec.PassEnv = splitList(k.joined())
		case "allowexternals", "whitelist_externals":
			spec.AllowExternals = splitList(k.joined())
		case "platform":
			spec.Platforms = splitList(k.joined())
		case "changedir":
			spec.ChangeDir = k.joined()
		case "skipinstall", "skip_install":
			b, err := parseBool(k.joined())
			if err != nil {
				return nil, errf(f.Path, k.line, "option %q: %v", k.name, err)
			}
			spec.SkipInstall = b
		case "usedevelop":
			b, err := parseBool(k.joined())
			if err != nil {
				return nil, errf(f.Path, k.line, "option %q: %v", k.name, err)
			}
			spec.UseDevelop = b
		default:
			return nil, errf(f.Path, k.line, "unknown option %q in [%s]", k.name, sec.name)
		}
	}
	return &spec, nil
}

func (f *File) parseGuardedLines(k rawKey) ([]model.GuardedLine, error) {
	var out []model.GuardedLine
	for _, vl := range k.lines {
		gl, err := parseGuardedLine(f.Path, vl)
		if err != nil {
			return nil, err
		}
		out = append(out, gl)
	}
	return out, nil
}

func (f *File) parseSetEnv(k rawKey) ([]model.EnvVar, error) {
	var out []model.EnvVar
	for _, vl := range k.lines {
		eq := strings.IndexByte(vl.text, '=')
		if eq < 0 {
			return nil, errf(f.Path, vl.line, "setenv entry %q is not NAME = value", vl.text)
		}
		name := strings.TrimSpace(vl.text[:eq])
		if name == "" {
			return nil, errf(f.Path, vl.line, "setenv entry with empty name")
		}
		out = append(out, model.EnvVar{Name: name, Value: strings.TrimSpace(vl.text[eq+1:])})
	}
	return out, nil
}

// guardExprRe matches a candidate guard prefix: dash-joined, optionally
// negated factor names.
var guardExprRe = regexp.MustCompile(`^!?[A-Za-z0-9_][A-Za-z0-9_.]*(-!?[A-Za-z0-9_][A-Za-z0-9_.]*)*$`)

// parseGuardedLine splits an optional "guard:" prefix off a dependency or
// command line. A colon only starts a guard when the text before it looks
// like a guard expression and the colon is followed by whitespace, so
// payloads like "c:\tools\run.bat" stay intact.
func parseGuardedLine(path string, vl valueLine) (model.GuardedLine, error) {
	text := vl.text
	colon := strings.IndexByte(text, ':')
	if colon <= 0 {
		return model.GuardedLine{Text: text}, nil
	}
	prefix := text[:colon]
	rest := text[colon+1:]
	if !guardExprRe.MatchString(prefix) || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
		return model.GuardedLine{Text: text}, nil
	}
	g, err := factor.Parse(prefix)
	if err != nil {
		return model.GuardedLine{}, errf(path, vl.line, "bad guard %q: %v", prefix, err)
	}
	return model.GuardedLine{Guard: g, Text: strings.TrimSpace(rest)}, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// Spec returns the specification for an environment name: the declared
// section when one exists, otherwise a synthesized spec inheriting the
// [env] base (factor-combination environments).
func (f *File) Spec(name string) *model.EnvSpec {
	if spec, ok := f.Envs[name]; ok {
		return spec
	}
	spec := *f.Base
	spec.Name = name
	return &spec
}

// KnownFactors is the declared factor universe: tokens of every envlist
// entry and environment section name, guard factors, and the platform
// vocabulary.
func (f *File) KnownFactors() map[string]bool {
	known := map[string]bool{"linux": true, "mac": true, "windows": true}
	for _, name := range f.EnvList {
		for _, t := range factor.Split(name) {
			known[t] = true
		}
	}
	for _, name := range f.EnvOrder {
		for _, t := range factor.Split(name) {
			known[t] = true
		}
	}
	for _, spec := range f.allSpecs() {
		for _, gl := range spec.Deps {
			for _, n := range gl.Guard.Names() {
				known[n] = true
			}
		}
		for _, gl := range spec.Commands {
			for _, n := range gl.Guard.Names() {
				known[n] = true
			}
		}
	}
	return known
}

func (f *File) allSpecs() []*model.EnvSpec {
	specs := []*model.EnvSpec{f.Base}
	for _, name := range f.EnvOrder {
		specs = append(specs, f.Envs[name])
	}
	return specs
}

// scanUnknownFactors warns about guard factors that never appear in any
// environment name. Likely typos, but permissively non-fatal.
func (f *File) scanUnknownFactors() {
	declared := map[string]bool{"linux": true, "mac": true, "windows": true}
	for _, name := range f.EnvList {
		for _, t := range factor.Split(name) {
			declared[t] = true
		}
	}
	for _, name := range f.EnvOrder {
		for _, t := range factor.Split(name) {
			declared[t] = true
		}
	}
	for _, spec := range f.allSpecs() {
		secName := spec.Name
		if secName == "" {
			secName = baseSection
		}
		for _, gl := range append(append([]model.GuardedLine{}, spec.Deps...), spec.Commands...) {
			for _, n := range gl.Guard.Names() {
				if !declared[n] {
					f.Warnings = append(f.Warnings,
						fmt.Sprintf("guard factor %q in [%s] is not declared by any environment", n, secName))
				}
			}
		}
	}
}
