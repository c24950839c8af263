// Package model defines the data structures for hako's environment
// specifications, resolved run plans, and run results.
package model

import (
	"strings"

	"github.com/hakoenv/hako/internal/factor"
)

// GuardedLine is one dependency or command line together with its factor
// guard. An empty guard applies unconditionally.
type GuardedLine struct {
	Guard factor.Guard
	Text  string
}

// String re-serializes the line in the form it was parsed from, guard
// prefix included.
func (l GuardedLine) String() string {
	if l.Guard.IsEmpty() {
		return l.Text
	}
	return l.Guard.String() + ": " + l.Text
}

// EnvSpec is a parsed environment specification. It is built once at
// configuration load time and never mutated afterwards.
type EnvSpec struct {
	// Name is the full dash-joined environment name, e.g. "windows-tests".
	Name string
	// Description is free-form text shown in listings.
	Description string

	Deps     []GuardedLine
	Commands []GuardedLine

	// SetEnv maps variable names to unresolved value templates, in
	// declaration order.
	SetEnv []EnvVar
	// PassEnv lists ambient variable names forwarded unmodified.
	PassEnv []string
	// AllowExternals lists executables permitted to run from outside the
	// managed environment.
	AllowExternals []string

	// Platforms restricts the environment to the listed platform factors.
	// Empty means any platform.
	Platforms []string

	ChangeDir   string
	SkipInstall bool
	UseDevelop  bool
}

// Factors returns the factor tokens of the environment name.
func (s *EnvSpec) Factors() []string {
	return factor.Split(s.Name)
}

// EnvVar is a single setenv entry. Order matters for reproducible
// resolution output, not for semantics.
type EnvVar struct {
	Name  string
	Value string
}

// PlatformAllowed reports whether the spec may run on the given platform
// factor.
func (s *EnvSpec) PlatformAllowed(platform string) bool {
	if len(s.Platforms) == 0 {
		return true
	}
	for _, p := range s.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

// Marshal re-serializes the spec as configuration section text. Guard
// prefixes and line order are preserved, so parsing the output yields an
// equivalent spec.
func (s *EnvSpec) Marshal() string {
	var b strings.Builder
	b.WriteString("[env:" + s.Name + "]\n")
	if s.Description != "" {
		b.WriteString("description = " + s.Description + "\n")
	}
	if len(s.Platforms) > 0 {
		b.WriteString("platform = " + strings.Join(s.Platforms, ", ") + "\n")
	}
	writeLines := func(key string, lines []GuardedLine) {
		if len(lines) == 0 {
			return
		}
		b.WriteString(key + " =\n")
		for _, l := range lines {
			b.WriteString("    " + l.String() + "\n")
		}
	}
	writeLines("deps", s.Deps)
	if len(s.SetEnv) > 0 {
		b.WriteString("setenv =\n")
		for _, v := range s.SetEnv {
			b.WriteString("    " + v.Name + " = " + v.Value + "\n")
		}
	}
	if len(s.PassEnv) > 0 {
		b.WriteString("passenv = " + strings.Join(s.PassEnv, ", ") + "\n")
	}
	if len(s.AllowExternals) > 0 {
		b.WriteString("allowexternals = " + strings.Join(s.AllowExternals, ", ") + "\n")
	}
	if s.ChangeDir != "" {
		b.WriteString("changedir = " + s.ChangeDir + "\n")
	}
	if s.SkipInstall {
		b.WriteString("skipinstall = true\n")
	}
	if s.UseDevelop {
		b.WriteString("usedevelop = true\n")
	}
	writeLines("commands", s.Commands)
	return b.String()
}
