// Package factor implements guard-expression parsing and evaluation for
// factor-conditional configuration lines.
package factor

import (
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"strings"
)

// Predicate is a single factor test: the factor must be present, or, when
// negated, absent.
type Predicate struct {
	Name    string
	Negated bool
}

// Guard is a conjunction of predicates. The empty guard is always true.
type Guard struct {
	Predicates []Predicate
}

var factorNameRe = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.]*$`)

// Parse parses a dash-joined guard expression such as "dev-!windows-!mac".
func Parse(expr string) (Guard, error) {
	if expr == "" {
		return Guard{}, fmt.Errorf("empty guard expression")
	}
	var g Guard
	for _, tok := range strings.Split(expr, "-") {
		neg := false
		if strings.HasPrefix(tok, "!") {
			neg = true
			tok = tok[1:]
		}
		if !factorNameRe.MatchString(tok) {
			return Guard{}, fmt.Errorf("invalid factor %q in guard %q", tok, expr)
		}
		g.Predicates = append(g.Predicates, Predicate{Name: tok, Negated: neg})
	}
	return g, nil
}

// Eval reports whether the guard holds for the given factor set. Evaluation
// depends only on set membership: no entry is included if any positive
// predicate is absent or any negated predicate is present.
func (g Guard) Eval(factors map[string]bool) bool {
	for _, p := range g.Predicates {
		if factors[p.Name] == p.Negated {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the guard has no predicates.
func (g Guard) IsEmpty() bool {
	return len(g.Predicates) == 0
}

// Names returns the factor names referenced by the guard, sorted.
func (g Guard) Names() []string {
	names := make([]string, 0, len(g.Predicates))
	for _, p := range g.Predicates {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// String re-serializes the guard in the prefix form it was parsed from.
func (g Guard) String() string {
	parts := make([]string, 0, len(g.Predicates))
	for _, p := range g.Predicates {
		if p.Negated {
			parts = append(parts, "!"+p.Name)
		} else {
			parts = append(parts, p.Name)
		}
	}
	return strings.Join(parts, "-")
}

// Split breaks an environment name into its factor tokens.
func Split(envName string) []string {
	if envName == "" {
		return nil
	}
	return strings.Split(envName, "-")
}

// Set builds the factor set for an environment name, injecting the ambient
// platform as an implicit factor.
func Set(envName, platform string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range Split(envName) {
		set[f] = true
	}
	if platform != "" {
		set[platform] = true
	}
	return set
}

// Platform maps a GOOS value to the factor vocabulary used in guards.
func Platform(goos string) string {
	switch goos {
	case "darwin":
		return "mac"
	case "windows":
		return "windows"
	default:
		return "linux"
	}
}

// CurrentPlatform returns the platform factor for the running process.
func CurrentPlatform() string {
	return Platform(runtime.GOOS)
}
