package resolve

import (
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// subst holds the state for one environment's substitution pass. Value
// templates may reference {env:NAME:default}, the built-in path tokens,
// and {posargs}; setenv entries may reference each other.
type subst struct {
	envName string
	homeDir string
	iniDir  string
	envDir  string
	posArgs []string

	// setenv holds unresolved templates; resolved caches results;
	// resolving and stack detect circular references.
	setenv    map[string]string
	resolved  map[string]string
	resolving map[string]bool
	stack     []string

	// ambient looks up passthrough/OS variables.
	ambient func(string) (string, bool)
}

func (s *subst) expand(template string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(template); {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			b.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			b.WriteByte('}')
			i += 2
		case c == '{':
			end, err := matchBrace(template, i)
			if err != nil {
				return "", err
			}
			val, err := s.token(template[i+1 : end])
			if err != nil {
				return "", err
			}
			b.WriteString(val)
			i = end + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// matchBrace returns the index of the brace closing the one at open,
// honoring nesting (defaults may contain further substitutions).
func matchBrace(s string, open int) (int, error) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced brace in %q", s)
}

func (s *subst) token(tok string) (string, error) {
	switch {
	case tok == ":":
		return string(os.PathListSeparator), nil
	case tok == "homedir":
		return s.homeDir, nil
	case tok == "inidir":
		return s.iniDir, nil
	case tok == "envdir":
		return s.envDir, nil
	case tok == "envname":
		return s.envName, nil
	case tok == "posargs":
		return s.quotedPosArgs()
	case strings.HasPrefix(tok, "env:"):
		return s.envToken(tok[len("env:"):])
	}
	return "", fmt.Errorf("unknown substitution {%s}", tok)
}

// envToken resolves env:NAME or env:NAME:default. An empty default is
// valid and distinct from no default.
func (s *subst) envToken(spec string) (string, error) {
	name := spec
	def := ""
	hasDef := false
	if i := strings.IndexByte(spec, ':'); i >= 0 {
		name = spec[:i]
		def = spec[i+1:]
		hasDef = true
	}
	if name == "" {
		return "", fmt.Errorf("empty variable name in {env:%s}", spec)
	}
	if val, ok, err := s.lookupSetEnv(name); err != nil {
		return "", err
	} else if ok {
		return val, nil
	}
	if val, ok := s.ambient(name); ok {
		return val, nil
	}
	if hasDef {
		return s.expand(def)
	}
	return "", fmt.Errorf("environment variable %q is not set and has no default", name)
}

// lookupSetEnv resolves a setenv entry on demand. A setenv value may
// reference its own name, which reads the ambient variable instead
// (the LD_LIBRARY_PATH append idiom); any other reference back into an
// entry already being resolved is a circular reference.
func (s *subst) lookupSetEnv(name string) (string, bool, error) {
	if val, ok := s.resolved[name]; ok {
		return val, true, nil
	}
	template, ok := s.setenv[name]
	if !ok {
		return "", false, nil
	}
	if s.resolving[name] {
		if len(s.stack) > 0 && s.stack[len(s.stack)-1] == name {
			// Self-reference: fall through to the ambient value.
			return "", false, nil
		}
		return "", false, fmt.Errorf("circular {env:%s} reference", name)
	}
	s.resolving[name] = true
	s.stack = append(s.stack, name)
	val, err := s.expand(template)
	s.stack = s.stack[:len(s.stack)-1]
	delete(s.resolving, name)
	if err != nil {
		return "", false, err
	}
	s.resolved[name] = val
	return val, true, nil
}

// quotedPosArgs renders positional arguments as shell fields, quoting
// each so later field splitting keeps argument boundaries.
func (s *subst) quotedPosArgs() (string, error) {
	parts := make([]string, 0, len(s.posArgs))
	for _, a := range s.posArgs {
		q, err := syntax.Quote(a, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("quote posarg %q: %w", a, err)
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, " "), nil
}
