// Package resolve turns an environment name plus the loaded configuration
// into a concrete run plan: guard-filtered dependency and command lists
// and the merged process environment. Resolution is pure; plans are
// computed fresh per invocation.
package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hakoenv/hako/internal/config"
	"github.com/hakoenv/hako/internal/factor"
	"github.com/hakoenv/hako/internal/model"
)

// Resolver resolves run plans against one loaded configuration.
type Resolver struct {
	File *config.File

	// Platform is the ambient platform factor. Defaults to the running
	// process's platform.
	Platform string
	// HomeDir backs {homedir}. Defaults to the user home directory.
	HomeDir string
	// LookupEnv backs ambient variable lookup. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

func New(f *config.File) *Resolver {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return &Resolver{
		File:      f,
		Platform:  factor.CurrentPlatform(),
		HomeDir:   home,
		LookupEnv: os.LookupEnv,
	}
}

// Resolve produces the run plan for one environment invocation.
func (r *Resolver) Resolve(name string, posArgs []string) (*model.RunPlan, error) {
	if err := r.checkKnown(name); err != nil {
		return nil, err
	}
	spec := r.File.Spec(name)

	if !spec.PlatformAllowed(r.Platform) {
		return &model.RunPlan{
			EnvName:    name,
			Skipped:    true,
			SkipReason: fmt.Sprintf("platform %s not in %v", r.Platform, spec.Platforms),
		}, nil
	}

	factors := factor.Set(name, r.Platform)
	envDir := filepath.Join(r.File.Dir, r.File.WorkDir, name)

	sub := &subst{
		envName:   name,
		homeDir:   r.HomeDir,
		iniDir:    r.File.Dir,
		envDir:    envDir,
		posArgs:   posArgs,
		setenv:    make(map[string]string),
		resolved:  make(map[string]string),
		resolving: make(map[string]bool),
		// Substitution reads the raw ambient environment; passenv only
		// restricts what buildEnv forwards to commands.
		ambient: r.LookupEnv,
	}
	for _, v := range spec.SetEnv {
		sub.setenv[v.Name] = v.Value
	}

	env, err := r.buildEnv(spec, sub)
	if err != nil {
		return nil, r.configErr(name, err)
	}

	plan := &model.RunPlan{
		EnvName:        name,
		Env:            env,
		EnvDir:         envDir,
		WorkDir:        r.File.Dir,
		AllowExternals: spec.AllowExternals,
		SkipInstall:    spec.SkipInstall,
		UseDevelop:     spec.UseDevelop,
		Installer:      r.File.Installer,
	}

	if spec.ChangeDir != "" {
		dir, err := sub.expand(spec.ChangeDir)
		if err != nil {
			return nil, r.configErr(name, err)
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(r.File.Dir, dir)
		}
		plan.WorkDir = dir
	}

	for _, gl := range spec.Deps {
		if !gl.Guard.Eval(factors) {
			continue
		}
		dep, err := sub.expand(gl.Text)
		if err != nil {
			return nil, r.configErr(name, err)
		}
		plan.Deps = append(plan.Deps, dep)
	}

	for _, gl := range spec.Commands {
		if !gl.Guard.Eval(factors) {
			continue
		}
		text := gl.Text
		tolerated := false
		if strings.HasPrefix(text, "-") {
			tolerated = true
			text = strings.TrimSpace(text[1:])
		}
		line, err := sub.expand(text)
		if err != nil {
			return nil, r.configErr(name, err)
		}
		// Empty {posargs} may leave trailing whitespace.
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		plan.Commands = append(plan.Commands, model.Command{Line: line, Tolerated: tolerated})
	}

	return plan, nil
}

// checkKnown rejects requested names containing factors declared nowhere
// in the configuration.
func (r *Resolver) checkKnown(name string) error {
	if _, ok := r.File.Envs[name]; ok {
		return nil
	}
	known := r.File.KnownFactors()
	for _, tok := range factor.Split(name) {
		if tok == "" {
			return &config.Error{Path: r.File.Path, Msg: fmt.Sprintf("malformed environment name %q", name)}
		}
		if !known[tok] {
			return &config.Error{Path: r.File.Path,
				Msg: fmt.Sprintf("environment %q: factor %q matches no declared environment or factor", name, tok)}
		}
	}
	return nil
}

// baselinePassEnv is always forwarded so commands can run at all.
var baselinePassEnv = []string{"PATH", "HOME", "TMPDIR", "LANG", "LC_ALL"}

// buildEnv merges baseline and passenv ambient values under the resolved
// setenv entries (setenv wins) into KEY=VALUE pairs in stable order.
func (r *Resolver) buildEnv(spec *model.EnvSpec, sub *subst) ([]string, error) {
	merged := make(map[string]string)

	for _, name := range baselinePassEnv {
		if val, ok := r.LookupEnv(name); ok {
			merged[name] = val
		}
	}
	for _, pat := range spec.PassEnv {
		if strings.HasSuffix(pat, "*") {
			prefix := pat[:len(pat)-1]
			for _, kv := range os.Environ() {
				eq := strings.IndexByte(kv, '=')
				if eq > 0 && strings.HasPrefix(kv[:eq], prefix) {
					merged[kv[:eq]] = kv[eq+1:]
				}
			}
			continue
		}
		if val, ok := r.LookupEnv(pat); ok {
			merged[pat] = val
		}
	}
	for _, v := range spec.SetEnv {
		val, ok, err := sub.lookupSetEnv(v.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			merged[v.Name] = val
		}
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)
	env := make([]string, 0, len(names))
	for _, name := range names {
		env = append(env, name+"="+merged[name])
	}
	return env, nil
}

func (r *Resolver) configErr(env string, err error) error {
	if cerr, ok := err.(*config.Error); ok {
		return cerr
	}
	return &config.Error{Path: r.File.Path, Msg: fmt.Sprintf("environment %q: %v", env, err)}
}
