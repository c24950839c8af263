package model

// Command is one resolved command invocation. Line holds the fully
// substituted command text before field splitting.
type Command struct {
	Line string
	// Tolerated marks a command whose failure is reported but does not
	// stop the environment (lines prefixed with "-").
	Tolerated bool
}

// RunPlan is the concrete plan for one environment invocation: the
// dependency and command lists after guard evaluation, plus the merged
// environment. A plan is computed fresh per invocation and discarded
// after the run.
type RunPlan struct {
	EnvName string
	// Skipped is set when the ambient platform is outside the spec's
	// platform allowlist; such a plan carries no work.
	Skipped    bool
	SkipReason string

	Deps     []string
	Commands []Command

	// Env is the full process environment for every command, as
	// KEY=VALUE pairs in stable order.
	Env []string
	// WorkDir is the directory commands run in.
	WorkDir string
	// EnvDir is the per-environment state directory (run logs live here).
	EnvDir string

	AllowExternals []string
	SkipInstall    bool
	UseDevelop     bool
	// Installer is the dependency-install command prefix.
	Installer string
}
