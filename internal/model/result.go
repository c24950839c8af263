package model

import "time"

// CommandResult is the outcome of one executed command.
type CommandResult struct {
	Line      string        `yaml:"line"`
	ExitCode  int           `yaml:"exit_code"`
	Tolerated bool          `yaml:"tolerated,omitempty"`
	Duration  time.Duration `yaml:"duration"`
	Err       string        `yaml:"error,omitempty"`
}

// Failed reports whether the command result counts as an unrecovered
// failure.
func (r CommandResult) Failed() bool {
	return r.ExitCode != 0 && !r.Tolerated
}

// EnvResult is the outcome of one environment run.
type EnvResult struct {
	Env      string          `yaml:"env"`
	Status   Status          `yaml:"status"`
	ExitCode int             `yaml:"exit_code"`
	Reason   string          `yaml:"reason,omitempty"`
	Commands []CommandResult `yaml:"commands,omitempty"`
	// InstallErrs records best-effort dependency install failures. They
	// never fail the environment by themselves.
	InstallErrs []string      `yaml:"install_errors,omitempty"`
	Duration    time.Duration `yaml:"duration"`
}

// RunSummary aggregates the results of all requested environments in one
// invocation.
type RunSummary struct {
	Started time.Time   `yaml:"started"`
	Envs    []EnvResult `yaml:"envs"`
}

// ExitCode maps the summary to the process exit contract: 0 when every
// environment passed or was skipped, 2 when any environment hit a
// configuration error, 1 otherwise.
func (s *RunSummary) ExitCode() int {
	code := 0
	for _, e := range s.Envs {
		switch e.Status {
		case StatusError:
			return 2
		case StatusFailed:
			code = 1
		}
	}
	return code
}

// Failed returns the environments that did not pass.
func (s *RunSummary) Failed() []EnvResult {
	var out []EnvResult
	for _, e := range s.Envs {
		if e.Status == StatusFailed || e.Status == StatusError {
			out = append(out, e)
		}
	}
	return out
}
