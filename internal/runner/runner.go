// Package runner orchestrates environment runs across one invocation:
// resolution, per-environment locking, sequential or bounded-parallel
// execution, and result aggregation. Requested environments are isolated;
// a failure in one never stops another.
package runner

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hakoenv/hako/internal/config"
	"github.com/hakoenv/hako/internal/events"
	"github.com/hakoenv/hako/internal/executor"
	"github.com/hakoenv/hako/internal/lock"
	"github.com/hakoenv/hako/internal/model"
	"github.com/hakoenv/hako/internal/resolve"
)

// Options controls one invocation.
type Options struct {
	// Parallel is the maximum number of environments running at once.
	// Values below 1 mean sequential.
	Parallel int
	// PosArgs substitute {posargs} in command lines.
	PosArgs []string
}

type Runner struct {
	Resolver *resolve.Resolver
	Exec     *executor.Executor
	Bus      *events.Bus

	locks *lock.EnvLocks
}

func New(r *resolve.Resolver, x *executor.Executor, bus *events.Bus) *Runner {
	x.Events = bus
	return &Runner{
		Resolver: r,
		Exec:     x,
		Bus:      bus,
		locks:    lock.NewEnvLocks(),
	}
}

// Run executes every requested environment and aggregates the results in
// request order.
func (r *Runner) Run(ctx context.Context, envs []string, opts Options) *model.RunSummary {
	summary := &model.RunSummary{
		Started: time.Now().UTC(),
		Envs:    make([]model.EnvResult, len(envs)),
	}

	limit := opts.Parallel
	if limit < 1 {
		limit = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, env := range envs {
		i, env := i, env
		g.Go(func() error {
			summary.Envs[i] = r.runEnv(ctx, env, opts)
			// Environments are isolated: never propagate failure into
			// the group, or sibling environments would be cancelled.
			return nil
		})
	}
	g.Wait()

	return summary
}

func (r *Runner) runEnv(ctx context.Context, env string, opts Options) model.EnvResult {
	r.Bus.Publish(events.Event{Type: events.EventEnvStarted, Env: env})

	result := r.execEnv(ctx, env, opts)

	r.Bus.Publish(events.Event{
		Type: events.EventEnvFinished, Env: env,
		Status: string(result.Status), ExitCode: result.ExitCode,
	})
	return result
}

func (r *Runner) execEnv(ctx context.Context, env string, opts Options) model.EnvResult {
	plan, err := r.Resolver.Resolve(env, opts.PosArgs)
	if err != nil {
		var cerr *config.Error
		if errors.As(err, &cerr) {
			return model.EnvResult{Env: env, Status: model.StatusError, Reason: cerr.Msg, ExitCode: 2}
		}
		return model.EnvResult{Env: env, Status: model.StatusError, Reason: err.Error(), ExitCode: 2}
	}
	if plan.Skipped {
		return model.EnvResult{Env: env, Status: model.StatusSkipped, Reason: plan.SkipReason}
	}

	r.locks.Lock(env)
	defer r.locks.Unlock(env)

	// Setup failures are execution failures (exit 1), not configuration
	// errors.
	if err := os.MkdirAll(plan.EnvDir, 0755); err != nil {
		return model.EnvResult{Env: env, Status: model.StatusFailed,
			Reason: "create env directory: " + err.Error(), ExitCode: 1}
	}
	dirLock := lock.NewEnvDirLock(plan.EnvDir)
	if err := dirLock.TryLock(); err != nil {
		return model.EnvResult{Env: env, Status: model.StatusFailed, Reason: err.Error(), ExitCode: 1}
	}
	defer func() {
		if err := dirLock.Unlock(); err != nil {
			log.Printf("runner: %s: %v", env, err)
		}
	}()

	return r.Exec.Run(ctx, plan)
}
