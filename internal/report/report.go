// Package report renders run results: console progress and summary,
// environment listings, and the optional YAML report file.
package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hakoenv/hako/internal/events"
	"github.com/hakoenv/hako/internal/model"
)

const reportSchemaVersion = 1

// File is the on-disk report document.
type File struct {
	SchemaVersion int               `yaml:"schema_version"`
	Started       time.Time         `yaml:"started"`
	Envs          []model.EnvResult `yaml:"envs"`
	ExitCode      int               `yaml:"exit_code"`
}

// Write stores the run summary as a YAML report at path.
func Write(path string, summary *model.RunSummary) error {
	doc := File{
		SchemaVersion: reportSchemaVersion,
		Started:       summary.Started,
		Envs:          summary.Envs,
		ExitCode:      summary.ExitCode(),
	}
	return atomicWriteYAML(path, doc)
}

// Printer writes run progress lines as events arrive. Events are
// delivered from bus goroutines, so all writes go through one mutex.
type Printer struct {
	W io.Writer

	mu sync.Mutex
}

func (p *Printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.W, format, args...)
}

// Attach subscribes the printer to a bus. Returns the combined
// unsubscribe function.
func (p *Printer) Attach(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(events.EventEnvStarted, func(e events.Event) {
			p.printf("%s: start\n", e.Env)
		}),
		bus.Subscribe(events.EventCommandFinished, func(e events.Event) {
			verdict := "ok"
			if e.ExitCode != 0 {
				verdict = fmt.Sprintf("exit %d", e.ExitCode)
			}
			p.printf("%s: %s (%s)\n", e.Env, e.Line, verdict)
		}),
		bus.Subscribe(events.EventEnvFinished, func(e events.Event) {
			p.printf("%s: %s\n", e.Env, e.Status)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Summary writes the final verdict block through the printer's writer
// lock, so late progress events cannot interleave mid-line.
func (p *Printer) Summary(summary *model.RunSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	PrintSummary(p.W, summary)
}

// PrintSummary writes the final per-environment verdict block.
func PrintSummary(w io.Writer, summary *model.RunSummary) {
	fmt.Fprintln(w, "___________________________________ summary ___________________________________")
	for _, e := range summary.Envs {
		switch e.Status {
		case model.StatusPassed:
			fmt.Fprintf(w, "  %s: ok (%.2fs)\n", e.Env, e.Duration.Seconds())
		case model.StatusSkipped:
			fmt.Fprintf(w, "  %s: skipped (%s)\n", e.Env, e.Reason)
		case model.StatusError:
			fmt.Fprintf(w, "  %s: configuration error: %s\n", e.Env, e.Reason)
		default:
			fmt.Fprintf(w, "  %s: failed (exit %d): %s\n", e.Env, e.ExitCode, e.Reason)
		}
	}
	if len(summary.Failed()) == 0 {
		fmt.Fprintln(w, "  congratulations :)")
	}
}
