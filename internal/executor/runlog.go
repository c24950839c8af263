package executor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogEntry is a single run log record.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"` // "install" or "command"
	Line      string    `json:"line"`
	ExitCode  int       `json:"exit_code"`
	Tolerated bool      `json:"tolerated,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// RunLog is an append-only JSONL log of everything executed for one
// environment, written under the environment directory.
type RunLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenRunLog creates (or truncates) the run log for an environment
// directory.
func OpenRunLog(envDir string) (*RunLog, error) {
	logDir := filepath.Join(envDir, "log")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.Create(filepath.Join(logDir, "run.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("create run log: %w", err)
	}
	return &RunLog{file: f}, nil
}

// Append writes one entry. Failures to log never fail the run.
func (l *RunLog) Append(e LogEntry) error {
	if l == nil {
		return nil
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write log entry: %w", err)
	}
	return nil
}

func (l *RunLog) Close() error {
	if l == nil {
		return nil
	}
	return l.file.Close()
}
