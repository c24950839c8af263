// Package lock serializes access to environment work directories: an
// in-process mutex per environment name plus an advisory file lock so two
// hako processes never share an environment directory.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

// EnvLocks hands out one mutex per environment name for parallel runs
// inside a single process.
type EnvLocks struct {
	mu      sync.Mutex
	mutexes map[string]*sync.Mutex
}

func NewEnvLocks() *EnvLocks {
	return &EnvLocks{
		mutexes: make(map[string]*sync.Mutex),
	}
}

func (m *EnvLocks) Lock(env string) {
	m.getMutex(env).Lock()
}

func (m *EnvLocks) Unlock(env string) {
	m.getMutex(env).Unlock()
}

func (m *EnvLocks) getMutex(env string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mu, ok := m.mutexes[env]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	m.mutexes[env] = mu
	return mu
}

// EnvDirLock is an advisory flock on an environment directory.
type EnvDirLock struct {
	path string
	file *os.File
}

// NewEnvDirLock prepares a lock for the given environment directory. The
// directory must exist before TryLock.
func NewEnvDirLock(envDir string) *EnvDirLock {
	return &EnvDirLock{path: filepath.Join(envDir, ".lock")}
}

// TryLock acquires the lock without blocking and records the owning PID.
func (fl *EnvDirLock) TryLock() error {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return fmt.Errorf("acquire lock (another hako run may own this environment): %w", err)
	}

	if err := f.Truncate(0); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return fmt.Errorf("write PID to lock file: %w", err)
	}
	if err := f.Sync(); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return fmt.Errorf("sync lock file: %w", err)
	}

	fl.file = f
	return nil
}

func (fl *EnvDirLock) Unlock() error {
	if fl.file == nil {
		return nil
	}

	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		fl.file.Close()
		return fmt.Errorf("release lock: %w", err)
	}

	if err := fl.file.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}

	os.Remove(fl.path)
	fl.file = nil
	return nil
}
