// Package runlock prevents two watchdog invocations from racing on the same
// registry. The invoking timer's interval usually keeps runs apart already;
// the pid file makes the assumption explicit instead of relying on it.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// ErrHeld means another live process holds the lock.
var ErrHeld = errors.New("runlock: another run is in progress")

type Lock struct {
	path string
}

// Acquire claims the pid file. A file left behind by a dead process is
// treated as stale and taken over.
func Acquire(path string) (*Lock, error) {
	if data, err := os.ReadFile(path); err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err == nil && pidAlive(pid) {
			return nil, fmt.Errorf("%w: pid %d", ErrHeld, pid)
		}
		// stale pid file, take it over
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("runlock: write %s: %w", path, err)
	}
	return &Lock{path: path}, nil
}

func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("runlock: remove %s: %w", l.path, err)
	}
	return nil
}

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
