package runlock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquire_SecondAcquireFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pzwatch.pid")
	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lock.Release()

	// The lock names this very process, which is certainly alive.
	if _, err := Acquire(path); !errors.Is(err, ErrHeld) {
		t.Fatalf("err=%v, want ErrHeld", err)
	}
}

func TestAcquire_StalePidFileIsTakenOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pzwatch.pid")
	// Max pid on Linux is bounded well below this; no such process exists.
	if err := os.WriteFile(path, []byte("999999999"), 0o644); err != nil {
		t.Fatalf("write stale pid: %v", err)
	}
	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("acquire over stale lock: %v", err)
	}
	defer lock.Release()
}

func TestRelease_RemovesPidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pzwatch.pid")
	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pid file still present: %v", err)
	}
	if _, err := Acquire(path); err != nil {
		t.Fatalf("reacquire: %v", err)
	}
}

func TestAcquire_GarbagePidFileIsTakenOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pzwatch.pid")
	if err := os.WriteFile(path, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if _, err := Acquire(path); err != nil {
		t.Fatalf("acquire over garbage: %v", err)
	}
}
