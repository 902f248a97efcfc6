// Package runlock implements locsync.lock, a pid lock file guarding a
// working tree. CI retriggers can race an in-flight run; the lock makes
// the second job fail fast instead of interleaving writes.
package runlock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// LockFileName is the lock file created in the project root.
const LockFileName = "locsync.lock"

// Lock represents a held run lock.
type Lock struct {
	path string
}

// Acquire takes the run lock for dir. It fails when another live
// process holds it; a lock left behind by a dead process is reclaimed.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, LockFileName)

	for {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			if cerr := f.Close(); cerr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("writing %s: %w", path, cerr)
			}
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating %s: %w", path, err)
		}

		pid, perr := readPid(path)
		if perr == nil && processAlive(pid) {
			return nil, fmt.Errorf("another locsync run (pid %d) holds %s", pid, path)
		}

		// Stale lock: owner is gone or the file is garbage. Reclaim.
		if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
			return nil, fmt.Errorf("removing stale %s: %w", path, rerr)
		}
	}
}

// Release removes the lock file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", l.path, err)
	}
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

func readPid(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// processAlive reports whether a process with the given pid exists.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
