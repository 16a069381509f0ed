// Package lock implements the per-project run lock: only one `golem run`
// may operate on a given backlog at a time. An flock-guarded metadata
// file records the holder's pid for diagnostics; a one-shot acquire/
// release with stale-pid detection is enough since a run is a single
// foreground process rather than a long-lived supervisor.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ErrHeld is returned by Acquire when another live process holds the lock.
var ErrHeld = errors.New("lock already held")

// Metadata is the JSON recorded in the lock file, used for the
// operator-facing "who holds this" diagnostic.
type Metadata struct {
	PID        int    `json:"pid"`
	Host       string `json:"host"`
	AcquiredAt string `json:"acquired_at"`
}

// Lock is a held run lock. Release must be called to free it.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the exclusive lock at path, creating parent directories
// as needed. The OS releases flock automatically when its holder exits,
// so a live EWOULDBLOCK while the recorded pid is dead means a different
// process won the race, not a stale lock to steal; either way ErrHeld is
// returned with the holder's metadata in the error detail.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	flockErr := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if flockErr != nil {
		if !errors.Is(flockErr, syscall.EWOULDBLOCK) && !errors.Is(flockErr, syscall.EAGAIN) {
			file.Close()
			return nil, fmt.Errorf("acquire lock: %w", flockErr)
		}
		if isStale(path) {
			// The holder is gone but still held the OS-level flock across a
			// crash; flock releases automatically when its owning process
			// exits, so reaching here with EWOULDBLOCK while the pid is dead
			// means a different live process raced us. Surface ErrHeld rather
			// than silently stealing it.
			file.Close()
			return nil, fmt.Errorf("%w: %s", ErrHeld, holderHint(path))
		}
		file.Close()
		return nil, fmt.Errorf("%w: %s", ErrHeld, holderHint(path))
	}

	l := &Lock{path: path, file: file}
	if err := l.writeMetadata(); err != nil {
		l.Release()
		return nil, err
	}
	return l, nil
}

func (l *Lock) writeMetadata() error {
	host, _ := os.Hostname()
	meta := Metadata{PID: os.Getpid(), Host: host, AcquiredAt: time.Now().UTC().Format(time.RFC3339)}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lock metadata: %w", err)
	}
	data = append(data, '\n')
	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := l.file.Seek(0, 0); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("write lock metadata: %w", err)
	}
	return l.file.Sync()
}

// Release unlocks and closes the lock file. It does not remove the file
// so holderHint remains available for post-mortem diagnostics.
func (l *Lock) Release() error {
	unlockErr := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	if unlockErr != nil {
		return fmt.Errorf("unlock: %w", unlockErr)
	}
	return closeErr
}

// isStale reports whether the pid recorded in the lock file at path no
// longer corresponds to a live process. A malformed or unreadable file
// is treated as non-stale (conservative: don't silently reclaim what we
// can't positively identify as dead).
func isStale(path string) bool {
	meta, err := readMetadata(path)
	if err != nil || meta.PID == 0 {
		return false
	}
	proc, err := os.FindProcess(meta.PID)
	if err != nil {
		return true
	}
	// On Unix, FindProcess always succeeds; signal 0 probes liveness
	// without actually delivering a signal.
	return proc.Signal(syscall.Signal(0)) != nil
}

func readMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

func holderHint(path string) string {
	meta, err := readMetadata(path)
	if err != nil || meta.PID == 0 {
		return fmt.Sprintf("lock=%s", path)
	}
	return fmt.Sprintf("pid=%d host=%s acquired_at=%s", meta.PID, meta.Host, meta.AcquiredAt)
}
