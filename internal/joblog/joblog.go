package joblog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"lkspark/internal/logging"
)

// ErrLocked is returned by Open when another writer holds the job log.
var ErrLocked = errors.New("job log is locked by another writer")

const (
	logSuffix  = ".log"
	lockSuffix = ".lock"
)

// Log is an open job log. Writes go straight to the file without buffering.
type Log struct {
	mu     sync.Mutex
	file   *os.File
	lock   *flock.Flock
	path   string
	closed bool
}

// FileName returns the log file name used for jobID.
func FileName(jobID string) string {
	return jobID + logSuffix
}

// Open appends to <dir>/<jobID>.log, creating dir and the file as needed.
func Open(dir, jobID string) (*Log, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, errors.New("job id is required")
	}
	if strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." {
		return nil, fmt.Errorf("invalid job id %q", jobID)
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("job log directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create job log directory: %w", err)
	}

	path := filepath.Join(dir, FileName(jobID))
	lock := flock.New(path + lockSuffix)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire job log lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open job log: %w", err)
	}
	return &Log{file: file, lock: lock, path: path}, nil
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Write appends p to the log.
func (l *Log) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, os.ErrClosed
	}
	return l.file.Write(p)
}

// WriteString appends s to the log.
func (l *Log) WriteString(s string) (int, error) {
	return l.Write([]byte(s))
}

// Close closes the file and releases the writer lock. Closing twice is a no-op.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	closeErr := l.file.Close()
	if err := l.lock.Unlock(); err != nil && closeErr == nil {
		closeErr = fmt.Errorf("release job log lock: %w", err)
	}
	return closeErr
}

// Prune removes job logs in dir not modified for more than days, together
// with their stale lock files, and returns the number of logs removed. Logs
// of jobs that are still open are skipped.
func Prune(dir string, days int, logger *slog.Logger) int {
	var activeLogs, activeLocks []string
	if matches, err := filepath.Glob(filepath.Join(dir, "*"+logSuffix+lockSuffix)); err == nil {
		for _, lockPath := range matches {
			if held(lockPath) {
				activeLocks = append(activeLocks, lockPath)
				activeLogs = append(activeLogs, strings.TrimSuffix(lockPath, lockSuffix))
			}
		}
	}
	removed := logging.CleanupOldLogs(logger, days, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "*" + logSuffix,
		Exclude: activeLogs,
	})
	logging.CleanupOldLogs(logging.NewNop(), days, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "*" + logSuffix + lockSuffix,
		Exclude: activeLocks,
	})
	return removed
}

func held(lockPath string) bool {
	probe := flock.New(lockPath)
	ok, err := probe.TryLock()
	if err != nil {
		return false
	}
	if !ok {
		return true
	}
	_ = probe.Unlock()
	return false
}
