package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"mnemo/internal/logging"
)

// Store manages job persistence on the local filesystem.
type Store struct {
	pendingDir    string
	processingDir string
	failedDir     string
	logger        *slog.Logger
}

// Open initializes the queue directories under basePath and removes lock
// files left behind by a crashed process.
func Open(basePath string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, errors.New("queue base path must be set")
	}
	store := &Store{
		pendingDir:    filepath.Join(basePath, "pending"),
		processingDir: filepath.Join(basePath, "processing"),
		failedDir:     filepath.Join(basePath, "failed"),
		logger:        logging.NewComponentLogger(logger, "jobqueue"),
	}
	staleLocks := 0
	for _, dir := range []string{store.pendingDir, store.processingDir, store.failedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create queue directory %s: %w", dir, err)
		}
		locks, err := filepath.Glob(filepath.Join(dir, "*.lock"))
		if err != nil {
			return nil, fmt.Errorf("scan lock files in %s: %w", dir, err)
		}
		for _, lock := range locks {
			if err := os.Remove(lock); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("remove stale lock %s: %w", lock, err)
			}
			staleLocks++
		}
	}
	if staleLocks > 0 {
		store.logger.Info("removed stale lock files",
			logging.Int("count", staleLocks),
			logging.String(logging.FieldEventType, "queue_lock_cleanup"))
	}
	return store, nil
}

// Enqueue writes the payload as a new pending job and returns its id.
func (s *Store) Enqueue(ctx context.Context, payload Payload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	jobID := NewJobID(payload, time.Now())
	if err := writeJSONAtomic(s.pendingPath(jobID), payload); err != nil {
		return "", fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	s.logger.Info("job enqueued",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldEventType, "job_enqueued"))
	return jobID, nil
}

// Dequeue claims the oldest pending job by renaming it into processing and
// returns its id and payload. It returns ("", nil, nil) when nothing is
// claimable. Candidates that vanish mid-scan were claimed by a racing
// consumer and are skipped.
func (s *Store) Dequeue(ctx context.Context) (string, Payload, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	names, err := s.listJobFiles(s.pendingDir)
	if err != nil {
		return "", nil, fmt.Errorf("list pending jobs: %w", err)
	}
	for _, name := range names {
		src := filepath.Join(s.pendingDir, name)
		dst := filepath.Join(s.processingDir, name)
		if err := os.Rename(src, dst); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", nil, fmt.Errorf("claim job %s: %w", name, err)
		}
		jobID := strings.TrimSuffix(name, ".json")
		payload, err := s.readJobLocked(dst)
		if err != nil {
			return "", nil, fmt.Errorf("read claimed job %s: %w", jobID, err)
		}
		s.logger.Info("job claimed",
			logging.String(logging.FieldJobID, jobID),
			logging.Int("retry_count", RetryCount(payload)),
			logging.String(logging.FieldEventType, "job_claimed"))
		return jobID, payload, nil
	}
	return "", nil, nil
}

// Complete removes the processing file for a finished job. A missing file is
// not an error; completion is idempotent.
func (s *Store) Complete(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.processingPath(jobID)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("complete job %s: %w", jobID, err)
	}
	removeLockFile(path)
	s.logger.Info("job completed",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldEventType, "job_completed"))
	return nil
}

// Fail moves a claimed job into the failed directory with the terminal error
// attached under the "error" key. Returns ErrJobNotFound when the processing
// file is already gone.
func (s *Store) Fail(ctx context.Context, jobID, errText string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src := s.processingPath(jobID)
	payload, err := readJSON(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("fail job %s: %w", jobID, ErrJobNotFound)
		}
		return fmt.Errorf("fail job %s: %w", jobID, err)
	}
	payload[failedErrorKey] = errText
	if err := writeJSONAtomic(s.failedPath(jobID), payload); err != nil {
		return fmt.Errorf("persist failed job %s: %w", jobID, err)
	}
	if err := os.Remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove processing file for %s: %w", jobID, err)
	}
	removeLockFile(src)
	s.logger.Warn("job failed",
		logging.String(logging.FieldJobID, jobID),
		logging.String("job_error", errText),
		logging.String(logging.FieldEventType, "job_failed"))
	return nil
}

// Requeue returns a claimed job to pending after a transient failure,
// incrementing _retry_count and recording _last_error. The updated content is
// persisted to the processing file before the move, so a crash between the
// two steps leaves the job in processing with its retry metadata intact.
func (s *Store) Requeue(ctx context.Context, jobID, errText string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src := s.processingPath(jobID)
	dst := s.pendingPath(jobID)

	lock := flock.New(lockPath(src))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock job %s: %w", jobID, err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	payload, err := readJSON(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("requeue job %s: %w", jobID, ErrJobNotFound)
		}
		return fmt.Errorf("requeue job %s: %w", jobID, err)
	}
	payload[retryCountKey] = RetryCount(payload) + 1
	payload[lastErrorKey] = errText

	if err := writeJSONAtomic(src, payload); err != nil {
		return fmt.Errorf("persist retry metadata for %s: %w", jobID, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move job %s to pending: %w", jobID, err)
	}
	removeLockFile(src)
	s.logger.Info("job requeued",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("retry_count", RetryCount(payload)),
		logging.String("job_error", errText),
		logging.String(logging.FieldEventType, "job_requeued"))
	return nil
}

func (s *Store) pendingPath(jobID string) string {
	return filepath.Join(s.pendingDir, jobID+".json")
}

func (s *Store) processingPath(jobID string) string {
	return filepath.Join(s.processingDir, jobID+".json")
}

func (s *Store) failedPath(jobID string) string {
	return filepath.Join(s.failedDir, jobID+".json")
}

// listJobFiles returns job filenames sorted lexically. Job ids embed a
// millisecond timestamp, so this approximates FIFO order.
func (s *Store) listJobFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// readJobLocked reads a job file under a shared advisory lock so a concurrent
// Requeue content rewrite cannot be observed half-written.
func (s *Store) readJobLocked(path string) (Payload, error) {
	lock := flock.New(lockPath(path))
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock for read: %w", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()
	return readJSON(path)
}

func lockPath(jobPath string) string {
	return jobPath + ".lock"
}

func removeLockFile(jobPath string) {
	_ = os.Remove(lockPath(jobPath))
}

func readJSON(path string) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	payload := make(Payload)
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return payload, nil
}

// writeJSONAtomic writes payload to a sibling temp file and renames it into
// place so readers never observe a partial write.
func writeJSONAtomic(path string, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
