package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mnemo/internal/logging"
)

// Stats aggregates job counts per queue state.
type Stats struct {
	Pending    int
	Processing int
	Failed     int
}

// Total returns the number of jobs across all states.
func (s Stats) Total() int {
	return s.Pending + s.Processing + s.Failed
}

// RetryAll moves every failed job back to pending with the terminal error
// stripped and returns the number of jobs moved. Operator-triggered bulk
// recovery; automatic retries never touch the failed directory.
func (s *Store) RetryAll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	names, err := s.listJobFiles(s.failedDir)
	if err != nil {
		return 0, fmt.Errorf("list failed jobs: %w", err)
	}
	count := 0
	for _, name := range names {
		src := filepath.Join(s.failedDir, name)
		payload, err := readJSON(src)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return count, fmt.Errorf("read failed job %s: %w", name, err)
		}
		delete(payload, failedErrorKey)
		if err := writeJSONAtomic(filepath.Join(s.pendingDir, name), payload); err != nil {
			return count, fmt.Errorf("requeue failed job %s: %w", name, err)
		}
		if err := os.Remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return count, fmt.Errorf("remove failed job %s: %w", name, err)
		}
		removeLockFile(src)
		count++
	}
	s.logger.Info("failed jobs moved back to pending",
		logging.Int("count", count),
		logging.String(logging.FieldEventType, "queue_retry_all"))
	return count, nil
}

// RecoverStale returns abandoned processing jobs to pending. A job whose file
// age exceeds the timeout is presumed orphaned by a crashed or hung consumer;
// the lease expires regardless of whether that consumer is still alive.
func (s *Store) RecoverStale(ctx context.Context, timeout time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	names, err := s.listJobFiles(s.processingDir)
	if err != nil {
		return 0, fmt.Errorf("list processing jobs: %w", err)
	}
	now := time.Now()
	count := 0
	for _, name := range names {
		src := filepath.Join(s.processingDir, name)
		info, err := os.Stat(src)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return count, fmt.Errorf("stat processing job %s: %w", name, err)
		}
		if now.Sub(info.ModTime()) <= timeout {
			continue
		}
		if err := os.Rename(src, filepath.Join(s.pendingDir, name)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return count, fmt.Errorf("reclaim stale job %s: %w", name, err)
		}
		removeLockFile(src)
		count++
	}
	if count > 0 {
		s.logger.Info("reclaimed stale processing jobs",
			logging.Int("count", count),
			logging.Duration("timeout", timeout),
			logging.String(logging.FieldEventType, "queue_stale_reclaim"))
	}
	return count, nil
}

// CleanupFailed prunes the failed directory by age, then by count (oldest
// first), and returns the number of files removed. A maxFiles of 0 disables
// the count bound.
func (s *Store) CleanupFailed(ctx context.Context, maxAge time.Duration, maxFiles int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	names, err := s.listJobFiles(s.failedDir)
	if err != nil {
		return 0, fmt.Errorf("list failed jobs: %w", err)
	}

	type aged struct {
		name    string
		modTime time.Time
	}
	now := time.Now()
	removed := 0
	remaining := make([]aged, 0, len(names))
	for _, name := range names {
		path := filepath.Join(s.failedDir, name)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("stat failed job %s: %w", name, err)
		}
		if maxAge > 0 && now.Sub(info.ModTime()) > maxAge {
			if err := s.removeFailed(path); err != nil {
				return removed, err
			}
			removed++
			continue
		}
		remaining = append(remaining, aged{name: name, modTime: info.ModTime()})
	}

	if maxFiles > 0 && len(remaining) > maxFiles {
		sort.Slice(remaining, func(i, j int) bool {
			return remaining[i].modTime.Before(remaining[j].modTime)
		})
		for _, entry := range remaining[:len(remaining)-maxFiles] {
			if err := s.removeFailed(filepath.Join(s.failedDir, entry.name)); err != nil {
				return removed, err
			}
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("pruned failed jobs",
			logging.Int("count", removed),
			logging.String(logging.FieldEventType, "queue_failed_cleanup"))
	}
	return removed, nil
}

func (s *Store) removeFailed(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove failed job %s: %w", filepath.Base(path), err)
	}
	removeLockFile(path)
	return nil
}

// Stats counts jobs per state for CLI and health output.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	var stats Stats
	for _, target := range []struct {
		dir   string
		count *int
	}{
		{s.pendingDir, &stats.Pending},
		{s.processingDir, &stats.Processing},
		{s.failedDir, &stats.Failed},
	} {
		names, err := s.listJobFiles(target.dir)
		if err != nil {
			return Stats{}, fmt.Errorf("count jobs in %s: %w", filepath.Base(target.dir), err)
		}
		*target.count = len(names)
	}
	return stats, nil
}

// FailedJob describes one entry in the failed directory.
type FailedJob struct {
	JobID    string
	Error    string
	FailedAt time.Time
}

// ListFailed returns the failed jobs with their recorded errors, oldest first.
func (s *Store) ListFailed(ctx context.Context) ([]FailedJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := s.listJobFiles(s.failedDir)
	if err != nil {
		return nil, fmt.Errorf("list failed jobs: %w", err)
	}
	jobs := make([]FailedJob, 0, len(names))
	for _, name := range names {
		path := filepath.Join(s.failedDir, name)
		payload, err := readJSON(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read failed job %s: %w", name, err)
		}
		info, err := os.Stat(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat failed job %s: %w", name, err)
		}
		job := FailedJob{JobID: strings.TrimSuffix(name, ".json")}
		if errText, ok := payload[failedErrorKey].(string); ok {
			job.Error = errText
		}
		if info != nil {
			job.FailedAt = info.ModTime()
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
