package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/clipforge/clipforge/pkg/models"
)

// Queue file names: {queued_at_us}-{8-hex-nonce}.json. Microsecond
// timestamps keep lexicographic order equal to chronological order.
var itemNamePattern = regexp.MustCompile(`^\d+-[0-9a-f]{8}\.json$`)

// Queue is a persistent FIFO rooted at a base directory.
type Queue struct {
	baseDir string
	logger  *slog.Logger
}

// New creates the queue directories if needed and returns the queue.
func New(baseDir string) (*Queue, error) {
	for _, sub := range []string{"inbox", "processing", "completed"} {
		if err := os.MkdirAll(filepath.Join(baseDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating queue directory %s: %w", sub, err)
		}
	}
	return &Queue{
		baseDir: baseDir,
		logger:  slog.Default().With("component", "queue"),
	}, nil
}

func (q *Queue) inboxDir() string      { return filepath.Join(q.baseDir, "inbox") }
func (q *Queue) processingDir() string { return filepath.Join(q.baseDir, "processing") }
func (q *Queue) completedDir() string  { return filepath.Join(q.baseDir, "completed") }

// CompletedDir returns the directory holding processed item files. The
// retention sweeper prunes it.
func (q *Queue) CompletedDir() string { return q.completedDir() }

// Enqueue writes a new item file into inbox/. A single write+close of a
// small file is sufficient; concurrent claimers treat a half-written file
// as a transient parse error and skip it.
func (q *Queue) Enqueue(_ context.Context, item *models.QueueItem) (string, error) {
	name := fmt.Sprintf("%s-%s.json",
		strconv.FormatInt(time.Now().UnixMicro(), 10),
		uuid.NewString()[:8])
	path := filepath.Join(q.inboxDir(), name)

	data, err := json.Marshal(item)
	if err != nil {
		return "", fmt.Errorf("encoding queue item: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing queue item %s: %w", path, err)
	}
	return path, nil
}

// Claim scans inbox/ in lexicographic (FIFO) order and tries to claim the
// first available item. For each candidate it takes a non-blocking
// exclusive flock on a sibling .lock file, re-checks the candidate still
// exists, parses it, and renames it into processing/. Candidates that are
// locked by another process, vanished, or unparseable are skipped.
// Returns ErrQueueEmpty when nothing claims.
func (q *Queue) Claim(_ context.Context) (*ClaimedItem, error) {
	names, err := q.listItems(q.inboxDir())
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		claimed, ok := q.tryClaim(name)
		if ok {
			return claimed, nil
		}
	}
	return nil, ErrQueueEmpty
}

// tryClaim attempts to claim one inbox candidate. Returns (nil, false) on
// any contention or transient failure; the caller moves on.
func (q *Queue) tryClaim(name string) (*ClaimedItem, bool) {
	candidate := filepath.Join(q.inboxDir(), name)
	lockPath := candidate + ".lock"

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		q.logger.Warn("Cannot open lock file", "path", lockPath, "error", err)
		return nil, false
	}
	defer lockFile.Close()

	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		// Another consumer holds the lock.
		return nil, false
	}
	defer func() {
		_ = unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)
		_ = os.Remove(lockPath)
	}()

	// The candidate may have been claimed between listing and locking.
	if _, err := os.Stat(candidate); err != nil {
		return nil, false
	}

	data, err := os.ReadFile(candidate)
	if err != nil {
		return nil, false
	}
	var item models.QueueItem
	if err := json.Unmarshal(data, &item); err != nil {
		// Possibly still being written; treat as transient and skip.
		q.logger.Warn("Skipping unparseable queue file", "path", candidate, "error", err)
		return nil, false
	}

	processingPath := filepath.Join(q.processingDir(), name)
	if err := os.Rename(candidate, processingPath); err != nil {
		q.logger.Warn("Cannot move queue file to processing", "path", candidate, "error", err)
		return nil, false
	}

	return &ClaimedItem{Item: &item, ProcessingPath: processingPath}, true
}

// Complete moves a processing file into completed/ (retained for audit).
func (q *Queue) Complete(_ context.Context, processingPath string) error {
	target := filepath.Join(q.completedDir(), filepath.Base(processingPath))
	if err := os.Rename(processingPath, target); err != nil {
		return fmt.Errorf("completing queue item: %w", err)
	}
	return nil
}

// Fail returns a processing file to inbox/ for a later retry.
func (q *Queue) Fail(_ context.Context, processingPath string) error {
	target := filepath.Join(q.inboxDir(), filepath.Base(processingPath))
	if err := os.Rename(processingPath, target); err != nil {
		return fmt.Errorf("requeueing queue item: %w", err)
	}
	return nil
}

// PendingCount returns the number of well-named items in inbox/.
func (q *Queue) PendingCount() (int, error) {
	names, err := q.listItems(q.inboxDir())
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// ProcessingCount returns the number of well-named items in processing/.
func (q *Queue) ProcessingCount() (int, error) {
	names, err := q.listItems(q.processingDir())
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// CompletedCount returns the number of well-named items in completed/.
func (q *Queue) CompletedCount() (int, error) {
	names, err := q.listItems(q.completedDir())
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// listItems returns the sorted well-named queue files in dir.
func (q *Queue) listItems(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !itemNamePattern.MatchString(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
