// Package cleanup provides data retention for the file-backed pipeline:
// processed queue files and the workspaces of long-finished runs.
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/clipforge/clipforge/pkg/config"
	"github.com/clipforge/clipforge/pkg/models"
	"github.com/clipforge/clipforge/pkg/state"
)

// TerminalLister enumerates runs that reached a terminal stage.
type TerminalLister interface {
	ListTerminal(ctx context.Context) ([]*models.RunState, error)
	RunDir(runID string) string
}

var _ TerminalLister = (*state.Store)(nil)

// Service periodically enforces retention policies:
//   - Deletes processed queue files past their TTL
//   - Removes workspaces and run directories of old terminal runs
//
// All operations are idempotent; a crash mid-sweep just leaves work for
// the next tick.
type Service struct {
	config       *config.RetentionConfig
	completedDir string
	runs         TerminalLister
	logger       *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service. completedDir is the queue's
// completed/ directory.
func NewService(cfg *config.RetentionConfig, completedDir string, runs TerminalLister) *Service {
	return &Service{
		config:       cfg,
		completedDir: completedDir,
		runs:         runs,
		logger:       slog.Default().With("component", "cleanup"),
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("Cleanup service started",
		"completed_queue_ttl", s.config.CompletedQueueTTL,
		"workspace_retention_days", s.config.WorkspaceRetentionDays,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs both retention passes once.
func (s *Service) Sweep(ctx context.Context) {
	s.sweepCompletedQueue()
	s.sweepTerminalRuns(ctx)
}

// sweepCompletedQueue deletes processed queue files older than the TTL.
func (s *Service) sweepCompletedQueue() {
	cutoff := time.Now().Add(-s.config.CompletedQueueTTL)

	entries, err := os.ReadDir(s.completedDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("Retention: reading completed queue failed", "error", err)
		}
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.completedDir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Retention: removing queue file failed", "path", path, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("Retention: removed processed queue files", "count", removed)
	}
}

// sweepTerminalRuns removes the workspace and run directory of terminal
// runs whose last update is older than the retention window.
func (s *Service) sweepTerminalRuns(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.WorkspaceRetentionDays)

	runs, err := s.runs.ListTerminal(ctx)
	if err != nil {
		s.logger.Error("Retention: listing terminal runs failed", "error", err)
		return
	}

	removed := 0
	for _, run := range runs {
		updated, err := time.Parse(models.TimestampFormat, run.UpdatedAt)
		if err != nil || updated.After(cutoff) {
			continue
		}
		if run.WorkspacePath != "" {
			if err := os.RemoveAll(run.WorkspacePath); err != nil {
				s.logger.Warn("Retention: removing workspace failed",
					"run_id", run.RunID, "path", run.WorkspacePath, "error", err)
				continue
			}
		}
		if err := os.RemoveAll(s.runs.RunDir(run.RunID)); err != nil {
			s.logger.Warn("Retention: removing run directory failed",
				"run_id", run.RunID, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("Retention: removed old terminal runs", "count", removed)
	}
}
