// Package consumer runs the single-run-at-a-time processing loop: resume
// interrupted runs, then claim queue items one by one and drive each
// through the pipeline. One run at a time is a deliberate ceiling; the
// video stages saturate the host on their own.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/clipforge/clipforge/pkg/chat"
	"github.com/clipforge/clipforge/pkg/models"
	"github.com/clipforge/clipforge/pkg/pipeline"
	"github.com/clipforge/clipforge/pkg/queue"
)

// DefaultIdleInterval is the pause between polls when the inbox is empty.
const DefaultIdleInterval = 5 * time.Second

// ItemQueue is the persistent FIFO the loop consumes.
type ItemQueue interface {
	Enqueue(ctx context.Context, item *models.QueueItem) (string, error)
	Claim(ctx context.Context) (*queue.ClaimedItem, error)
	Complete(ctx context.Context, processingPath string) error
	Fail(ctx context.Context, processingPath string) error
}

// Throttler blocks until the host can afford a run.
type Throttler interface {
	Wait(ctx context.Context) error
}

// WorkspaceAcquirer hands out fresh run workspaces.
type WorkspaceAcquirer interface {
	Acquire(ctx context.Context) (string, error)
}

// RunExecutor drives one run through the pipeline.
type RunExecutor interface {
	Run(ctx context.Context, item *models.QueueItem, workspacePath string) (*models.RunState, error)
	Resume(ctx context.Context, state *models.RunState) (*models.RunState, error)
}

// RecoveryScanner plans the resumption of interrupted runs.
type RecoveryScanner interface {
	Scan(ctx context.Context) ([]*pipeline.RecoveryPlan, error)
}

// SubmissionSource yields new URL submissions from chat. May be nil when
// the bot is not configured.
type SubmissionSource interface {
	Poll(ctx context.Context) ([]chat.Submission, error)
}

// Heartbeat is the service-manager integration surface.
type Heartbeat interface {
	NotifyReady()
	NotifyStopping()
	Start(ctx context.Context)
	Stop()
}

// Notifier delivers advisory messages to the user.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// FileSender delivers finished clips to the user. May be nil when the bot
// is not configured.
type FileSender interface {
	SendFile(ctx context.Context, path, caption string) error
}

// Loop is the consumer loop.
type Loop struct {
	queue        ItemQueue
	throttler    Throttler
	workspaces   WorkspaceAcquirer
	runner       RunExecutor
	scanner      RecoveryScanner
	submissions  SubmissionSource
	heartbeat    Heartbeat
	notifier     Notifier
	files        FileSender
	idleInterval time.Duration
	logger       *slog.Logger
}

// Options bundles the loop's collaborators.
type Options struct {
	Queue        ItemQueue
	Throttler    Throttler
	Workspaces   WorkspaceAcquirer
	Runner       RunExecutor
	Scanner      RecoveryScanner
	Submissions  SubmissionSource
	Heartbeat    Heartbeat
	Notifier     Notifier
	Files        FileSender
	IdleInterval time.Duration
}

// NewLoop builds a consumer loop.
func NewLoop(opts Options) *Loop {
	idle := opts.IdleInterval
	if idle <= 0 {
		idle = DefaultIdleInterval
	}
	return &Loop{
		queue:        opts.Queue,
		throttler:    opts.Throttler,
		workspaces:   opts.Workspaces,
		runner:       opts.Runner,
		scanner:      opts.Scanner,
		submissions:  opts.Submissions,
		heartbeat:    opts.Heartbeat,
		notifier:     opts.Notifier,
		files:        opts.Files,
		idleInterval: idle,
		logger:       slog.Default().With("component", "consumer"),
	}
}

// Run executes the loop until ctx is canceled. Interrupted runs are
// resumed serially before any new item is claimed; systemd readiness is
// reported only after recovery completes.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.recover(ctx); err != nil {
		return fmt.Errorf("crash recovery failed: %w", err)
	}

	l.heartbeat.NotifyReady()
	l.heartbeat.Start(ctx)
	defer func() {
		l.heartbeat.Stop()
		l.heartbeat.NotifyStopping()
	}()

	l.logger.Info("Consumer loop started")
	for {
		if err := ctx.Err(); err != nil {
			l.logger.Info("Consumer loop stopping", "reason", err)
			return nil
		}
		l.ingestSubmissions(ctx)

		claimed, err := l.queue.Claim(ctx)
		if errors.Is(err, queue.ErrQueueEmpty) {
			l.idle(ctx)
			continue
		}
		if err != nil {
			l.logger.Error("Queue claim failed", "error", err)
			l.idle(ctx)
			continue
		}

		l.process(ctx, claimed)
	}
}

// recover resumes every interrupted run, one at a time.
func (l *Loop) recover(ctx context.Context) error {
	plans, err := l.scanner.Scan(ctx)
	if err != nil {
		return err
	}
	for _, plan := range plans {
		l.logger.Info("Resuming interrupted run",
			"run_id", plan.State.RunID, "resume_from", plan.ResumeFrom)
		if _, err := l.runner.Resume(ctx, plan.State); err != nil {
			l.logger.Error("Resume failed",
				"run_id", plan.State.RunID, "error", err)
		}
	}
	return nil
}

// ingestSubmissions drains the chat poller into the queue.
func (l *Loop) ingestSubmissions(ctx context.Context) {
	if l.submissions == nil {
		return
	}
	found, err := l.submissions.Poll(ctx)
	if err != nil {
		l.logger.Warn("Chat poll failed", "error", err)
		return
	}
	for _, sub := range found {
		item := &models.QueueItem{
			URL:              sub.URL,
			TelegramUpdateID: sub.UpdateID,
			QueuedAt:         models.Timestamp(time.Now()),
			TopicFocus:       sub.Topic,
		}
		if _, err := l.queue.Enqueue(ctx, item); err != nil {
			l.logger.Error("Enqueue failed", "url", sub.URL, "error", err)
			continue
		}
		l.logger.Info("Submission queued", "url", sub.URL)
		_ = l.notifier.Notify(ctx, "Queued: "+sub.URL)
	}
}

// process runs one claimed item end to end and settles its queue file.
func (l *Loop) process(ctx context.Context, claimed *queue.ClaimedItem) {
	if err := l.throttler.Wait(ctx); err != nil {
		// Shutdown while throttled: put the item back for the next boot.
		l.requeue(ctx, claimed)
		return
	}

	workspacePath, err := l.workspaces.Acquire(ctx)
	if err != nil {
		l.logger.Error("Workspace acquisition failed", "error", err)
		l.requeue(ctx, claimed)
		return
	}

	run, err := l.runner.Run(ctx, claimed.Item, workspacePath)
	switch {
	case err != nil:
		// Quarantine: the file stays in processing/ so the failure is
		// visible and a permanently failing URL is never retried blindly.
		l.logger.Error("Run failed, leaving item in processing",
			"url", claimed.Item.URL, "path", claimed.ProcessingPath, "error", err)
		_ = l.notifier.Notify(ctx, fmt.Sprintf("Run failed for %s: %v", claimed.Item.URL, err))

	case run.EscalationState != models.EscalationNone:
		// Escalated runs stay in processing/ as a visible marker until a
		// human resolves them.
		l.logger.Warn("Run escalated, leaving item in processing",
			"run_id", run.RunID, "escalation", run.EscalationState)

	default:
		if err := l.queue.Complete(ctx, claimed.ProcessingPath); err != nil {
			l.logger.Error("Could not settle completed item", "error", err)
		}
		l.deliver(ctx, run)
	}
}

// deliver sends the finished clip to the user. Best effort: a run without
// a rendered clip, or with no bot configured, delivers nothing.
func (l *Loop) deliver(ctx context.Context, run *models.RunState) {
	if l.files == nil || run.CurrentStage != models.StageCompleted {
		return
	}
	clip := finalClip(run.WorkspacePath)
	if clip == "" {
		return
	}
	if err := l.files.SendFile(ctx, clip, "Finished clip for "+run.YouTubeURL); err != nil {
		l.logger.Warn("Clip delivery failed", "path", clip, "error", err)
	}
}

// finalClip picks the newest rendered video in the workspace assets
// directory, by name order.
func finalClip(workspacePath string) string {
	entries, err := os.ReadDir(filepath.Join(workspacePath, "assets"))
	if err != nil {
		return ""
	}
	var clip string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".mp4" {
			continue
		}
		clip = filepath.Join(workspacePath, "assets", entry.Name())
	}
	return clip
}

func (l *Loop) requeue(ctx context.Context, claimed *queue.ClaimedItem) {
	if err := l.queue.Fail(ctx, claimed.ProcessingPath); err != nil {
		l.logger.Error("Could not requeue item", "path", claimed.ProcessingPath, "error", err)
	}
}

func (l *Loop) idle(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(l.idleInterval):
	}
}
