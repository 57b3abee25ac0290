// Package api exposes the read-only ops HTTP surface: liveness, queue
// depth, and run listings. Submissions come in through chat, never here.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge/pkg/models"
	"github.com/clipforge/clipforge/pkg/version"
)

// QueueCounter reports queue directory depths.
type QueueCounter interface {
	PendingCount() (int, error)
	ProcessingCount() (int, error)
	CompletedCount() (int, error)
}

// RunLister enumerates runs that are still in flight.
type RunLister interface {
	ListIncomplete(ctx context.Context) ([]*models.RunState, error)
}

// Server is the ops API server.
type Server struct {
	queue      QueueCounter
	runs       RunLister
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates the ops API server.
func NewServer(queue QueueCounter, runs RunLister) *Server {
	s := &Server{
		queue:  queue,
		runs:   runs,
		logger: slog.Default().With("component", "api-server"),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.Health)
	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", s.Status)
		v1.GET("/runs", s.ListRuns)
	}

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving on addr. Blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.httpServer.Addr = addr
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Health returns the liveness status.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": version.AppName,
		"version": version.GitCommit,
	})
}

// Status reports queue depths.
func (s *Server) Status(c *gin.Context) {
	pending, err := s.queue.PendingCount()
	if err != nil {
		s.fail(c, "reading inbox", err)
		return
	}
	processing, err := s.queue.ProcessingCount()
	if err != nil {
		s.fail(c, "reading processing", err)
		return
	}
	completed, err := s.queue.CompletedCount()
	if err != nil {
		s.fail(c, "reading completed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"queue": gin.H{
			"pending":    pending,
			"processing": processing,
			"completed":  completed,
		},
	})
}

// runSummary is the wire shape of one in-flight run.
type runSummary struct {
	RunID           string `json:"run_id"`
	YouTubeURL      string `json:"youtube_url"`
	CurrentStage    string `json:"current_stage"`
	CurrentAttempt  int    `json:"current_attempt"`
	QAStatus        string `json:"qa_status"`
	StagesCompleted int    `json:"stages_completed"`
	EscalationState string `json:"escalation_state"`
	UpdatedAt       string `json:"updated_at"`
}

// ListRuns returns every non-terminal run.
func (s *Server) ListRuns(c *gin.Context) {
	runs, err := s.runs.ListIncomplete(c.Request.Context())
	if err != nil {
		s.fail(c, "listing runs", err)
		return
	}

	summaries := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, runSummary{
			RunID:           run.RunID,
			YouTubeURL:      run.YouTubeURL,
			CurrentStage:    string(run.CurrentStage),
			CurrentAttempt:  run.CurrentAttempt,
			QAStatus:        string(run.QAStatus),
			StagesCompleted: len(run.StagesCompleted),
			EscalationState: string(run.EscalationState),
			UpdatedAt:       run.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"runs": summaries})
}

func (s *Server) fail(c *gin.Context, action string, err error) {
	s.logger.Error("Request failed", "action", action, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
