package chat

import (
	"context"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token  string
	ChatID string
}

// Service handles chat notification delivery.
// Nil-safe: all methods are no-ops when service is nil.
type Service struct {
	client *Client
	logger *slog.Logger
}

// NewService creates a new chat notification service.
// Returns nil if Token or ChatID is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.ChatID == "" {
		return nil
	}
	return &Service{
		client: NewClient(cfg.Token, cfg.ChatID),
		logger: slog.Default().With("component", "chat-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client) *Service {
	return &Service{
		client: client,
		logger: slog.Default().With("component", "chat-service"),
	}
}

// Notify sends an advisory message.
// Fail-open: errors are logged, never returned to the caller's flow.
func (s *Service) Notify(ctx context.Context, text string) error {
	if s == nil {
		return nil
	}
	if err := s.client.SendMessage(ctx, text); err != nil {
		s.logger.Error("Failed to send chat notification", "error", err)
		return err
	}
	return nil
}

// SendFile delivers a file with a caption.
// Fail-open like Notify; delivery problems never fail the run.
func (s *Service) SendFile(ctx context.Context, path, caption string) error {
	if s == nil {
		return nil
	}
	if err := s.client.SendDocument(ctx, path, caption); err != nil {
		s.logger.Error("Failed to send file", "path", path, "error", err)
		return err
	}
	return nil
}

// Ask posts a question and blocks until the next message arrives in the
// chat or ctx expires. Used for escalations that need a human answer.
func (s *Service) Ask(ctx context.Context, question string, pollInterval time.Duration) (string, error) {
	if s == nil {
		return "", context.Canceled
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	// Drain pending updates first so an old message is not mistaken for
	// the answer.
	offset := int64(0)
	if pending, err := s.client.GetUpdates(ctx, 0); err == nil && len(pending) > 0 {
		offset = pending[len(pending)-1].UpdateID + 1
	}

	if err := s.client.SendMessage(ctx, question); err != nil {
		return "", err
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}

		updates, err := s.client.GetUpdates(ctx, offset)
		if err != nil {
			s.logger.Warn("Failed to poll for reply", "error", err)
			continue
		}
		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message != nil && update.Message.Text != "" {
				return update.Message.Text, nil
			}
		}
	}
}
