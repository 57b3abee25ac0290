package chat

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

var youtubeURLPattern = regexp.MustCompile(
	`https?://(?:www\.)?(?:youtube\.com/watch\?[^\s]+|youtu\.be/[^\s]+|youtube\.com/shorts/[^\s]+)`)

// Submission is one YouTube URL extracted from a chat message.
type Submission struct {
	URL      string
	UpdateID int64

	// Topic is the free text surrounding the URL, used as the run's
	// topic focus when present.
	Topic string
}

// Poller turns incoming chat messages into submissions. It tracks the
// update offset so each message is consumed exactly once.
type Poller struct {
	client *Client
	offset int64
	logger *slog.Logger
}

// NewPoller creates a poller over the given client.
func NewPoller(client *Client) *Poller {
	return &Poller{
		client: client,
		logger: slog.Default().With("component", "chat-poller"),
	}
}

// Poll fetches pending updates and returns the submissions found in them.
// Messages without a YouTube URL are acknowledged and dropped.
func (p *Poller) Poll(ctx context.Context) ([]Submission, error) {
	updates, err := p.client.GetUpdates(ctx, p.offset)
	if err != nil {
		return nil, err
	}

	var submissions []Submission
	for _, update := range updates {
		p.offset = update.UpdateID + 1
		if update.Message == nil || update.Message.Text == "" {
			continue
		}

		url := youtubeURLPattern.FindString(update.Message.Text)
		if url == "" {
			p.logger.Debug("Ignoring message without video URL",
				"update_id", update.UpdateID)
			continue
		}

		submissions = append(submissions, Submission{
			URL:      url,
			UpdateID: update.UpdateID,
			Topic:    extractTopic(update.Message.Text, url),
		})
	}
	return submissions, nil
}

// extractTopic returns the message text with the URL removed, trimmed.
func extractTopic(text, url string) string {
	topic := strings.Replace(text, url, "", 1)
	return strings.TrimSpace(topic)
}
