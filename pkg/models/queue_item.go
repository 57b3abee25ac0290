package models

// QueueItem is one pending submission in the work queue. The JSON shape is
// the on-disk queue file format and must survive the inbox → processing →
// completed migration bit-for-bit.
type QueueItem struct {
	// URL is the source video URL. Opaque to the core.
	URL string `json:"url"`

	// TelegramUpdateID is the monotonic external identifier of the
	// submission, used for de-duplication across polls.
	TelegramUpdateID int64 `json:"telegram_update_id"`

	// QueuedAt is the enqueue time as an ISO-8601 string.
	QueuedAt string `json:"queued_at"`

	// TopicFocus is an optional free-form hint from the submitter.
	TopicFocus string `json:"topic_focus,omitempty"`
}
