// Package queue implements the persistent work queue: a directory-backed
// FIFO with inbox/, processing/, and completed/ subdirectories. The queue
// directory may be shared by several consumer processes; a per-candidate
// advisory file lock makes each claim at-most-once.
package queue

import (
	"errors"

	"github.com/clipforge/clipforge/pkg/models"
)

// ErrQueueEmpty indicates no claimable item is in the inbox.
var ErrQueueEmpty = errors.New("queue empty")

// ClaimedItem pairs a parsed queue item with its processing-directory path.
// The path is the handle for Complete and Fail.
type ClaimedItem struct {
	Item           *models.QueueItem
	ProcessingPath string
}
