package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/AhasnaCharumee/BookMate/internal/covers"
)

// CoverAttacher retries a cover upload and patches the owning book record.
type CoverAttacher interface {
	AttachCover(ctx context.Context, userID, bookID, localURI string, slot covers.Slot) error
}

// AttachCoverTask retries a cover upload that failed during a synchronous write.
type AttachCoverTask struct {
	UserID   string `json:"user_id"`
	BookID   string `json:"book_id"`
	LocalURI string `json:"local_uri"`
	Slot     string `json:"slot"`
}

// Config returns the queue configuration for cover attachment tasks.
func (t AttachCoverTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "attach_cover",
		MaxAttempts: 5,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// AttachCoverProcessor creates a processor function for AttachCoverTask.
func AttachCoverProcessor(attacher CoverAttacher) backlite.QueueProcessor[AttachCoverTask] {
	return func(ctx context.Context, task AttachCoverTask) error {
		if attacher == nil {
			return fmt.Errorf("cover attacher not configured")
		}

		slot := covers.Slot(task.Slot)
		if !slot.Valid() {
			log.Printf("[TASK] Dropping attach_cover task with invalid slot %q for book %s", task.Slot, task.BookID)
			return nil
		}

		if err := attacher.AttachCover(ctx, task.UserID, task.BookID, task.LocalURI, slot); err != nil {
			return fmt.Errorf("attach %s cover to book %s: %w", slot, task.BookID, err)
		}

		log.Printf("[TASK] Attached %s cover to book %s", slot, task.BookID)
		return nil
	}
}

// NewAttachCoverQueue creates a backlite queue for cover attachment tasks.
func NewAttachCoverQueue(attacher CoverAttacher) backlite.Queue {
	return backlite.NewQueue(AttachCoverProcessor(attacher))
}

// CoverRetryQueue enqueues failed cover uploads for asynchronous retry.
// It satisfies the repository's retrier interface.
type CoverRetryQueue struct {
	client *Client
}

// NewCoverRetryQueue creates a retry queue backed by the task client.
func NewCoverRetryQueue(client *Client) *CoverRetryQueue {
	return &CoverRetryQueue{client: client}
}

// EnqueueAttachCover schedules a cover upload retry.
func (q *CoverRetryQueue) EnqueueAttachCover(userID, bookID, localURI string, slot covers.Slot) error {
	_, err := q.client.Add(AttachCoverTask{
		UserID:   userID,
		BookID:   bookID,
		LocalURI: localURI,
		Slot:     string(slot),
	}).Save()
	return err
}
