package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// AccessEventPruner provides the ability to delete old routine access
// events. Suspicious and violation events are outside its reach; the
// security audit trail is permanent.
type AccessEventPruner interface {
	DeleteRoutineEventsBefore(cutoff time.Time) (int64, error)
}

// CleanupAccessEventsTask removes routine access events older than the
// configured retention period.
type CleanupAccessEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for access event cleanup tasks.
func (t CleanupAccessEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_access_events",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupAccessEventsProcessor creates a processor function for
// CleanupAccessEventsTask.
func CleanupAccessEventsProcessor(pruner AccessEventPruner) backlite.QueueProcessor[CleanupAccessEventsTask] {
	return func(ctx context.Context, task CleanupAccessEventsTask) error {
		if pruner == nil {
			return fmt.Errorf("access event pruner not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = 90
		}
		cutoff := time.Now().AddDate(0, 0, -retentionDays)

		deleted, err := pruner.DeleteRoutineEventsBefore(cutoff)
		if err != nil {
			return fmt.Errorf("cleanup access events: %w", err)
		}

		log.Printf("[TASK] Cleaned up %d routine access events older than %d days", deleted, retentionDays)
		return nil
	}
}

// NewCleanupAccessEventsQueue creates a backlite queue for event cleanup
// tasks.
func NewCleanupAccessEventsQueue(pruner AccessEventPruner) backlite.Queue {
	return backlite.NewQueue(CleanupAccessEventsProcessor(pruner))
}
