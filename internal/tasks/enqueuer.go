package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/kamalsharma29/crm-dashboard/pkg/queue"
)

// TaskClient is the subset of *asynq.Client used to enqueue work.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer queues notification tasks. It satisfies leads.Notifier.
type Enqueuer struct {
	client TaskClient
}

func NewEnqueuer(client TaskClient) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) LeadAssigned(ctx context.Context, leadID, assigneeID uuid.UUID, assignedBy string) error {
	task, err := NewAssignmentNoticeTask(AssignmentNoticePayload{
		LeadID:     leadID,
		AssigneeID: assigneeID,
		AssignedBy: assignedBy,
	})
	if err != nil {
		return fmt.Errorf("creating assignment task: %w", err)
	}

	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue(queue.QueueDefault), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueuing assignment task: %w", err)
	}
	return nil
}

// FollowUpDue queues one reminder per lead and due date. Repeat calls for
// the same pair are ignored while the first task is still retained.
func (e *Enqueuer) FollowUpDue(ctx context.Context, payload FollowUpReminderPayload) error {
	task, err := NewFollowUpReminderTask(payload)
	if err != nil {
		return fmt.Errorf("creating reminder task: %w", err)
	}

	id := fmt.Sprintf("followup:%s:%d", payload.LeadID, payload.DueAt.Unix())
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(queue.QueueDefault),
		asynq.TaskID(id),
		asynq.MaxRetry(5),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueuing reminder task: %w", err)
	}
	return nil
}
