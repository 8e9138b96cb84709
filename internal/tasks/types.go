package tasks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeFollowUpSweep    = "leads:followup_sweep"
	TypeFollowUpReminder = "leads:followup_reminder"
	TypeAssignmentNotice = "leads:assignment_notice"
)

// NewFollowUpSweepTask creates the periodic task that looks for due
// follow-ups. It carries no payload.
func NewFollowUpSweepTask() *asynq.Task {
	return asynq.NewTask(TypeFollowUpSweep, nil)
}

// FollowUpReminderPayload names the lead and the follow-up date being
// reminded about. A lead rescheduled after enqueue no longer matches DueAt.
type FollowUpReminderPayload struct {
	LeadID uuid.UUID `json:"lead_id"`
	DueAt  time.Time `json:"due_at"`
}

func NewFollowUpReminderTask(payload FollowUpReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFollowUpReminder, data), nil
}

// AssignmentNoticePayload is sent when a lead is given to someone other
// than the person making the change.
type AssignmentNoticePayload struct {
	LeadID     uuid.UUID `json:"lead_id"`
	AssigneeID uuid.UUID `json:"assignee_id"`
	AssignedBy string    `json:"assigned_by"`
}

func NewAssignmentNoticeTask(payload AssignmentNoticePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAssignmentNotice, data), nil
}
