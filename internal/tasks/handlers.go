package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
	"github.com/kamalsharma29/crm-dashboard/internal/notify"
	"gorm.io/gorm"
)

type Handler struct {
	db       *gorm.DB
	mailer   notify.Mailer
	enqueuer *Enqueuer
	logger   *slog.Logger
	now      func() time.Time
}

func NewHandler(db *gorm.DB, mailer notify.Mailer, enqueuer *Enqueuer, logger *slog.Logger) *Handler {
	return &Handler{
		db:       db,
		mailer:   mailer,
		enqueuer: enqueuer,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeFollowUpSweep, h.HandleFollowUpSweep)
	mux.HandleFunc(TypeFollowUpReminder, h.HandleFollowUpReminder)
	mux.HandleFunc(TypeAssignmentNotice, h.HandleAssignmentNotice)
}

// HandleFollowUpSweep queues a reminder for every open lead whose follow-up
// date has passed and whose owner has not been told about that date yet.
func (h *Handler) HandleFollowUpSweep(ctx context.Context, _ *asynq.Task) error {
	now := h.now().UTC()

	var due []models.Lead
	err := h.db.WithContext(ctx).
		Where("next_follow_up IS NOT NULL AND next_follow_up <= ?", now).
		Where("status NOT IN ?", []models.LeadStatus{models.LeadStatusClosedWon, models.LeadStatusClosedLost}).
		Find(&due).Error
	if err != nil {
		return fmt.Errorf("loading due follow-ups: %w", err)
	}

	queued := 0
	for _, lead := range due {
		if alreadyNotified(&lead) {
			continue
		}
		err := h.enqueuer.FollowUpDue(ctx, FollowUpReminderPayload{
			LeadID: lead.ID,
			DueAt:  lead.NextFollowUp.UTC(),
		})
		if err != nil {
			h.logger.Error("failed to queue reminder", "lead_id", lead.ID, "error", err)
			continue
		}
		queued++
	}

	h.logger.Info("follow-up sweep finished", "due", len(due), "queued", queued)
	return nil
}

func (h *Handler) HandleFollowUpReminder(ctx context.Context, t *asynq.Task) error {
	var payload FollowUpReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	lead, err := h.loadLead(ctx, payload.LeadID)
	if err != nil {
		return err
	}
	if lead == nil {
		h.logger.Info("skipping reminder for deleted lead", "lead_id", payload.LeadID)
		return nil
	}

	if lead.Status.Closed() || lead.NextFollowUp == nil || !lead.NextFollowUp.Equal(payload.DueAt) || alreadyNotified(lead) {
		h.logger.Debug("reminder no longer applies", "lead_id", lead.ID)
		return nil
	}
	if lead.AssignedTo == nil {
		return fmt.Errorf("lead %s has no owner: %w", lead.ID, asynq.SkipRetry)
	}

	msg, err := notify.FollowUpReminder(leadInfo(lead, ""))
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := h.mailer.Send(ctx, msg); err != nil {
		return err
	}

	if err := h.db.WithContext(ctx).Model(lead).Update("follow_up_notified_at", h.now().UTC()).Error; err != nil {
		return fmt.Errorf("marking reminder sent: %w", err)
	}

	h.logger.Info("sent follow-up reminder", "lead_id", lead.ID, "owner", lead.AssignedTo.Email)
	return nil
}

func (h *Handler) HandleAssignmentNotice(ctx context.Context, t *asynq.Task) error {
	var payload AssignmentNoticePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	lead, err := h.loadLead(ctx, payload.LeadID)
	if err != nil {
		return err
	}
	// The lead may have been deleted or handed to someone else since.
	if lead == nil || lead.AssignedToID != payload.AssigneeID || lead.AssignedTo == nil {
		h.logger.Info("skipping stale assignment notice", "lead_id", payload.LeadID)
		return nil
	}

	msg, err := notify.AssignmentNotice(leadInfo(lead, payload.AssignedBy))
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := h.mailer.Send(ctx, msg); err != nil {
		return err
	}

	h.logger.Info("sent assignment notice", "lead_id", lead.ID, "assignee", lead.AssignedTo.Email)
	return nil
}

// loadLead returns nil without error when the lead no longer exists.
func (h *Handler) loadLead(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	err := h.db.WithContext(ctx).Preload("AssignedTo").First(&lead, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading lead: %w", err)
	}
	return &lead, nil
}

func alreadyNotified(lead *models.Lead) bool {
	return lead.FollowUpNotifiedAt != nil && lead.NextFollowUp != nil && !lead.FollowUpNotifiedAt.Before(*lead.NextFollowUp)
}

func leadInfo(lead *models.Lead, assignedBy string) notify.LeadInfo {
	info := notify.LeadInfo{
		LeadName:   lead.Name,
		LeadEmail:  lead.Email,
		Company:    lead.Company,
		Status:     string(lead.Status),
		Notes:      lead.Notes,
		AssignedBy: assignedBy,
	}
	if lead.AssignedTo != nil {
		info.OwnerName = lead.AssignedTo.Name
		info.OwnerEmail = lead.AssignedTo.Email
	}
	if lead.NextFollowUp != nil {
		info.DueAt = *lead.NextFollowUp
	}
	return info
}
