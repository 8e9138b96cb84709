// Package leads implements the lead pipeline: listing, creation, partial
// updates and deletion, all filtered through the caller's authz.Principal.
package leads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kamalsharma29/crm-dashboard/internal/api/validation"
	"github.com/kamalsharma29/crm-dashboard/internal/authz"
	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("lead not found")
	ErrAssigneeNotFound = errors.New("assigned user not found")
)

// ValidationError reports bad input. Message is safe to show to callers.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Message: msg, Fields: map[string]string{field: msg}}
}

// Notifier is told when a lead lands on someone else's desk.
type Notifier interface {
	LeadAssigned(ctx context.Context, leadID, assigneeID uuid.UUID, assignedBy string) error
}

type Service struct {
	db       *gorm.DB
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(db *gorm.DB, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{db: db, notifier: notifier, logger: logger, now: time.Now}
}

// WithClock replaces time.Now for lastContactDate stamping.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type ListFilter struct {
	Status     string
	AssignedTo *uuid.UUID
}

// List returns the caller's visible leads, newest first. The assignedTo
// filter is ignored for callers who can only see their own leads.
func (s *Service) List(ctx context.Context, p authz.Principal, f ListFilter) ([]models.Lead, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Lead{}).
		Scopes(p.LeadReadScope()).
		Preload("AssignedTo")

	if f.Status != "" {
		status := models.LeadStatus(f.Status)
		if !status.Valid() {
			return nil, invalid("status", "Invalid status")
		}
		query = query.Where("leads.status = ?", status)
	}
	if f.AssignedTo != nil && p.Can(authz.ViewAllLeads) {
		query = query.Where("leads.assigned_to_id = ?", *f.AssignedTo)
	}

	var leads []models.Lead
	if err := query.Order("leads.created_at DESC").Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("listing leads: %w", err)
	}
	return leads, nil
}

func (s *Service) Get(ctx context.Context, p authz.Principal, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	err := s.db.WithContext(ctx).
		Scopes(p.LeadReadScope()).
		Preload("AssignedTo").
		Where("leads.id = ?", id).
		First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting lead: %w", err)
	}
	return &lead, nil
}

type CreateInput struct {
	Name         string
	Email        string
	Phone        string
	Company      string
	Status       string
	Source       string
	Value        *float64
	Notes        string
	AssignedTo   *uuid.UUID
	NextFollowUp *time.Time
}

func (s *Service) Create(ctx context.Context, p authz.Principal, in CreateInput) (*models.Lead, error) {
	if !p.Authenticated() {
		return nil, authz.ErrUnauthenticated
	}

	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" {
		return nil, &ValidationError{
			Message: "Name and email are required",
			Fields:  requiredFields(name, email),
		}
	}
	if !validation.IsValidEmail(email) {
		return nil, invalid("email", "Invalid email address")
	}

	status := models.LeadStatusNew
	if in.Status != "" {
		status = models.LeadStatus(in.Status)
		if !status.Valid() {
			return nil, invalid("status", "Invalid status")
		}
	}
	source := models.LeadSourceOther
	if in.Source != "" {
		source = models.LeadSource(in.Source)
		if !source.Valid() {
			return nil, invalid("source", "Invalid source")
		}
	}
	if in.Value != nil && *in.Value < 0 {
		return nil, invalid("value", "Value must be zero or greater")
	}

	owner := p.LeadOwner(in.AssignedTo)
	if owner != p.UserID {
		if err := s.ensureUserExists(ctx, owner); err != nil {
			return nil, err
		}
	}

	lead := models.Lead{
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		Company:      strings.TrimSpace(in.Company),
		Status:       status,
		Source:       source,
		Value:        in.Value,
		Notes:        in.Notes,
		AssignedToID: owner,
		NextFollowUp: in.NextFollowUp,
	}
	if err := s.db.WithContext(ctx).Create(&lead).Error; err != nil {
		return nil, fmt.Errorf("creating lead: %w", err)
	}

	if owner != p.UserID {
		s.notifyAssigned(ctx, lead.ID, owner, p)
	}
	return s.reload(ctx, lead.ID)
}

// UpdateInput is a partial update; nil fields are left alone.
type UpdateInput struct {
	Name         *string
	Email        *string
	Phone        *string
	Company      *string
	Status       *string
	Source       *string
	Notes        *string
	Value        *float64
	ClearValue   bool
	AssignedTo   *uuid.UUID
	NextFollowUp *time.Time
	// ClearNextFollowUp unsets the follow-up date.
	ClearNextFollowUp bool
}

// Update applies a partial update within the caller's write scope. A status
// other than "new" stamps lastContactDate. assignedTo is dropped for
// callers who cannot reassign.
func (s *Service) Update(ctx context.Context, p authz.Principal, id uuid.UUID, in UpdateInput) (*models.Lead, error) {
	var lead models.Lead
	err := s.db.WithContext(ctx).
		Scopes(p.LeadWriteScope()).
		Where("leads.id = ?", id).
		First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding lead: %w", err)
	}

	updates := make(map[string]interface{})

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name", "Name cannot be empty")
		}
		updates["name"] = name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if !validation.IsValidEmail(email) {
			return nil, invalid("email", "Invalid email address")
		}
		updates["email"] = email
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Company != nil {
		updates["company"] = strings.TrimSpace(*in.Company)
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}
	if in.Status != nil {
		status := models.LeadStatus(*in.Status)
		if !status.Valid() {
			return nil, invalid("status", "Invalid status")
		}
		updates["status"] = status
		if status != models.LeadStatusNew {
			updates["last_contact_date"] = s.now()
		}
	}
	if in.Source != nil {
		source := models.LeadSource(*in.Source)
		if !source.Valid() {
			return nil, invalid("source", "Invalid source")
		}
		updates["source"] = source
	}
	switch {
	case in.ClearValue:
		updates["value"] = nil
	case in.Value != nil:
		if *in.Value < 0 {
			return nil, invalid("value", "Value must be zero or greater")
		}
		updates["value"] = *in.Value
	}
	switch {
	case in.ClearNextFollowUp:
		updates["next_follow_up"] = nil
	case in.NextFollowUp != nil:
		updates["next_follow_up"] = *in.NextFollowUp
	}

	reassigned := false
	if in.AssignedTo != nil && p.Can(authz.ReassignLeads) && *in.AssignedTo != lead.AssignedToID {
		if err := s.ensureUserExists(ctx, *in.AssignedTo); err != nil {
			return nil, err
		}
		updates["assigned_to_id"] = *in.AssignedTo
		reassigned = true
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&lead).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("updating lead: %w", err)
		}
	}

	if reassigned && *in.AssignedTo != p.UserID {
		s.notifyAssigned(ctx, lead.ID, *in.AssignedTo, p)
	}
	return s.reload(ctx, lead.ID)
}

// Delete removes a lead. Only callers with DeleteLeads may do this.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if err := p.Require(authz.DeleteLeads); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Lead{})
	if result.Error != nil {
		return fmt.Errorf("deleting lead: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) reload(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.WithContext(ctx).Preload("AssignedTo").First(&lead, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("reloading lead: %w", err)
	}
	return &lead, nil
}

func (s *Service) ensureUserExists(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("checking assignee: %w", err)
	}
	if count == 0 {
		return ErrAssigneeNotFound
	}
	return nil
}

func (s *Service) notifyAssigned(ctx context.Context, leadID, assignee uuid.UUID, by authz.Principal) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.LeadAssigned(ctx, leadID, assignee, by.Name); err != nil {
		s.logger.Warn("failed to queue assignment notice", "lead_id", leadID, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func requiredFields(name, email string) map[string]string {
	fields := make(map[string]string)
	if name == "" {
		fields["name"] = "Name is required"
	}
	if email == "" {
		fields["email"] = "Email is required"
	}
	return fields
}
