package dto

import (
	"time"

	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
)

type CreateLeadRequest struct {
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Company      string     `json:"company"`
	Status       string     `json:"status"`
	Source       string     `json:"source"`
	Value        *float64   `json:"value"`
	Notes        string     `json:"notes"`
	AssignedTo   *string    `json:"assignedTo"`
	NextFollowUp *time.Time `json:"nextFollowUp"`
}

type UpdateLeadRequest struct {
	Name         *string             `json:"name"`
	Email        *string             `json:"email"`
	Phone        *string             `json:"phone"`
	Company      *string             `json:"company"`
	Status       *string             `json:"status"`
	Source       *string             `json:"source"`
	Notes        *string             `json:"notes"`
	Value        Nullable[float64]   `json:"value"`
	AssignedTo   *string             `json:"assignedTo"`
	NextFollowUp Nullable[time.Time] `json:"nextFollowUp"`
}

type LeadOwner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LeadDTO struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	Company         string            `json:"company"`
	Status          models.LeadStatus `json:"status"`
	Source          models.LeadSource `json:"source"`
	Value           *float64          `json:"value"`
	Notes           string            `json:"notes"`
	AssignedTo      *LeadOwner        `json:"assignedTo"`
	LastContactDate *time.Time        `json:"lastContactDate"`
	NextFollowUp    *time.Time        `json:"nextFollowUp"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func NewLeadDTO(l *models.Lead) LeadDTO {
	d := LeadDTO{
		ID:              l.ID.String(),
		Name:            l.Name,
		Email:           l.Email,
		Phone:           l.Phone,
		Company:         l.Company,
		Status:          l.Status,
		Source:          l.Source,
		Value:           l.Value,
		Notes:           l.Notes,
		LastContactDate: l.LastContactDate,
		NextFollowUp:    l.NextFollowUp,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
	if l.AssignedTo != nil {
		d.AssignedTo = &LeadOwner{
			ID:    l.AssignedTo.ID.String(),
			Name:  l.AssignedTo.Name,
			Email: l.AssignedTo.Email,
		}
	} else {
		d.AssignedTo = &LeadOwner{ID: l.AssignedToID.String()}
	}
	return d
}

func NewLeadDTOs(leads []models.Lead) []LeadDTO {
	out := make([]LeadDTO, 0, len(leads))
	for i := range leads {
		out = append(out, NewLeadDTO(&leads[i]))
	}
	return out
}

type LeadsResponse struct {
	Leads []LeadDTO `json:"leads"`
}

type LeadResponse struct {
	Lead LeadDTO `json:"lead"`
}

type LeadMutationResponse struct {
	Message string  `json:"message"`
	Lead    LeadDTO `json:"lead"`
}

type AttachmentsResponse struct {
	Attachments []models.Attachment `json:"attachments"`
}

type AttachmentResponse struct {
	Message    string             `json:"message"`
	Attachment *models.Attachment `json:"attachment"`
}
