package models

import (
	"time"

	"github.com/google/uuid"
)

type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusProposal    LeadStatus = "proposal"
	LeadStatusNegotiation LeadStatus = "negotiation"
	LeadStatusClosedWon   LeadStatus = "closed-won"
	LeadStatusClosedLost  LeadStatus = "closed-lost"
)

// LeadStatuses lists statuses in pipeline order.
var LeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusProposal,
	LeadStatusNegotiation,
	LeadStatusClosedWon,
	LeadStatusClosedLost,
}

func (s LeadStatus) Valid() bool {
	for _, v := range LeadStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Closed reports whether the lead has left the pipeline.
func (s LeadStatus) Closed() bool {
	return s == LeadStatusClosedWon || s == LeadStatusClosedLost
}

type LeadSource string

const (
	LeadSourceWebsite       LeadSource = "website"
	LeadSourceReferral      LeadSource = "referral"
	LeadSourceSocialMedia   LeadSource = "social-media"
	LeadSourceEmailCampaign LeadSource = "email-campaign"
	LeadSourceColdCall      LeadSource = "cold-call"
	LeadSourceOther         LeadSource = "other"
)

var LeadSources = []LeadSource{
	LeadSourceWebsite,
	LeadSourceReferral,
	LeadSourceSocialMedia,
	LeadSourceEmailCampaign,
	LeadSourceColdCall,
	LeadSourceOther,
}

func (s LeadSource) Valid() bool {
	for _, v := range LeadSources {
		if s == v {
			return true
		}
	}
	return false
}

type Lead struct {
	Base
	Name            string     `gorm:"not null" json:"name"`
	Email           string     `gorm:"not null;index" json:"email"`
	Phone           string     `json:"phone,omitempty"`
	Company         string     `json:"company,omitempty"`
	Status          LeadStatus `gorm:"not null;index" json:"status"`
	Source          LeadSource `gorm:"not null" json:"source"`
	Value           *float64   `json:"value,omitempty"`
	Notes           string     `gorm:"type:text" json:"notes,omitempty"`
	AssignedToID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"assignedToId"`
	LastContactDate *time.Time `json:"lastContactDate,omitempty"`
	NextFollowUp    *time.Time `gorm:"index" json:"nextFollowUp"`

	// Set by the reminder job once the owner has been told about NextFollowUp.
	FollowUpNotifiedAt *time.Time `json:"-"`

	AssignedTo *User `gorm:"foreignKey:AssignedToID" json:"assignedTo,omitempty"`
}

func (Lead) TableName() string {
	return "leads"
}
